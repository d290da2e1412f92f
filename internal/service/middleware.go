package service

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Middleware decorates a Service.
type Middleware func(Service) Service

// LoggingMiddleware logs every call at debug level, and failures at warn
// level. Tokens are never logged.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) log(method string, begin time.Time, err error, keyvals ...interface{}) {
	keyvals = append([]interface{}{"method", method}, keyvals...)
	keyvals = append(keyvals, "took", time.Since(begin))
	if err != nil {
		level.Warn(mw.logger).Log(append(keyvals, "err", err)...)
		return
	}
	level.Debug(mw.logger).Log(keyvals...)
}

func (mw loggingMiddleware) ListTasks(ctx context.Context, token string) (tasks []Task, err error) {
	defer func(begin time.Time) {
		mw.log("ListTasks", begin, err, "count", len(tasks))
	}(time.Now())
	return mw.next.ListTasks(ctx, token)
}

func (mw loggingMiddleware) GetTask(ctx context.Context, id, token string) (t Task, err error) {
	defer func(begin time.Time) {
		mw.log("GetTask", begin, err, "task_id", id)
	}(time.Now())
	return mw.next.GetTask(ctx, id, token)
}

func (mw loggingMiddleware) CreateTask(ctx context.Context, in TaskInput, token string) (t Task, err error) {
	defer func(begin time.Time) {
		mw.log("CreateTask", begin, err, "task_id", t.ID, "title", in.Title)
	}(time.Now())
	return mw.next.CreateTask(ctx, in, token)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, id string, patch TaskPatch, token string) (t Task, err error) {
	defer func(begin time.Time) {
		mw.log("UpdateTask", begin, err, "task_id", id, "file_change", patch.FileChange)
	}(time.Now())
	return mw.next.UpdateTask(ctx, id, patch, token)
}

func (mw loggingMiddleware) UpdateStatus(ctx context.Context, id string, status Status, token string) (t Task, err error) {
	defer func(begin time.Time) {
		mw.log("UpdateStatus", begin, err, "task_id", id, "status", status)
	}(time.Now())
	return mw.next.UpdateStatus(ctx, id, status, token)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, id, token string) (err error) {
	defer func(begin time.Time) {
		mw.log("DeleteTask", begin, err, "task_id", id)
	}(time.Now())
	return mw.next.DeleteTask(ctx, id, token)
}

func (mw loggingMiddleware) UploadAttachment(ctx context.Context, id string, file FileUpload, token string) (a Attachment, err error) {
	defer func(begin time.Time) {
		mw.log("UploadAttachment", begin, err, "task_id", id, "file_name", file.Name, "size", len(file.Data))
	}(time.Now())
	return mw.next.UploadAttachment(ctx, id, file, token)
}

func (mw loggingMiddleware) DeleteAttachment(ctx context.Context, taskID, attachmentID, token string) (err error) {
	defer func(begin time.Time) {
		mw.log("DeleteAttachment", begin, err, "task_id", taskID, "attachment_id", attachmentID)
	}(time.Now())
	return mw.next.DeleteAttachment(ctx, taskID, attachmentID, token)
}
