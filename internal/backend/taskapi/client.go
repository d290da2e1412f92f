// Package taskapi implements the service.Service interface against the task
// REST backend.
package taskapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	httptransport "github.com/go-kit/kit/transport/http"
	"golang.org/x/net/publicsuffix"

	"taskmate/internal/config"
	"taskmate/internal/service"
)

// Client implements service.Service over HTTP. Every operation maps to
// exactly one request, except UpdateTask and UpdateStatus (write, then
// re-read) and UploadAttachment (slot, transfer, confirm).
type Client struct {
	base   *url.URL
	http   *http.Client
	logger log.Logger
}

// New creates a client for the API base URL in cfg. The HTTP client keeps
// a cookie jar so same-site cookies set by the backend are sent back.
func New(cfg *config.Config, logger log.Logger) (*Client, error) {
	if err := cfg.Settings.RequireAPI(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return NewWithHTTPClient(cfg.Settings.APIURL, &http.Client{Jar: jar}, logger)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger log.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url: %s", baseURL)
	}
	if base.Path == "" {
		base.Path = "/"
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{base: base, http: httpClient, logger: logger}, nil
}

// ListTasks returns all tasks of the current user.
func (c *Client) ListTasks(ctx context.Context, token string) ([]service.Task, error) {
	var tasks []service.Task
	err := c.do(ctx, exchange{
		op:     "ListTasks",
		method: http.MethodGet,
		tgt:    c.endpoint("tasks"),
		into:   &tasks,
	}, token)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// GetTask returns a single task by id.
func (c *Client) GetTask(ctx context.Context, id, token string) (service.Task, error) {
	if id == "" {
		return service.Task{}, &service.Error{Kind: service.ErrNotFound, Op: "GetTask", Message: "empty task id"}
	}
	var res taskResult
	err := c.do(ctx, exchange{
		op:     "GetTask",
		method: http.MethodGet,
		tgt:    c.endpoint("tasks", id),
		into:   &res,
	}, token)
	if err != nil {
		return service.Task{}, err
	}
	if res.task.ID == "" {
		return service.Task{}, &service.Error{Kind: service.ErrMalformed, Op: "GetTask", Message: "response has no task_id"}
	}
	return res.task, nil
}

// CreateTask creates a task. The input is validated before any request is
// made; the response must carry the server-assigned task_id.
func (c *Client) CreateTask(ctx context.Context, in service.TaskInput, token string) (service.Task, error) {
	if err := in.Validate(); err != nil {
		return service.Task{}, err
	}
	var res taskResult
	err := c.do(ctx, exchange{
		op:         "CreateTask",
		method:     http.MethodPost,
		tgt:        c.endpoint("tasks"),
		body:       in,
		into:       &res,
		rejectable: true,
	}, token)
	if err != nil {
		return service.Task{}, err
	}
	if res.task.ID == "" {
		return service.Task{}, &service.Error{Kind: service.ErrMalformed, Op: "CreateTask", Message: "response has no task_id"}
	}
	return res.task, nil
}

// UpdateTask sends a partial update, then re-reads the task. The write
// response body is discarded.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch, token string) (service.Task, error) {
	if err := patch.Validate(); err != nil {
		return service.Task{}, err
	}
	err := c.do(ctx, exchange{
		op:         "UpdateTask",
		method:     http.MethodPut,
		tgt:        c.endpoint("tasks", id),
		body:       patch,
		rejectable: true,
	}, token)
	if err != nil {
		return service.Task{}, err
	}
	return c.GetTask(ctx, id, token)
}

// UpdateStatus changes the status of a task, then re-reads it.
func (c *Client) UpdateStatus(ctx context.Context, id string, status service.Status, token string) (service.Task, error) {
	if !status.Valid() {
		return service.Task{}, &service.Error{Kind: service.ErrValidation, Op: "UpdateStatus", Message: fmt.Sprintf("invalid status: %q", status)}
	}
	err := c.do(ctx, exchange{
		op:         "UpdateStatus",
		method:     http.MethodPut,
		tgt:        c.endpoint("tasks", id, "status"),
		body:       statusRequest{Status: status},
		rejectable: true,
	}, token)
	if err != nil {
		return service.Task{}, err
	}
	return c.GetTask(ctx, id, token)
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id, token string) error {
	return c.do(ctx, exchange{
		op:     "DeleteTask",
		method: http.MethodDelete,
		tgt:    c.endpoint("tasks", id),
	}, token)
}

// UploadAttachment requests an upload slot, transfers the bytes to it and
// confirms the attachment. A failure after the slot was issued is reported
// as service.ErrService because the attachment is left half-done.
func (c *Client) UploadAttachment(ctx context.Context, id string, file service.FileUpload, token string) (service.Attachment, error) {
	const op = "UploadAttachment"
	if len(file.Data) > service.MaxFileSize {
		return service.Attachment{}, &service.Error{Kind: service.ErrValidation, Op: op, Message: "file exceeds the size limit"}
	}
	if file.ContentType == "" {
		file.ContentType = "application/octet-stream"
	}

	var slot uploadSlot
	err := c.do(ctx, exchange{
		op:         op,
		method:     http.MethodPost,
		tgt:        c.endpoint("tasks", id, "attachments", "upload-url"),
		body:       uploadSlotRequest{FileName: file.Name, FileType: file.ContentType},
		into:       &slot,
		rejectable: true,
	}, token)
	if err != nil {
		return service.Attachment{}, err
	}
	if slot.UploadURL == "" || slot.AttachmentID == "" {
		return service.Attachment{}, &service.Error{Kind: service.ErrMalformed, Op: op, Message: "upload slot missing uploadUrl or attachmentId"}
	}
	dst, err := url.Parse(slot.UploadURL)
	if err != nil || !dst.IsAbs() {
		return service.Attachment{}, &service.Error{Kind: service.ErrMalformed, Op: op, Message: "upload slot has invalid uploadUrl"}
	}

	err = c.do(ctx, exchange{
		op:     op,
		method: http.MethodPut,
		tgt:    dst,
		body:   file,
	}, token)
	if err != nil {
		return service.Attachment{}, incomplete(op, "transfer", err)
	}

	var confirmed attachmentResult
	err = c.do(ctx, exchange{
		op:     op,
		method: http.MethodPost,
		tgt:    c.endpoint("tasks", id, "attachments", slot.AttachmentID, "confirm"),
		into:   &confirmed,
	}, token)
	if err != nil {
		return service.Attachment{}, incomplete(op, "confirm", err)
	}
	if confirmed.Attachment == nil {
		return service.Attachment{}, incomplete(op, "confirm", errors.New("response has no attachment"))
	}

	a := *confirmed.Attachment
	if a.ID == "" {
		a.ID = slot.AttachmentID
	}
	if a.TaskID == "" {
		a.TaskID = id
	}
	return a, nil
}

// DeleteAttachment removes an attachment from a task.
func (c *Client) DeleteAttachment(ctx context.Context, taskID, attachmentID, token string) error {
	return c.do(ctx, exchange{
		op:     "DeleteAttachment",
		method: http.MethodDelete,
		tgt:    c.endpoint("tasks", taskID, "attachments", attachmentID),
	}, token)
}

// exchange describes one HTTP request/response pair.
type exchange struct {
	op     string
	method string
	tgt    *url.URL

	// body is JSON-encoded, or sent raw when it is a service.FileUpload.
	body interface{}

	// into receives the decoded JSON body; nil discards it.
	into interface{}

	// rejectable marks requests whose 4xx-with-body responses are
	// validation failures rather than service errors.
	rejectable bool
}

func (c *Client) do(ctx context.Context, ex exchange, token string) error {
	if token == "" {
		return service.ErrMissingToken
	}
	if ex.tgt == nil {
		return &service.Error{Kind: service.ErrNotFound, Op: ex.op, Message: "invalid id"}
	}

	var ep endpoint.Endpoint
	{
		ep = httptransport.NewClient(
			ex.method,
			ex.tgt,
			encodeRequest,
			decodeResponse(ex.op, ex.into, ex.rejectable),
			httptransport.SetClient(c.http),
			httptransport.ClientBefore(kitjwt.ContextToHTTP()),
		).Endpoint()
		ep = classify(ex.op)(ep)
	}

	ctx = context.WithValue(ctx, kitjwt.JWTContextKey, token)
	_, err := ep(ctx, ex.body)

	level.Debug(c.logger).Log(
		"op", ex.op,
		"http_method", ex.method,
		"path", ex.tgt.Path,
		"err", err,
	)
	return err
}

// endpoint appends elem to the base path, one escaped segment each. It
// returns nil when a segment is empty or a dot segment, since such an id
// would address a different resource.
func (c *Client) endpoint(elem ...string) *url.URL {
	u := *c.base
	p := strings.TrimSuffix(c.base.Path, "/")
	raw := strings.TrimSuffix(c.base.EscapedPath(), "/")
	for _, e := range elem {
		if e == "" || e == "." || e == ".." {
			return nil
		}
		p += "/" + e
		raw += "/" + url.PathEscape(e)
	}
	u.Path, u.RawPath = p, raw
	return &u
}

// classify turns untyped failures (transport errors, cancellation) into
// service.ErrService so every error leaving the client is a *service.Error.
func classify(op string) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			response, err := next(ctx, request)
			if err == nil {
				return response, nil
			}
			var typed *service.Error
			if errors.As(err, &typed) {
				return nil, err
			}
			return nil, &service.Error{Kind: service.ErrService, Op: op, Err: err}
		}
	}
}

// incomplete reports a failure after the upload slot was issued.
func incomplete(op, stage string, err error) error {
	e := &service.Error{
		Kind:    service.ErrService,
		Op:      op,
		Message: "attachment " + stage + " failed",
	}
	var typed *service.Error
	if errors.As(err, &typed) {
		e.Status = typed.Status
		e.Message += ": " + typed.Kind.Error()
		if typed.Message != "" {
			e.Message += ": " + typed.Message
		}
		if typed.Err != nil {
			e.Err = typed.Err
		}
		return e
	}
	e.Err = err
	return e
}
