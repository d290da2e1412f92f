// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// Every call performs its work against the remote backend with the given
// bearer token; commands never talk HTTP directly.
//
// All operations are single-shot. A failure is returned as *Error and never
// retried.
type Service interface {
	// ListTasks returns every task of the token's user in backend order.
	// An empty result is not an error.
	ListTasks(ctx context.Context, token string) ([]Task, error)

	// GetTask returns one task. Unknown ids yield ErrNotFound.
	GetTask(ctx context.Context, id, token string) (Task, error)

	// CreateTask creates a task. The returned task always has an ID.
	CreateTask(ctx context.Context, in TaskInput, token string) (Task, error)

	// UpdateTask applies a partial update and returns the task as re-read
	// from the backend afterwards.
	UpdateTask(ctx context.Context, id string, patch TaskPatch, token string) (Task, error)

	// UpdateStatus changes only the status and returns the re-read task.
	UpdateStatus(ctx context.Context, id string, status Status, token string) (Task, error)

	// DeleteTask deletes a task. Deleting an absent task yields ErrNotFound.
	DeleteTask(ctx context.Context, id, token string) error

	// UploadAttachment runs the upload-slot, transfer, confirm sequence.
	UploadAttachment(ctx context.Context, id string, file FileUpload, token string) (Attachment, error)

	// DeleteAttachment removes an attachment from a task.
	DeleteAttachment(ctx context.Context, taskID, attachmentID, token string) error
}
