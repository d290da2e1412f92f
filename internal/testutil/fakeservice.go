// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskmate/internal/service"
)

// Token is the bearer token FakeService and FakeBackend accept by default.
const Token = "test-token"

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu          sync.RWMutex
	tasks       []service.Task
	attachments map[string]service.Attachment // attachment id -> attachment

	// Token is the accepted bearer token. Other tokens yield ErrUnauthorized.
	Token string

	// Now stamps created and updated times.
	Now func() time.Time

	// Calls counts invocations per operation name.
	Calls map[string]int

	// Error injection for testing
	ListTasksErr        error
	GetTaskErr          error
	CreateTaskErr       error
	UpdateTaskErr       error
	UpdateStatusErr     error
	DeleteTaskErr       error
	UploadAttachmentErr error
	DeleteAttachmentErr error
}

// NewFakeService creates an empty FakeService accepting Token.
func NewFakeService() *FakeService {
	return &FakeService{
		attachments: make(map[string]service.Attachment),
		Token:       Token,
		Now:         time.Now,
		Calls:       make(map[string]int),
	}
}

// AddTask stores t as is, assigning an id when it has none.
func (f *FakeService) AddTask(t service.Task) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.AttachmentID != "" {
		f.attachments[t.AttachmentID] = service.Attachment{
			ID:       t.AttachmentID,
			TaskID:   t.ID,
			FileName: t.FileName,
			FileURL:  t.FileURL,
		}
	}
	f.tasks = append(f.tasks, t)
	return t
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Task(nil), f.tasks...)
}

// CallCount returns how often op was invoked.
func (f *FakeService) CallCount(op string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.Calls[op]
}

func (f *FakeService) enter(op, token string, injected error) error {
	f.mu.Lock()
	f.Calls[op]++
	f.mu.Unlock()
	if token == "" {
		return service.ErrMissingToken
	}
	if token != f.Token {
		return &service.Error{Kind: service.ErrUnauthorized, Op: op, Status: 401, Message: "invalid token"}
	}
	return injected
}

func (f *FakeService) index(id string) int {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(op, id string) error {
	return &service.Error{Kind: service.ErrNotFound, Op: op, Status: 404, Message: fmt.Sprintf("task %s not found", id)}
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, token string) ([]service.Task, error) {
	if err := f.enter("ListTasks", token, f.ListTasksErr); err != nil {
		return nil, err
	}
	return append([]service.Task{}, f.Tasks()...), nil
}

// GetTask implements service.Service.
func (f *FakeService) GetTask(ctx context.Context, id, token string) (service.Task, error) {
	if err := f.enter("GetTask", token, f.GetTaskErr); err != nil {
		return service.Task{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	i := f.index(id)
	if i < 0 {
		return service.Task{}, notFound("GetTask", id)
	}
	return f.tasks[i], nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, in service.TaskInput, token string) (service.Task, error) {
	if err := f.enter("CreateTask", token, f.CreateTaskErr); err != nil {
		return service.Task{}, err
	}
	if err := in.Validate(); err != nil {
		return service.Task{}, err
	}
	now := f.Now()
	t := service.Task{
		ID:          uuid.NewString(),
		UserEmail:   in.Email,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = service.StatusPending
	}
	if in.File != nil {
		t.FileName = in.File.Name
		t.FileURL = "https://files.example.test/" + t.ID + "/" + in.File.Name
	}
	f.mu.Lock()
	f.tasks = append(f.tasks, t)
	f.mu.Unlock()
	return t, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, patch service.TaskPatch, token string) (service.Task, error) {
	if err := f.enter("UpdateTask", token, f.UpdateTaskErr); err != nil {
		return service.Task{}, err
	}
	if err := patch.Validate(); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return service.Task{}, notFound("UpdateTask", id)
	}
	t := patch.Apply(f.tasks[i])
	switch patch.FileChange {
	case service.FileRemove:
		t = t.WithoutAttachment()
	case service.FileReplace:
		t = t.WithoutAttachment()
		t.FileName = patch.File.Name
		t.FileURL = "https://files.example.test/" + t.ID + "/" + patch.File.Name
	}
	t.UpdatedAt = f.Now()
	f.tasks[i] = t
	return t, nil
}

// UpdateStatus implements service.Service.
func (f *FakeService) UpdateStatus(ctx context.Context, id string, status service.Status, token string) (service.Task, error) {
	if err := f.enter("UpdateStatus", token, f.UpdateStatusErr); err != nil {
		return service.Task{}, err
	}
	if !status.Valid() {
		return service.Task{}, &service.Error{Kind: service.ErrValidation, Op: "UpdateStatus", Message: fmt.Sprintf("invalid status: %q", status)}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return service.Task{}, notFound("UpdateStatus", id)
	}
	f.tasks[i].Status = status
	f.tasks[i].UpdatedAt = f.Now()
	return f.tasks[i], nil
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id, token string) error {
	if err := f.enter("DeleteTask", token, f.DeleteTaskErr); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return notFound("DeleteTask", id)
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

// UploadAttachment implements service.Service.
func (f *FakeService) UploadAttachment(ctx context.Context, id string, file service.FileUpload, token string) (service.Attachment, error) {
	if err := f.enter("UploadAttachment", token, f.UploadAttachmentErr); err != nil {
		return service.Attachment{}, err
	}
	if len(file.Data) > service.MaxFileSize {
		return service.Attachment{}, &service.Error{Kind: service.ErrValidation, Op: "UploadAttachment", Message: "file exceeds the size limit"}
	}
	a := service.Attachment{
		ID:       uuid.NewString(),
		TaskID:   id,
		FileName: file.Name,
		FileURL:  "https://files.example.test/" + id + "/" + file.Name,
		FileType: file.ContentType,
	}
	return f.Confirm(a)
}

// Confirm records a as the attachment of its task.
func (f *FakeService) Confirm(a service.Attachment) (service.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(a.TaskID)
	if i < 0 {
		return service.Attachment{}, notFound("UploadAttachment", a.TaskID)
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = f.Now()
	}
	f.attachments[a.ID] = a
	f.tasks[i] = f.tasks[i].WithAttachment(a)
	return a, nil
}

// DeleteAttachment implements service.Service.
func (f *FakeService) DeleteAttachment(ctx context.Context, taskID, attachmentID, token string) error {
	if err := f.enter("DeleteAttachment", token, f.DeleteAttachmentErr); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attachments[attachmentID]
	if !ok || a.TaskID != taskID {
		return &service.Error{Kind: service.ErrNotFound, Op: "DeleteAttachment", Status: 404, Message: "attachment not found"}
	}
	delete(f.attachments, attachmentID)
	if i := f.index(taskID); i >= 0 && f.tasks[i].AttachmentID == attachmentID {
		f.tasks[i] = f.tasks[i].WithoutAttachment()
	}
	return nil
}
