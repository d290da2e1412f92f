package store

import (
	"context"

	"taskmate/internal/service"
)

// Detail is the single-task view.
type Detail struct {
	Store[service.Task]
	id string
}

// NewDetail returns a detail view for the task with the given id.
func NewDetail(id string) *Detail {
	return &Detail{id: id}
}

// ID returns the id of the viewed task.
func (d *Detail) ID() string {
	return d.id
}

// Task returns the held task and whether one has been loaded.
func (d *Detail) Task() (service.Task, bool) {
	s := d.Snapshot()
	return s.Value, s.Loaded
}

// Patch replaces the held task with t when it is the viewed task.
func (d *Detail) Patch(t service.Task) bool {
	ok, _ := d.update(func(cur service.Task) (service.Task, bool) {
		if t.ID != d.id {
			return cur, false
		}
		return t, true
	})
	return ok
}

// SetAttachment records a confirmed attachment on the held task.
func (d *Detail) SetAttachment(a service.Attachment) bool {
	ok, _ := d.update(func(cur service.Task) (service.Task, bool) {
		return cur.WithAttachment(a), true
	})
	return ok
}

// ClearAttachment drops the attachment reference of the held task.
func (d *Detail) ClearAttachment() bool {
	ok, _ := d.update(func(cur service.Task) (service.Task, bool) {
		return cur.WithoutAttachment(), true
	})
	return ok
}

// Refresh fetches the viewed task.
func (d *Detail) Refresh(ctx context.Context, r Remote) error {
	return d.Load(ctx, func(ctx context.Context) (service.Task, error) {
		token, err := r.token(ctx)
		if err != nil {
			return service.Task{}, err
		}
		return r.Service.GetTask(ctx, d.id, token)
	})
}

// Update applies patch and holds the task the backend returns.
func (d *Detail) Update(ctx context.Context, r Remote, patch service.TaskPatch) (service.Task, error) {
	token, err := r.token(ctx)
	if err != nil {
		return service.Task{}, err
	}
	t, err := r.Service.UpdateTask(ctx, d.id, patch, token)
	if err != nil {
		return service.Task{}, err
	}
	d.Patch(t)
	return t, nil
}

// ChangeStatus sets the viewed task's status.
func (d *Detail) ChangeStatus(ctx context.Context, r Remote, s service.Status) (service.Task, error) {
	token, err := r.token(ctx)
	if err != nil {
		return service.Task{}, err
	}
	t, err := r.Service.UpdateStatus(ctx, d.id, s, token)
	if err != nil {
		return service.Task{}, err
	}
	d.Patch(t)
	return t, nil
}

// Delete deletes the viewed task and closes the view. NotFound closes the
// view too; see AlreadyGone.
func (d *Detail) Delete(ctx context.Context, r Remote) error {
	token, err := r.token(ctx)
	if err != nil {
		return err
	}
	err = r.Service.DeleteTask(ctx, d.id, token)
	if err == nil || AlreadyGone(err) {
		d.Close()
	}
	return err
}

// Attach uploads file and records the confirmed attachment. Nothing changes
// unless every upload step succeeded.
func (d *Detail) Attach(ctx context.Context, r Remote, file service.FileUpload) (service.Attachment, error) {
	token, err := r.token(ctx)
	if err != nil {
		return service.Attachment{}, err
	}
	a, err := r.Service.UploadAttachment(ctx, d.id, file, token)
	if err != nil {
		return service.Attachment{}, err
	}
	d.SetAttachment(a)
	return a, nil
}

// Detach removes the viewed task's attachment. Tasks whose file was set
// inline carry no attachment id; for those the file field is cleared
// through an update instead.
func (d *Detail) Detach(ctx context.Context, r Remote) error {
	cur, loaded := d.Task()
	if !loaded {
		return &service.Error{Kind: service.ErrValidation, Op: "Detach", Message: "task not loaded"}
	}
	if !cur.HasAttachment() && cur.AttachmentID == "" {
		return &service.Error{Kind: service.ErrValidation, Op: "Detach", Message: "task has no attachment"}
	}
	if cur.AttachmentID == "" {
		_, err := d.Update(ctx, r, service.TaskPatch{FileChange: service.FileRemove})
		return err
	}

	token, err := r.token(ctx)
	if err != nil {
		return err
	}
	if err := r.Service.DeleteAttachment(ctx, d.id, cur.AttachmentID, token); err != nil {
		return err
	}
	d.ClearAttachment()
	return nil
}
