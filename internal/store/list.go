package store

import (
	"context"
	"strings"

	"taskmate/internal/service"
	"taskmate/internal/session"
)

// Remote is what a view needs to reach the backend.
type Remote struct {
	Service service.Service
	Session session.Provider
}

func (r Remote) token(ctx context.Context) (string, error) {
	return r.Session.Token(ctx)
}

// Filter narrows the task list. Zero fields, and "all", match everything.
type Filter struct {
	Query    string
	Priority service.Priority
	Status   service.Status
}

// Match reports whether t passes all of the filter's conditions. Query is
// a case-insensitive substring match on title and description.
func (f Filter) Match(t service.Task) bool {
	if q := strings.ToLower(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	if f.Priority != "" && f.Priority != "all" && t.Priority != f.Priority {
		return false
	}
	if f.Status != "" && f.Status != "all" && t.Status != f.Status {
		return false
	}
	return true
}

// Apply returns the tasks matching f, in order.
func (f Filter) Apply(tasks []service.Task) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// List is the task list view.
type List struct {
	Store[[]service.Task]
	filter Filter
}

// NewList returns an empty list view.
func NewList() *List {
	return &List{}
}

// SetQuery sets the text search over title and description.
func (l *List) SetQuery(q string) {
	l.mu.Lock()
	l.filter.Query = strings.TrimSpace(q)
	l.mu.Unlock()
}

// SetPriority sets the priority filter; "" clears it.
func (l *List) SetPriority(p service.Priority) {
	l.mu.Lock()
	l.filter.Priority = p
	l.mu.Unlock()
}

// SetStatus sets the status filter; "" clears it.
func (l *List) SetStatus(s service.Status) {
	l.mu.Lock()
	l.filter.Status = s
	l.mu.Unlock()
}

// Filter returns the current filter.
func (l *List) Filter() Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// All returns a copy of the held tasks.
func (l *List) All() []service.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]service.Task(nil), l.value...)
}

// Visible returns the held tasks passing the current filter.
func (l *List) Visible() []service.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter.Apply(l.value)
}

// Patch replaces the held task with t's id in place. Order is preserved.
func (l *List) Patch(t service.Task) bool {
	ok, _ := l.update(func(tasks []service.Task) ([]service.Task, bool) {
		for i := range tasks {
			if tasks[i].ID == t.ID {
				next := append([]service.Task(nil), tasks...)
				next[i] = t
				return next, true
			}
		}
		return tasks, false
	})
	return ok
}

// Remove drops the held task with the given id.
func (l *List) Remove(id string) bool {
	ok, _ := l.update(func(tasks []service.Task) ([]service.Task, bool) {
		for i := range tasks {
			if tasks[i].ID == id {
				next := make([]service.Task, 0, len(tasks)-1)
				next = append(next, tasks[:i]...)
				next = append(next, tasks[i+1:]...)
				return next, true
			}
		}
		return tasks, false
	})
	return ok
}

// Refresh fetches the caller's tasks and replaces the held list.
func (l *List) Refresh(ctx context.Context, r Remote) error {
	return l.Load(ctx, func(ctx context.Context) ([]service.Task, error) {
		token, err := r.token(ctx)
		if err != nil {
			return nil, err
		}
		return r.Service.ListTasks(ctx, token)
	})
}

// ChangeStatus sets a task's status and, once the backend confirms, patches
// the held copy with the returned task.
func (l *List) ChangeStatus(ctx context.Context, r Remote, id string, s service.Status) (service.Task, error) {
	token, err := r.token(ctx)
	if err != nil {
		return service.Task{}, err
	}
	t, err := r.Service.UpdateStatus(ctx, id, s, token)
	if err != nil {
		return service.Task{}, err
	}
	l.Patch(t)
	return t, nil
}

// Delete removes a task. A task the backend no longer has is dropped from
// the held list as well; the NotFound error is still returned so callers
// can report it as already gone.
func (l *List) Delete(ctx context.Context, r Remote, id string) error {
	token, err := r.token(ctx)
	if err != nil {
		return err
	}
	err = r.Service.DeleteTask(ctx, id, token)
	if err == nil || service.KindOf(err) == service.ErrNotFound {
		l.Remove(id)
	}
	return err
}

// AlreadyGone reports whether err means the task had been deleted before.
func AlreadyGone(err error) bool {
	return service.KindOf(err) == service.ErrNotFound
}
