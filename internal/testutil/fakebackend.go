package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"taskmate/internal/service"
)

// Route names accepted by FakeBackend.Fail.
const (
	RouteListTasks        = "list"
	RouteCreateTask       = "create"
	RouteGetTask          = "get"
	RouteUpdateTask       = "update"
	RouteUpdateStatus     = "status"
	RouteDeleteTask       = "delete"
	RouteUploadURL        = "upload-url"
	RouteBlob             = "blob"
	RouteConfirm          = "confirm"
	RouteDeleteAttachment = "delete-attachment"
)

// RecordedRequest is a request seen by FakeBackend.
type RecordedRequest struct {
	Route         string
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

type slot struct {
	taskID   string
	fileName string
	fileType string
	data     []byte
	uploaded bool
}

// FakeBackend is an HTTP server speaking the task REST API, backed by a
// FakeService. Pre-signed upload URLs point back at the same server.
type FakeBackend struct {
	*httptest.Server

	// Service holds the task state.
	Service *FakeService

	mu       sync.Mutex
	slots    map[string]*slot
	requests []RecordedRequest

	// Fail maps a route name to a status code returned instead of
	// handling the request.
	Fail map[string]int

	// OmitTaskID strips task_id from created tasks.
	OmitTaskID bool

	// Envelope wraps single-task responses in {"task": ...}.
	Envelope bool

	// NullList answers the task list with a JSON null.
	NullList bool
}

// NewFakeBackend starts a FakeBackend. Close it when done.
func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{
		Service: NewFakeService(),
		slots:   make(map[string]*slot),
		Fail:    make(map[string]int),
	}

	r := mux.NewRouter()
	r.Handle("/tasks", b.route(RouteListTasks, b.listTasks)).Methods(http.MethodGet)
	r.Handle("/tasks", b.route(RouteCreateTask, b.createTask)).Methods(http.MethodPost)
	r.Handle("/tasks/{id}", b.route(RouteGetTask, b.getTask)).Methods(http.MethodGet)
	r.Handle("/tasks/{id}", b.route(RouteUpdateTask, b.updateTask)).Methods(http.MethodPut)
	r.Handle("/tasks/{id}", b.route(RouteDeleteTask, b.deleteTask)).Methods(http.MethodDelete)
	r.Handle("/tasks/{id}/status", b.route(RouteUpdateStatus, b.updateStatus)).Methods(http.MethodPut)
	r.Handle("/tasks/{id}/attachments/upload-url", b.route(RouteUploadURL, b.uploadURL)).Methods(http.MethodPost)
	r.Handle("/tasks/{id}/attachments/{att}/confirm", b.route(RouteConfirm, b.confirm)).Methods(http.MethodPost)
	r.Handle("/tasks/{id}/attachments/{att}", b.route(RouteDeleteAttachment, b.deleteAttachment)).Methods(http.MethodDelete)
	r.Handle("/blobs/{att}", b.route(RouteBlob, b.putBlob)).Methods(http.MethodPut)

	b.Server = httptest.NewServer(r)
	return b
}

// Requests returns the requests seen so far.
func (b *FakeBackend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// Count returns how many requests hit the named route.
func (b *FakeBackend) Count(route string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Route == route {
			n++
		}
	}
	return n
}

// Blob returns the bytes uploaded for an attachment id.
func (b *FakeBackend) Blob(attachmentID string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.slots[attachmentID]
	if !ok || !s.uploaded {
		return nil, false
	}
	return s.data, true
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, token string, body []byte)

func (b *FakeBackend) route(name string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		auth := r.Header.Get("Authorization")

		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Route:         name,
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: auth,
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		})
		status := b.Fail[name]
		b.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"message": "injected failure"})
			return
		}
		h(w, r, strings.TrimPrefix(auth, "Bearer "), body)
	})
}

func (b *FakeBackend) listTasks(w http.ResponseWriter, r *http.Request, token string, _ []byte) {
	tasks, err := b.Service.ListTasks(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	if b.NullList && len(tasks) == 0 {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (b *FakeBackend) createTask(w http.ResponseWriter, r *http.Request, token string, body []byte) {
	var in service.TaskInput
	if err := json.Unmarshal(body, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	t, err := b.Service.CreateTask(r.Context(), in, token)
	if err != nil {
		writeError(w, err)
		return
	}
	if b.OmitTaskID {
		t.ID = ""
	}
	b.writeTask(w, http.StatusCreated, t)
}

func (b *FakeBackend) getTask(w http.ResponseWriter, r *http.Request, token string, _ []byte) {
	t, err := b.Service.GetTask(r.Context(), mux.Vars(r)["id"], token)
	if err != nil {
		writeError(w, err)
		return
	}
	b.writeTask(w, http.StatusOK, t)
}

func (b *FakeBackend) updateTask(w http.ResponseWriter, r *http.Request, token string, body []byte) {
	patch, err := decodePatch(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if _, err := b.Service.UpdateTask(r.Context(), mux.Vars(r)["id"], patch, token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task updated"})
}

func (b *FakeBackend) updateStatus(w http.ResponseWriter, r *http.Request, token string, body []byte) {
	var req struct {
		Status service.Status `json:"status"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if _, err := b.Service.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status, token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Status updated"})
}

func (b *FakeBackend) deleteTask(w http.ResponseWriter, r *http.Request, token string, _ []byte) {
	if err := b.Service.DeleteTask(r.Context(), mux.Vars(r)["id"], token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *FakeBackend) uploadURL(w http.ResponseWriter, r *http.Request, token string, body []byte) {
	id := mux.Vars(r)["id"]
	if _, err := b.Service.GetTask(r.Context(), id, token); err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.FileName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fileName required"})
		return
	}

	att := uuid.NewString()
	b.mu.Lock()
	b.slots[att] = &slot{taskID: id, fileName: req.FileName, fileType: req.FileType}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"uploadUrl":    b.URL + "/blobs/" + att,
		"attachmentId": att,
	})
}

func (b *FakeBackend) putBlob(w http.ResponseWriter, r *http.Request, _ string, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.slots[mux.Vars(r)["att"]]
	if !ok {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	s.data = body
	s.uploaded = true
	w.WriteHeader(http.StatusOK)
}

func (b *FakeBackend) confirm(w http.ResponseWriter, r *http.Request, token string, _ []byte) {
	id, att := mux.Vars(r)["id"], mux.Vars(r)["att"]
	if _, err := b.Service.GetTask(r.Context(), id, token); err != nil {
		writeError(w, err)
		return
	}

	b.mu.Lock()
	s, ok := b.slots[att]
	b.mu.Unlock()
	if !ok || s.taskID != id {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "upload not found"})
		return
	}
	if !s.uploaded {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file not uploaded"})
		return
	}

	a, err := b.Service.Confirm(service.Attachment{
		ID:       att,
		TaskID:   id,
		FileName: s.fileName,
		FileURL:  b.URL + "/blobs/" + att,
		FileType: s.fileType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attachment": a})
}

func (b *FakeBackend) deleteAttachment(w http.ResponseWriter, r *http.Request, token string, _ []byte) {
	if err := b.Service.DeleteAttachment(r.Context(), mux.Vars(r)["id"], mux.Vars(r)["att"], token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *FakeBackend) writeTask(w http.ResponseWriter, status int, t service.Task) {
	if b.Envelope {
		writeJSON(w, status, map[string]interface{}{"task": t})
		return
	}
	if t.ID == "" {
		// Re-encode without the key rather than as "task_id": "".
		var m map[string]interface{}
		raw, _ := json.Marshal(t)
		_ = json.Unmarshal(raw, &m)
		delete(m, "task_id")
		writeJSON(w, status, m)
		return
	}
	writeJSON(w, status, t)
}

// decodePatch rebuilds a TaskPatch from its wire form. A "file" key set to
// null removes the attachment; an absent key keeps it.
func decodePatch(body []byte) (service.TaskPatch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return service.TaskPatch{}, err
	}
	var p service.TaskPatch
	fields := []struct {
		key string
		dst interface{}
	}{
		{"title", &p.Title},
		{"description", &p.Description},
		{"priority", &p.Priority},
		{"status", &p.Status},
		{"due_date", &p.DueDate},
	}
	for _, f := range fields {
		if v, ok := raw[f.key]; ok {
			if err := json.Unmarshal(v, f.dst); err != nil {
				return service.TaskPatch{}, err
			}
		}
	}
	if v, ok := raw["file"]; ok {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			p.FileChange = service.FileRemove
		} else {
			p.FileChange = service.FileReplace
			if err := json.Unmarshal(v, &p.File); err != nil {
				return service.TaskPatch{}, err
			}
		}
	}
	return p, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrMissingToken), errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": service.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
