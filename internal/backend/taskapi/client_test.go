package taskapi_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskmate/internal/backend/taskapi"
	"taskmate/internal/config"
	"taskmate/internal/service"
	"taskmate/internal/testutil"
)

const token = testutil.Token

func newClient(t *testing.T, b *testutil.FakeBackend) *taskapi.Client {
	t.Helper()
	c, err := taskapi.NewWithHTTPClient(b.URL, b.Client(), nil)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return c
}

func sampleInput() service.TaskInput {
	return service.TaskInput{
		Title:    "Ship release",
		Priority: service.PriorityHigh,
		Status:   service.StatusPending,
		DueDate:  service.NewDate(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
	}
}

func TestClient_ListTasksNullIsEmpty(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.NullList = true

	tasks, err := newClient(t, b).ListTasks(context.Background(), token)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", tasks)
	}
}

func TestClient_SendsBearerToken(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()

	if _, err := newClient(t, b).ListTasks(context.Background(), token); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	reqs := b.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Authorization != "Bearer "+token {
		t.Errorf("expected bearer header, got %q", reqs[0].Authorization)
	}
	if reqs[0].Path != "/tasks" {
		t.Errorf("expected /tasks, got %q", reqs[0].Path)
	}
}

func TestClient_MissingToken(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()

	_, err := newClient(t, b).ListTasks(context.Background(), "")
	if !errors.Is(err, service.ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
	if len(b.Requests()) != 0 {
		t.Error("expected no request without a token")
	}
}

func TestClient_Unauthorized(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()

	_, err := newClient(t, b).ListTasks(context.Background(), "expired")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var se *service.Error
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %+v", se)
	}
}

func TestClient_CreateUpdateGet(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	c := newClient(t, b)

	created, err := c.CreateTask(ctx, sampleInput(), token)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected created task to have an id")
	}

	title := "Ship release 2.0"
	updated, err := c.UpdateTask(ctx, created.ID, service.TaskPatch{Title: &title}, token)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Title != title {
		t.Errorf("expected re-read task to carry the update, got %q", updated.Title)
	}
	if b.Count(testutil.RouteGetTask) != 1 {
		t.Errorf("expected update to re-read the task, got %d gets", b.Count(testutil.RouteGetTask))
	}

	got, err := c.GetTask(ctx, created.ID, token)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != title || got.Priority != service.PriorityHigh {
		t.Errorf("expected updated task, got %+v", got)
	}
	if got.DueDate.String() != "2024-05-01" {
		t.Errorf("expected due date 2024-05-01, got %q", got.DueDate.String())
	}
}

func TestClient_CreateWithoutIDIsMalformed(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.OmitTaskID = true

	_, err := newClient(t, b).CreateTask(context.Background(), sampleInput(), token)
	if !errors.Is(err, service.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestClient_CreateValidatesBeforeRequest(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()

	in := sampleInput()
	in.Title = "  "
	_, err := newClient(t, b).CreateTask(context.Background(), in, token)
	if !errors.Is(err, service.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if len(b.Requests()) != 0 {
		t.Error("expected no request for invalid input")
	}
}

func TestClient_ServerRejection(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.Fail[testutil.RouteCreateTask] = http.StatusUnprocessableEntity

	_, err := newClient(t, b).CreateTask(context.Background(), sampleInput(), token)
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if msg := service.MessageOf(err); msg != "injected failure" {
		t.Errorf("expected server message, got %q", msg)
	}
}

func TestClient_ServerError(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.Fail[testutil.RouteListTasks] = http.StatusBadGateway

	_, err := newClient(t, b).ListTasks(context.Background(), token)
	if !errors.Is(err, service.ErrService) {
		t.Errorf("expected ErrService, got %v", err)
	}
}

func TestClient_GetEnvelope(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.Envelope = true
	stored := b.Service.AddTask(service.Task{ID: "t-1", Title: "Wrapped", Priority: service.PriorityLow})

	got, err := newClient(t, b).GetTask(ctx, stored.ID, token)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.ID != "t-1" || got.Title != "Wrapped" {
		t.Errorf("expected unwrapped task, got %+v", got)
	}
}

func TestClient_GetUnknownIsNotFound(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()

	_, err := newClient(t, b).GetTask(context.Background(), "nope", token)
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_DeleteTwice(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	c := newClient(t, b)
	b.Service.AddTask(service.Task{ID: "gone"})

	if err := c.DeleteTask(ctx, "gone", token); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := c.DeleteTask(ctx, "gone", token); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestClient_DotIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	c := newClient(t, b)
	b.Service.AddTask(service.Task{ID: "keep", Title: "Keep"})

	for _, id := range []string{".", ".."} {
		if err := c.DeleteTask(ctx, id, token); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("DeleteTask(%q): expected ErrNotFound, got %v", id, err)
		}
		if _, err := c.GetTask(ctx, id, token); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("GetTask(%q): expected ErrNotFound, got %v", id, err)
		}
		if err := c.DeleteAttachment(ctx, "keep", id, token); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("DeleteAttachment(%q): expected ErrNotFound, got %v", id, err)
		}
	}
	if n := len(b.Requests()); n != 0 {
		t.Errorf("expected no requests, got %d: %+v", n, b.Requests())
	}
	if _, err := b.Service.GetTask(ctx, "keep", token); err != nil {
		t.Errorf("expected task kept, got %v", err)
	}
}

func TestClient_EscapesIDs(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.EscapedPath())
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := taskapi.NewWithHTTPClient(srv.URL, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	ctx := context.Background()
	for _, id := range []string{"a%2Fb", "../x", "50%"} {
		if err := c.DeleteTask(ctx, id, token); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("DeleteTask(%q): expected ErrNotFound, got %v", id, err)
		}
	}
	expected := []string{"/tasks/a%252Fb", "/tasks/..%2Fx", "/tasks/50%25"}
	if len(seen) != len(expected) {
		t.Fatalf("expected %d requests, got %v", len(expected), seen)
	}
	for i := range expected {
		if seen[i] != expected[i] {
			t.Errorf("expected %q, got %q", expected[i], seen[i])
		}
	}
}

func TestClient_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.Service.AddTask(service.Task{ID: "s", Title: "Status", Status: service.StatusPending})

	got, err := newClient(t, b).UpdateStatus(ctx, "s", service.StatusInProgress, token)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != service.StatusInProgress {
		t.Errorf("expected in progress, got %q", got.Status)
	}
	reqs := b.Requests()
	if reqs[0].Path != "/tasks/s/status" || !bytes.Contains(reqs[0].Body, []byte(`"in progress"`)) {
		t.Errorf("unexpected status request %s %s", reqs[0].Path, reqs[0].Body)
	}
}

func TestClient_RemoveFileSendsNull(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.Service.AddTask(service.Task{ID: "f", Title: "File", FileName: "a.txt", FileURL: "https://files.example.test/a.txt"})

	got, err := newClient(t, b).UpdateTask(ctx, "f", service.TaskPatch{FileChange: service.FileRemove}, token)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.HasAttachment() {
		t.Errorf("expected file removed, got %+v", got)
	}
	body := b.Requests()[0].Body
	if !bytes.Equal(bytes.TrimSpace(body), []byte(`{"file":null}`)) {
		t.Errorf("expected explicit null file, got %s", body)
	}
}

func TestClient_UploadAttachment(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.Service.AddTask(service.Task{ID: "u", Title: "Upload"})
	data := []byte("hello attachment")

	a, err := newClient(t, b).UploadAttachment(ctx, "u", service.FileUpload{Name: "notes.txt", ContentType: "text/plain", Data: data}, token)
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if a.ID == "" || a.TaskID != "u" || a.FileName != "notes.txt" {
		t.Errorf("unexpected attachment %+v", a)
	}
	blob, ok := b.Blob(a.ID)
	if !ok || !bytes.Equal(blob, data) {
		t.Errorf("expected uploaded bytes, got %q", blob)
	}
	for _, r := range b.Requests() {
		if r.Route == testutil.RouteBlob && r.ContentType != "text/plain" {
			t.Errorf("expected blob content type text/plain, got %q", r.ContentType)
		}
	}

	task, _ := b.Service.GetTask(ctx, "u", token)
	if task.AttachmentID != a.ID {
		t.Errorf("expected confirmed attachment on task, got %+v", task)
	}
}

func TestClient_UploadTransferFailure(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.Service.AddTask(service.Task{ID: "u", Title: "Upload"})
	b.Fail[testutil.RouteBlob] = http.StatusNotFound

	_, err := newClient(t, b).UploadAttachment(ctx, "u", service.FileUpload{Name: "a.bin", Data: []byte{1, 2}}, token)
	if service.KindOf(err) != service.ErrService {
		t.Fatalf("expected ErrService, got %v", err)
	}
	if errors.Is(err, service.ErrNotFound) {
		t.Error("expected transfer failure not to read as NotFound")
	}
	if b.Count(testutil.RouteConfirm) != 0 {
		t.Error("expected no confirm after failed transfer")
	}
	task, _ := b.Service.GetTask(ctx, "u", token)
	if task.HasAttachment() {
		t.Errorf("expected no attachment, got %+v", task)
	}
}

func TestClient_UploadConfirmFailure(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	b.Service.AddTask(service.Task{ID: "u", Title: "Upload"})
	b.Fail[testutil.RouteConfirm] = http.StatusUnauthorized

	_, err := newClient(t, b).UploadAttachment(ctx, "u", service.FileUpload{Name: "a.txt", Data: []byte("a")}, token)
	if service.KindOf(err) != service.ErrService {
		t.Fatalf("expected ErrService, got %v", err)
	}
	if errors.Is(err, service.ErrUnauthorized) {
		t.Error("expected confirm failure not to read as Unauthorized")
	}
	var se *service.Error
	if errors.As(err, &se) && se.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401 kept, got %d", se.Status)
	}
	if b.Count(testutil.RouteBlob) != 1 || b.Count(testutil.RouteConfirm) != 1 {
		t.Errorf("expected one transfer and one confirm, got %d and %d", b.Count(testutil.RouteBlob), b.Count(testutil.RouteConfirm))
	}
	task, _ := b.Service.GetTask(ctx, "u", token)
	if task.HasAttachment() || task.AttachmentID != "" {
		t.Errorf("expected no attachment, got %+v", task)
	}
}

func TestClient_UploadTooLarge(t *testing.T) {
	b := testutil.NewFakeBackend()
	defer b.Close()

	big := make([]byte, service.MaxFileSize+1)
	_, err := newClient(t, b).UploadAttachment(context.Background(), "u", service.FileUpload{Name: "big", Data: big}, token)
	if !errors.Is(err, service.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if len(b.Requests()) != 0 {
		t.Error("expected no request for oversized file")
	}
}

func TestClient_DeleteAttachment(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewFakeBackend()
	defer b.Close()
	c := newClient(t, b)
	b.Service.AddTask(service.Task{ID: "d", Title: "Detach"})

	a, err := c.UploadAttachment(ctx, "d", service.FileUpload{Name: "x.txt", Data: []byte("x")}, token)
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if err := c.DeleteAttachment(ctx, "d", a.ID, token); err != nil {
		t.Fatalf("DeleteAttachment: %v", err)
	}
	if err := c.DeleteAttachment(ctx, "d", a.ID, token); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	c, err := taskapi.NewWithHTTPClient(srv.URL, srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	if _, err := c.ListTasks(context.Background(), token); !errors.Is(err, service.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	b := testutil.NewFakeBackend()
	c := newClient(t, b)
	b.Close()

	_, err := c.ListTasks(context.Background(), token)
	if !errors.Is(err, service.ErrService) {
		t.Errorf("expected ErrService, got %v", err)
	}
}

func TestClient_BasePathPrefix(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c, err := taskapi.NewWithHTTPClient(srv.URL+"/prod/", srv.Client(), nil)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	if _, err := c.ListTasks(context.Background(), token); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if seen != "/prod/tasks" {
		t.Errorf("expected /prod/tasks, got %q", seen)
	}
}

func TestNew_RequiresAPIURL(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir()}
	if _, err := taskapi.New(cfg, nil); err == nil {
		t.Error("expected error without api_url")
	}

	cfg.Settings.APIURL = "not a url"
	if _, err := taskapi.New(cfg, nil); err == nil {
		t.Error("expected error for invalid api_url")
	}
}

func TestNewWithHTTPClient_RejectsRelative(t *testing.T) {
	if _, err := taskapi.NewWithHTTPClient("/tasks", http.DefaultClient, nil); err == nil {
		t.Error("expected error for relative url")
	}
}
