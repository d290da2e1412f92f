package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	httptransport "github.com/go-kit/kit/transport/http"

	"taskmate/internal/service"
)

// maxErrorBody bounds how much of an error response is read for a message.
const maxErrorBody = 64 << 10

type statusRequest struct {
	Status service.Status `json:"status"`
}

type uploadSlotRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

type uploadSlot struct {
	UploadURL    string `json:"uploadUrl"`
	AttachmentID string `json:"attachmentId"`
}

type attachmentResult struct {
	Attachment *service.Attachment `json:"attachment"`
}

// taskResult decodes either a bare task or a {"task": ...} envelope.
type taskResult struct {
	task service.Task
}

func (r *taskResult) UnmarshalJSON(data []byte) error {
	var env struct {
		Task json.RawMessage `json:"task"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if len(env.Task) > 0 && !bytes.Equal(env.Task, []byte("null")) {
		return json.Unmarshal(env.Task, &r.task)
	}
	return json.Unmarshal(data, &r.task)
}

// errorBody is the JSON error shape returned by the backend.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func encodeRequest(_ context.Context, r *http.Request, request interface{}) error {
	switch req := request.(type) {
	case nil:
		return nil
	case service.FileUpload:
		setBody(r, req.Data)
		r.Header.Set("Content-Type", req.ContentType)
		return nil
	default:
		b, err := json.Marshal(req)
		if err != nil {
			return err
		}
		setBody(r, b)
		r.Header.Set("Content-Type", "application/json; charset=utf-8")
		return nil
	}
}

// setBody installs a replayable body with a known length, so the request
// is not sent chunked (pre-signed storage URLs reject chunked uploads).
func setBody(r *http.Request, b []byte) {
	r.ContentLength = int64(len(b))
	r.Body = io.NopCloser(bytes.NewReader(b))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

func decodeResponse(op string, into interface{}, rejectable bool) httptransport.DecodeResponseFunc {
	return func(_ context.Context, resp *http.Response) (interface{}, error) {
		if err := checkResponse(op, resp, rejectable); err != nil {
			return nil, err
		}
		if into == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, nil
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &service.Error{Kind: service.ErrService, Op: op, Status: resp.StatusCode, Err: err}
		}
		if err := json.Unmarshal(body, into); err != nil {
			return nil, &service.Error{Kind: service.ErrMalformed, Op: op, Status: resp.StatusCode, Err: err}
		}
		return into, nil
	}
}

// checkResponse maps a non-2xx response to a typed failure.
func checkResponse(op string, resp *http.Response, rejectable bool) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body = bytes.TrimSpace(body)

	e := &service.Error{
		Op:      op,
		Status:  resp.StatusCode,
		Message: errorMessage(body, resp.StatusCode),
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		e.Kind = service.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		e.Kind = service.ErrNotFound
	case rejectable && resp.StatusCode >= 400 && resp.StatusCode < 500 && len(body) > 0:
		e.Kind = service.ErrValidation
	default:
		e.Kind = service.ErrService
	}
	return e
}

// errorMessage extracts a readable message from an error response body.
func errorMessage(body []byte, status int) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	if len(body) > 0 && !bytes.HasPrefix(body, []byte("{")) && !bytes.HasPrefix(body, []byte("<")) {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return msg
	}
	return strings.ToLower(http.StatusText(status))
}
