// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxFileSize is the largest file accepted for inline files and uploads.
const MaxFileSize = 10 << 20

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority parses a priority name (case-insensitive, trimmed).
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}

// Status is the progress state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus parses a status name. "in-progress" and "in_progress" are
// accepted for "in progress" so the value can be typed without quoting.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return st, nil
}

// DateLayout is the wire and display format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// NewDate returns the date part of t in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "2006-01-02" or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date: %s", s)
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "2006-01-02".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "2006-01-02", an RFC 3339 timestamp, "" or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task represents a single task owned by one user.
type Task struct {
	ID          string    `json:"task_id"`
	UserID      string    `json:"userId,omitempty"`
	UserEmail   string    `json:"userEmail,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	DueDate     Date      `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Single attachment reference; empty when the task has no file.
	AttachmentID  string `json:"attachment_id,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	FileURL       string `json:"file_url,omitempty"`
	SignedFileURL string `json:"signed_file_url,omitempty"`
}

// HasAttachment reports whether the task references a file.
func (t Task) HasAttachment() bool {
	return t.FileName != "" || t.FileURL != ""
}

// DownloadURL returns the time-limited URL when present, else the plain one.
func (t Task) DownloadURL() string {
	if t.SignedFileURL != "" {
		return t.SignedFileURL
	}
	return t.FileURL
}

// WithAttachment returns a copy of t referencing a.
func (t Task) WithAttachment(a Attachment) Task {
	t.AttachmentID = a.ID
	t.FileName = a.FileName
	t.FileURL = a.FileURL
	t.SignedFileURL = ""
	return t
}

// WithoutAttachment returns a copy of t with the attachment reference cleared.
func (t Task) WithoutAttachment() Task {
	t.AttachmentID = ""
	t.FileName = ""
	t.FileURL = ""
	t.SignedFileURL = ""
	return t
}

// Attachment is a file confirmed by the backend for a task.
type Attachment struct {
	ID         string    `json:"attachment_id"`
	TaskID     string    `json:"task_id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	FileType   string    `json:"file_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// InlineFile is a file embedded in a create or update payload.
type InlineFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Content is a base64 data URL ("data:<type>;base64,<payload>").
	Content string `json:"content"`
}

// NewInlineFile encodes data as a data URL.
func NewInlineFile(name, contentType string, data []byte) (*InlineFile, error) {
	if len(data) > MaxFileSize {
		return nil, &Error{Kind: ErrValidation, Op: "file", Message: "file exceeds the size limit"}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &InlineFile{
		Name:    name,
		Type:    contentType,
		Content: "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// FileUpload is a file sent through the attachment upload flow.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// TaskInput is the payload for creating a task.
type TaskInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    Priority    `json:"priority"`
	Status      Status      `json:"status,omitempty"`
	DueDate     Date        `json:"due_date"`
	Email       string      `json:"email,omitempty"`
	File        *InlineFile `json:"file,omitempty"`
}

// Validate checks the fields the backend requires.
func (in TaskInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return &Error{Kind: ErrValidation, Op: "CreateTask", Message: "title required"}
	case !in.Priority.Valid():
		return &Error{Kind: ErrValidation, Op: "CreateTask", Message: fmt.Sprintf("invalid priority: %q", in.Priority)}
	case in.DueDate.IsZero():
		return &Error{Kind: ErrValidation, Op: "CreateTask", Message: "due date required"}
	case in.Status != "" && !in.Status.Valid():
		return &Error{Kind: ErrValidation, Op: "CreateTask", Message: fmt.Sprintf("invalid status: %q", in.Status)}
	}
	return nil
}

// FileChange is the tri-state file field of a TaskPatch.
type FileChange int

const (
	// FileKeep omits the field; the server leaves the attachment as is.
	FileKeep FileChange = iota
	// FileRemove sends an explicit null; the server removes the attachment.
	FileRemove
	// FileReplace sends Patch.File as the new attachment.
	FileReplace
)

func (c FileChange) String() string {
	switch c {
	case FileRemove:
		return "remove"
	case FileReplace:
		return "replace"
	}
	return "keep"
}

// TaskPatch is a partial update. Nil fields are omitted from the payload.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Status      *Status
	DueDate     *Date

	FileChange FileChange
	File       *InlineFile
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && p.DueDate == nil && p.FileChange == FileKeep
}

// Validate checks the fields that are set.
func (p TaskPatch) Validate() error {
	switch {
	case p.Title != nil && strings.TrimSpace(*p.Title) == "":
		return &Error{Kind: ErrValidation, Op: "UpdateTask", Message: "title must not be empty"}
	case p.Priority != nil && !p.Priority.Valid():
		return &Error{Kind: ErrValidation, Op: "UpdateTask", Message: fmt.Sprintf("invalid priority: %q", *p.Priority)}
	case p.Status != nil && !p.Status.Valid():
		return &Error{Kind: ErrValidation, Op: "UpdateTask", Message: fmt.Sprintf("invalid status: %q", *p.Status)}
	case p.DueDate != nil && p.DueDate.IsZero():
		return &Error{Kind: ErrValidation, Op: "UpdateTask", Message: "due date must not be empty"}
	case p.FileChange == FileReplace && p.File == nil:
		return &Error{Kind: ErrValidation, Op: "UpdateTask", Message: "replacement file missing"}
	}
	return nil
}

// MarshalJSON encodes only the fields that are set. A removed file is
// encoded as "file": null, which differs from leaving the field out.
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{})
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Priority != nil {
		m["priority"] = *p.Priority
	}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	if p.DueDate != nil {
		m["due_date"] = *p.DueDate
	}
	switch p.FileChange {
	case FileRemove:
		m["file"] = nil
	case FileReplace:
		m["file"] = p.File
	}
	return json.Marshal(m)
}

// Apply returns t with the patch's field changes applied. Attachment
// changes are not reflected since the server assigns the file URLs.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	return t
}
