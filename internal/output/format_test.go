package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"taskmate/internal/service"
	"taskmate/internal/store"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func day(offset int) service.Date {
	return service.NewDate(now.AddDate(0, 0, offset))
}

func TestFormatTask(t *testing.T) {
	var buf bytes.Buffer
	FormatTask(&buf, service.Task{
		ID:       "0b6f2c1e-aaaa-bbbb",
		Title:    "Ship\nrelease",
		Priority: service.PriorityHigh,
		Status:   service.StatusInProgress,
		DueDate:  day(0),
		FileName: "notes.txt",
	})

	expected := "0b6f2c1e  high    in progress  2024-03-10  Ship release +file\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFormatTask_NoDueUntitled(t *testing.T) {
	var buf bytes.Buffer
	FormatTask(&buf, service.Task{ID: "t1", Title: "  ", Priority: service.PriorityLow, Status: service.StatusDone})

	expected := "t1        low     done         -           (untitled)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFormatTasks_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatTasks(&buf, nil)
	if buf.String() != "no tasks found\n" {
		t.Errorf("expected %q, got %q", "no tasks found\n", buf.String())
	}
}

func TestFormatHeading_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	FormatHeading(&buf, "Dashboard")
	if buf.String() != "Dashboard\n" {
		t.Errorf("expected plain heading, got %q", buf.String())
	}
}

func TestFormatTaskDetail(t *testing.T) {
	var buf bytes.Buffer
	FormatTaskDetail(&buf, service.Task{
		ID:            "t1",
		Title:         "Report",
		Description:   "line one\nline two",
		Priority:      service.PriorityMedium,
		Status:        service.StatusPending,
		DueDate:       day(1),
		FileName:      "report.pdf",
		FileURL:       "https://files.example.test/report.pdf",
		SignedFileURL: "https://files.example.test/report.pdf?sig=abc",
	}, now)

	expected := "Report\n" +
		"ID:         t1\n" +
		"Status:     pending\n" +
		"Priority:   medium\n" +
		"Due:        2024-03-11 (tomorrow)\n" +
		"Attachment: report.pdf\n" +
		"URL:        https://files.example.test/report.pdf?sig=abc\n" +
		"\n" +
		"  line one\n" +
		"  line two\n"
	if buf.String() != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}

func TestRelativeDay(t *testing.T) {
	tests := []struct {
		offset int
		want   string
	}{
		{0, "today"},
		{1, "tomorrow"},
		{-1, "yesterday"},
	}
	for _, tt := range tests {
		if got := RelativeDay(day(tt.offset), now); got != tt.want {
			t.Errorf("RelativeDay(%d) = %q, want %q", tt.offset, got, tt.want)
		}
	}
	if got := RelativeDay(day(10), now); !strings.HasSuffix(got, "from now") {
		t.Errorf("expected future description, got %q", got)
	}
	if got := RelativeDay(day(-10), now); !strings.HasSuffix(got, "ago") {
		t.Errorf("expected past description, got %q", got)
	}
}

func TestFormatDashboard(t *testing.T) {
	tasks := []service.Task{
		{ID: "a", Title: "Alpha", Priority: service.PriorityHigh, Status: service.StatusPending, DueDate: day(2)},
		{ID: "b", Title: "Beta", Priority: service.PriorityLow, Status: service.StatusDone, DueDate: day(30)},
	}
	var buf bytes.Buffer
	FormatDashboard(&buf, store.Summarize(tasks, now), now)

	got := buf.String()
	for _, want := range []string{
		"Dashboard\n",
		"2 tasks, 1 high priority, 1 done\n",
		"a         2024-03-12  Alpha (",
		"High priority\n",
		"Recent\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected dashboard to contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatDashboard_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatDashboard(&buf, store.Summarize(nil, now), now)

	got := buf.String()
	for _, want := range []string{
		"0 tasks, 0 high priority, 0 done\n",
		"no upcoming deadlines in the next 3 days\n",
		"no high priority tasks\n",
		"no tasks found\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected dashboard to contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatAttachment(t *testing.T) {
	var buf bytes.Buffer
	FormatAttachment(&buf, service.Attachment{FileName: "a.txt"}, 2048)
	if buf.String() != "attached a.txt (2.0 kB)\n" {
		t.Errorf("expected humanized size, got %q", buf.String())
	}
}
