// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"taskmate/internal/service"
	"taskmate/internal/store"
)

const (
	// ShortIDLen is the number of id characters shown in task lines.
	ShortIDLen = 8

	// TimeLayout is the display format of timestamps.
	TimeLayout = "2006-01-02 15:04"
)

// ShortID returns the leading part of id used in task lines.
func ShortID(id string) string {
	if len(id) <= ShortIDLen {
		return id
	}
	return id[:ShortIDLen]
}

// FormatTask formats a task line.
// Format: "{ID:<8}  {PRIORITY:<6}  {STATUS:<11}  {DUE:<10}  {TITLE}[ +file]\n"
func FormatTask(w io.Writer, task service.Task) {
	due := task.DueDate.String()
	if due == "" {
		due = "-"
	}
	line := fmt.Sprintf("%-8s  %-6s  %-11s  %-10s  %s", ShortID(task.ID), task.Priority, task.Status, due, normalizeTitle(task.Title))
	if task.HasAttachment() {
		line += " +file"
	}
	fmt.Fprintln(w, line)
}

// FormatTasks formats task lines, or "no tasks found" when there are none.
func FormatTasks(w io.Writer, tasks []service.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks found")
		return
	}
	for _, t := range tasks {
		FormatTask(w, t)
	}
}

// FormatHeading formats a section heading. Styling is applied only when w
// is a terminal.
func FormatHeading(w io.Writer, title string) {
	style := lipgloss.NewRenderer(w).NewStyle().Bold(true)
	fmt.Fprintln(w, style.Render(title))
}

// FormatTaskDetail formats a single task with all fields.
func FormatTaskDetail(w io.Writer, task service.Task, now time.Time) {
	FormatHeading(w, normalizeTitle(task.Title))
	field(w, "ID", task.ID)
	field(w, "Status", string(task.Status))
	field(w, "Priority", string(task.Priority))
	if !task.DueDate.IsZero() {
		field(w, "Due", task.DueDate.String()+" ("+RelativeDay(task.DueDate, now)+")")
	}
	if !task.CreatedAt.IsZero() {
		field(w, "Created", task.CreatedAt.Local().Format(TimeLayout))
	}
	if !task.UpdatedAt.IsZero() {
		field(w, "Updated", task.UpdatedAt.Local().Format(TimeLayout))
	}
	if task.UserEmail != "" {
		field(w, "Owner", task.UserEmail)
	}
	if task.HasAttachment() {
		name := task.FileName
		if name == "" {
			name = "(unnamed)"
		}
		field(w, "Attachment", name)
		if u := task.DownloadURL(); u != "" {
			field(w, "URL", u)
		}
	}
	if desc := strings.TrimSpace(task.Description); desc != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(desc, "\n") {
			fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\r"))
		}
	}
}

// FormatAttachment formats a confirmed upload.
func FormatAttachment(w io.Writer, a service.Attachment, size int) {
	fmt.Fprintf(w, "attached %s (%s)\n", a.FileName, humanize.Bytes(uint64(size)))
}

// FormatDashboard formats the dashboard digest.
func FormatDashboard(w io.Writer, s store.Summary, now time.Time) {
	FormatHeading(w, "Dashboard")
	fmt.Fprintf(w, "%d tasks, %d high priority, %d done\n", s.Total, s.HighPriority, s.Done)

	fmt.Fprintln(w)
	FormatHeading(w, fmt.Sprintf("Upcoming (next %d days)", store.UpcomingDays))
	if len(s.Upcoming) == 0 {
		fmt.Fprintf(w, "no upcoming deadlines in the next %d days\n", store.UpcomingDays)
	}
	for _, t := range s.Upcoming {
		fmt.Fprintf(w, "%-8s  %-10s  %s (%s)\n", ShortID(t.ID), t.DueDate, normalizeTitle(t.Title), RelativeDay(t.DueDate, now))
	}

	fmt.Fprintln(w)
	FormatHeading(w, "High priority")
	if len(s.High) == 0 {
		fmt.Fprintln(w, "no high priority tasks")
	}
	for _, t := range s.High {
		FormatTask(w, t)
	}

	fmt.Fprintln(w)
	FormatHeading(w, "Recent")
	FormatTasks(w, s.Recent)
}

// RelativeDay describes d relative to the calendar day of now.
func RelativeDay(d service.Date, now time.Time) string {
	today := service.NewDate(now)
	switch days := int(d.Sub(today.Time).Hours() / 24); days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	case -1:
		return "yesterday"
	}
	return humanize.RelTime(d.Time, today.Time, "ago", "from now")
}

func field(w io.Writer, name, value string) {
	fmt.Fprintf(w, "%-11s %s\n", name+":", value)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
