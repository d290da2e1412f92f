package store

import (
	"sort"
	"time"

	"taskmate/internal/service"
)

const (
	// UpcomingDays is how far ahead a due date counts as upcoming.
	UpcomingDays = 3

	// RecentCount is the number of tasks shown as recent.
	RecentCount = 5
)

// Summary is the dashboard digest of a task list.
type Summary struct {
	Total        int
	HighPriority int
	Done         int

	// Upcoming holds tasks due from today through UpcomingDays ahead,
	// earliest first.
	Upcoming []service.Task

	// High holds the high-priority tasks in backend order.
	High []service.Task

	// Recent holds the first RecentCount tasks in backend order.
	Recent []service.Task
}

// Summarize computes the dashboard digest for tasks as of today.
func Summarize(tasks []service.Task, today time.Time) Summary {
	s := Summary{
		Total:    len(tasks),
		Upcoming: []service.Task{},
		High:     []service.Task{},
		Recent:   []service.Task{},
	}

	start := service.NewDate(today).Time
	end := start.AddDate(0, 0, UpcomingDays)

	for _, t := range tasks {
		if t.Priority == service.PriorityHigh {
			s.HighPriority++
			s.High = append(s.High, t)
		}
		if t.Status == service.StatusDone {
			s.Done++
		}
		if t.DueDate.IsZero() {
			continue
		}
		due := t.DueDate.Time
		if !due.Before(start) && !due.After(end) {
			s.Upcoming = append(s.Upcoming, t)
		}
	}

	sort.SliceStable(s.Upcoming, func(i, j int) bool {
		return s.Upcoming[i].DueDate.Before(s.Upcoming[j].DueDate.Time)
	})

	n := len(tasks)
	if n > RecentCount {
		n = RecentCount
	}
	s.Recent = append(s.Recent, tasks[:n]...)
	return s
}

// Dashboard is the dashboard view: the full task list plus its summary.
type Dashboard struct {
	List
}

// NewDashboard returns an empty dashboard view.
func NewDashboard() *Dashboard {
	return &Dashboard{}
}

// Summary computes the digest of the held tasks.
func (d *Dashboard) Summary(today time.Time) Summary {
	return Summarize(d.All(), today)
}
