// Package taskstatus derives the display status of a task from its
// completion flag and due date.
package taskstatus

import (
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusDueToday  Status = "due_today"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
)

// TaskWithStatus is a task annotated with its computed status.
type TaskWithStatus struct {
	model.Task
	Status Status `json:"status"`
}

// Compute returns the status of task on the calendar day of now. Due dates are
// compared by day in now's location, so a task due earlier today is not overdue.
func Compute(task model.Task, now time.Time) Status {
	if task.Completed {
		return StatusCompleted
	}
	if task.DueDate == nil || task.DueDate.IsZero() {
		return StatusPending
	}

	today := startOfDay(now)
	due := startOfDay(task.DueDate.In(now.Location()))
	switch {
	case due.Before(today):
		return StatusOverdue
	case due.Equal(today):
		return StatusDueToday
	}
	return StatusPending
}

// Annotate computes the status of each task.
func Annotate(tasks []model.Task, now time.Time) []TaskWithStatus {
	out := make([]TaskWithStatus, len(tasks))
	for i, t := range tasks {
		out[i] = TaskWithStatus{Task: t, Status: Compute(t, now)}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
