package taskstatus

import (
	"testing"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

func TestCompute(t *testing.T) {
	now := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)
	at := func(d, h int) *time.Time {
		v := time.Date(2026, 2, d, h, 0, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name string
		task model.Task
		want Status
	}{
		{"no due date", model.Task{}, StatusPending},
		{"completed wins over overdue", model.Task{Completed: true, DueDate: at(1, 0)}, StatusCompleted},
		{"due yesterday", model.Task{DueDate: at(4, 23)}, StatusOverdue},
		{"due earlier today", model.Task{DueDate: at(5, 8)}, StatusDueToday},
		{"due later today", model.Task{DueDate: at(5, 20)}, StatusDueToday},
		{"due tomorrow", model.Task{DueDate: at(6, 0)}, StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.task, now); got != tt.want {
				t.Errorf("Compute = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeUsesNowLocation(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	// 22:00 UTC on Feb 4 is already Feb 5 in Moscow.
	due := time.Date(2026, 2, 4, 22, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 5, 10, 0, 0, 0, moscow)

	if got := Compute(model.Task{DueDate: &due}, now); got != StatusDueToday {
		t.Errorf("Compute = %q, want %q", got, StatusDueToday)
	}
}

func TestAnnotate(t *testing.T) {
	now := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{{ID: 1, Completed: true}, {ID: 2}}

	got := Annotate(tasks, now)
	if len(got) != 2 || got[0].Status != StatusCompleted || got[1].Status != StatusPending {
		t.Errorf("Annotate = %+v", got)
	}
	if got[1].ID != 2 {
		t.Error("embedded task fields should be preserved")
	}
}
