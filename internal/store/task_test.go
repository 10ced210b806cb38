package store

import (
	"testing"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

func TestTaskCreateDefaults(t *testing.T) {
	s := NewTaskStore(setupTestDB(t))

	task, err := s.Create(TaskParams{Title: "Вынести мусор"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
	if task.Completed || task.CompletedAt != nil {
		t.Error("new task should be open")
	}
	if task.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}

	missing, err := s.GetByID(999)
	if err != nil || missing != nil {
		t.Errorf("missing = %v, %v", missing, err)
	}
}

func TestTaskUpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	members := NewFamilyMemberStore(db)
	s := NewTaskStore(db)

	m, _ := members.Create("A", model.RoleChild, "#000000", "")
	task, _ := s.Create(TaskParams{Title: "old"})

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	updated, err := s.Update(task.ID, TaskParams{
		Title:      "new",
		AssigneeID: &m.ID,
		Points:     20,
		Priority:   model.PriorityHigh,
		Category:   "дом",
		DueDate:    &due,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "new" || updated.Points != 20 || updated.Priority != model.PriorityHigh {
		t.Errorf("updated = %+v", updated)
	}
	if updated.AssigneeID == nil || *updated.AssigneeID != m.ID {
		t.Error("assignee not set")
	}
	if updated.DueDate == nil || !updated.DueDate.Equal(due) {
		t.Errorf("due date = %v", updated.DueDate)
	}

	if err := s.Delete(task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := s.GetByID(task.ID)
	if got != nil {
		t.Error("task should be gone")
	}
}

func TestTaskListFilter(t *testing.T) {
	db := setupTestDB(t)
	members := NewFamilyMemberStore(db)
	s := NewTaskStore(db)

	a, _ := members.Create("A", model.RoleChild, "#000000", "")
	b, _ := members.Create("B", model.RoleChild, "#000000", "")

	t1, _ := s.Create(TaskParams{Title: "1", AssigneeID: &a.ID})
	s.Create(TaskParams{Title: "2", AssigneeID: &b.ID})
	s.Create(TaskParams{Title: "3", AssigneeID: &a.ID, Category: "школа"})
	s.SetCompleted(t1.ID, true, time.Now())

	tests := []struct {
		name   string
		filter TaskFilter
		want   int
	}{
		{"all", TaskFilter{}, 3},
		{"assignee", TaskFilter{AssigneeID: &a.ID}, 2},
		{"completed", TaskFilter{Completed: ptr(true)}, 1},
		{"open for a", TaskFilter{AssigneeID: &a.ID, Completed: ptr(false)}, 1},
		{"category", TaskFilter{Category: "школа"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := s.List(tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(tasks) != tt.want {
				t.Errorf("got %d tasks, want %d", len(tasks), tt.want)
			}
		})
	}

	all, err := s.ListAll()
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[0].Title != "1" {
		t.Errorf("list all = %+v", all)
	}
}

func TestSetCompletedAwardsPointsOnce(t *testing.T) {
	db := setupTestDB(t)
	members := NewFamilyMemberStore(db)
	s := NewTaskStore(db)

	m, _ := members.Create("A", model.RoleChild, "#000000", "")
	task, _ := s.Create(TaskParams{Title: "t", AssigneeID: &m.ID, Points: 60})
	other, _ := s.Create(TaskParams{Title: "u", AssigneeID: &m.ID, Points: 50})

	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	done, awarded, err := s.SetCompleted(task.ID, true, at)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil || !done.CompletedAt.Equal(at) {
		t.Errorf("completed task = %+v", done)
	}
	if awarded != 60 {
		t.Errorf("awarded = %d, want 60", awarded)
	}

	// Reopen and complete again: no further points, none removed.
	reopened, awarded, _ := s.SetCompleted(task.ID, false, at)
	if reopened.Completed || reopened.CompletedAt != nil || awarded != 0 {
		t.Errorf("reopened = %+v, awarded %d", reopened, awarded)
	}
	got, _ := members.GetByID(m.ID)
	if got.Points != 60 {
		t.Errorf("points after reopen = %d, want 60", got.Points)
	}
	_, awarded, _ = s.SetCompleted(task.ID, true, at)
	if awarded != 0 {
		t.Errorf("re-completion awarded %d", awarded)
	}

	s.SetCompleted(other.ID, true, at)
	got, _ = members.GetByID(m.ID)
	if got.Points != 110 || got.Level != 2 {
		t.Errorf("points/level = %d/%d, want 110/2", got.Points, got.Level)
	}
}

func TestSetCompletedUnassignedAndMissing(t *testing.T) {
	s := NewTaskStore(setupTestDB(t))

	task, _ := s.Create(TaskParams{Title: "t", Points: 10})
	done, awarded, err := s.SetCompleted(task.ID, true, time.Now())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed || awarded != 0 {
		t.Errorf("done = %+v, awarded %d", done, awarded)
	}

	missing, _, err := s.SetCompleted(999, true, time.Now())
	if err != nil || missing != nil {
		t.Errorf("missing = %v, %v", missing, err)
	}
}
