package handler

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
	"github.com/dukerupert/kinfolk/internal/taskstatus"
)

type taskFixture struct {
	h       *TaskHandler
	hub     *recordingHub
	members *store.FamilyMemberStore
}

func newTaskFixture(t *testing.T) taskFixture {
	t.Helper()
	db := setupHandlerDB(t)
	members := store.NewFamilyMemberStore(db)
	hub := &recordingHub{}
	h := NewTaskHandler(store.NewTaskStore(db), members, hub, time.UTC, testLogger())
	h.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return taskFixture{h: h, hub: hub, members: members}
}

func createTask(t *testing.T, h *TaskHandler, body string) taskstatus.TaskWithStatus {
	t.Helper()
	rec := call(t, h.Create, "POST", "/api/tasks", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[taskstatus.TaskWithStatus](t, rec)
}

func TestTaskCreateValidation(t *testing.T) {
	f := newTaskFixture(t)
	archived, _ := f.members.Create("Старый", model.RoleChild, "#000000", "")
	f.members.SetArchived(archived.ID, true)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"points":5}`},
		{"negative points", `{"title":"x","points":-1}`},
		{"bad priority", `{"title":"x","priority":"urgent"}`},
		{"bad due date", `{"title":"x","due_date":"10.03.2026"}`},
		{"unknown assignee", `{"title":"x","assignee_id":999}`},
		{"archived assignee", `{"title":"x","assignee_id":` + strconv.FormatInt(archived.ID, 10) + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, f.h.Create, "POST", "/api/tasks", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTaskStatusAnnotations(t *testing.T) {
	f := newTaskFixture(t)

	tests := []struct {
		body string
		want taskstatus.Status
	}{
		{`{"title":"вчера","due_date":"2026-03-09"}`, taskstatus.StatusOverdue},
		{`{"title":"сегодня","due_date":"2026-03-10"}`, taskstatus.StatusDueToday},
		{`{"title":"завтра","due_date":"2026-03-11"}`, taskstatus.StatusPending},
		{`{"title":"без срока"}`, taskstatus.StatusPending},
	}
	for _, tt := range tests {
		got := createTask(t, f.h, tt.body)
		if got.Status != tt.want {
			t.Errorf("%s: status = %s, want %s", got.Title, got.Status, tt.want)
		}
		if got.Priority != model.PriorityMedium {
			t.Errorf("%s: priority = %s, want default medium", got.Title, got.Priority)
		}
	}

	list := decodeBody[map[string][]taskstatus.TaskWithStatus](t, call(t, f.h.List, "GET", "/api/tasks", ""))
	if len(list["tasks"]) != len(tests) {
		t.Errorf("listed %d tasks, want %d", len(list["tasks"]), len(tests))
	}
}

func TestTaskListFilters(t *testing.T) {
	f := newTaskFixture(t)
	m, _ := f.members.Create("Петя", model.RoleChild, "#000000", "")
	mid := strconv.FormatInt(m.ID, 10)

	createTask(t, f.h, `{"title":"посуда","assignee_id":`+mid+`,"category":"кухня"}`)
	createTask(t, f.h, `{"title":"пылесос","category":"уборка"}`)

	tests := []struct {
		query string
		want  int
		code  int
	}{
		{"", 2, http.StatusOK},
		{"?assignee_id=" + mid, 1, http.StatusOK},
		{"?category=уборка", 1, http.StatusOK},
		{"?completed=true", 0, http.StatusOK},
		{"?completed=maybe", 0, http.StatusBadRequest},
		{"?assignee_id=x", 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := call(t, f.h.List, "GET", "/api/tasks"+tt.query, "")
		if rec.Code != tt.code {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		if got := len(decodeBody[map[string][]taskstatus.TaskWithStatus](t, rec)["tasks"]); got != tt.want {
			t.Errorf("%q: %d tasks, want %d", tt.query, got, tt.want)
		}
	}
}

func TestTaskToggleAwardsPointsOnce(t *testing.T) {
	f := newTaskFixture(t)
	m, _ := f.members.Create("Петя", model.RoleChild, "#000000", "")
	task := createTask(t, f.h, `{"title":"мусор","points":120,"assignee_id":`+strconv.FormatInt(m.ID, 10)+`}`)
	id := strconv.FormatInt(task.ID, 10)

	type toggleResponse struct {
		Task          taskstatus.TaskWithStatus `json:"task"`
		PointsAwarded int                       `json:"points_awarded"`
	}

	steps := []struct {
		body          string
		wantCompleted bool
		wantAwarded   int
	}{
		{"", true, 120},
		{"", false, 0},
		{`{"completed":true}`, true, 0},
		{`{"completed":true}`, true, 0},
	}
	for i, s := range steps {
		rec := call(t, f.h.Toggle, "POST", "/api/tasks/"+id+"/toggle", s.body, "id", id)
		if rec.Code != http.StatusOK {
			t.Fatalf("step %d: status = %d: %s", i, rec.Code, rec.Body.String())
		}
		resp := decodeBody[toggleResponse](t, rec)
		if resp.Task.Completed != s.wantCompleted || resp.PointsAwarded != s.wantAwarded {
			t.Errorf("step %d: completed=%v awarded=%d, want %v %d",
				i, resp.Task.Completed, resp.PointsAwarded, s.wantCompleted, s.wantAwarded)
		}
	}

	got, _ := f.members.GetByID(m.ID)
	if got.Points != 120 || got.Level != 2 {
		t.Errorf("member points/level = %d/%d, want 120/2", got.Points, got.Level)
	}

	awards := 0
	for _, typ := range f.hub.types() {
		if typ == "family_member_points_awarded" {
			awards++
		}
	}
	if awards != 1 {
		t.Errorf("points_awarded broadcasts = %d, want 1", awards)
	}
}

func TestTaskUpdateAndDelete(t *testing.T) {
	f := newTaskFixture(t)
	task := createTask(t, f.h, `{"title":"старое"}`)
	id := strconv.FormatInt(task.ID, 10)

	rec := call(t, f.h.Update, "PUT", "/api/tasks/"+id, `{"title":"новое","priority":"high"}`, "id", id)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	got := decodeBody[taskstatus.TaskWithStatus](t, rec)
	if got.Title != "новое" || got.Priority != model.PriorityHigh {
		t.Errorf("updated = %+v", got.Task)
	}

	if rec := call(t, f.h.Delete, "DELETE", "/", "", "id", id); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := call(t, f.h.Get, "GET", "/", "", "id", id); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
	if rec := call(t, f.h.Toggle, "POST", "/", "", "id", id); rec.Code != http.StatusNotFound {
		t.Errorf("toggle after delete status = %d", rec.Code)
	}
}

// vanishingTasks deletes the row just before updating it.
type vanishingTasks struct {
	*store.TaskStore
}

func (v vanishingTasks) Update(id int64, p store.TaskParams) (*model.Task, error) {
	if err := v.TaskStore.Delete(id); err != nil {
		return nil, err
	}
	return v.TaskStore.Update(id, p)
}

func TestTaskUpdateDeletedConcurrently(t *testing.T) {
	db := setupHandlerDB(t)
	hub := &recordingHub{}
	h := NewTaskHandler(vanishingTasks{store.NewTaskStore(db)}, store.NewFamilyMemberStore(db), hub, time.UTC, testLogger())

	task := createTask(t, h, `{"title":"Полить цветы"}`)
	rec := call(t, h.Update, "PUT", "/", `{"title":"Полить кактус"}`, "id", strconv.FormatInt(task.ID, 10))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (%s)", rec.Code, rec.Body.String())
	}
	if types := hub.types(); len(types) != 1 || types[0] != "task_created" {
		t.Errorf("broadcasts = %v, want only task_created", types)
	}
}
