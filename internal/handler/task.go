package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
	"github.com/dukerupert/kinfolk/internal/taskstatus"
	"github.com/dukerupert/kinfolk/internal/websocket"
)

// TaskRepository is the task persistence used by TaskHandler.
type TaskRepository interface {
	Create(p store.TaskParams) (*model.Task, error)
	GetByID(id int64) (*model.Task, error)
	List(f store.TaskFilter) ([]model.Task, error)
	Update(id int64, p store.TaskParams) (*model.Task, error)
	Delete(id int64) error
	SetCompleted(id int64, completed bool, at time.Time) (*model.Task, int, error)
}

type TaskHandler struct {
	notifier
	tasks   TaskRepository
	members *store.FamilyMemberStore
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewTaskHandler(tasks TaskRepository, members *store.FamilyMemberStore, hub Broadcaster, loc *time.Location, logger *slog.Logger) *TaskHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TaskHandler{
		notifier: notifier{hub: hub},
		tasks:    tasks,
		members:  members,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssigneeID  *int64 `json:"assignee_id"`
	Points      int    `json:"points"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	DueDate     string `json:"due_date"`
}

// params validates req and converts it to store parameters. It returns a
// client-facing message on invalid input.
func (h *TaskHandler) params(req taskRequest) (store.TaskParams, string, error) {
	p := store.TaskParams{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		AssigneeID:  req.AssigneeID,
		Points:      req.Points,
		Category:    strings.TrimSpace(req.Category),
	}
	if p.Title == "" {
		return p, "title is required", nil
	}
	if p.Points < 0 {
		return p, "points must not be negative", nil
	}

	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return p, "priority must be low, medium or high", nil
	}
	p.Priority = priority

	if req.DueDate != "" {
		due, err := parseTime(req.DueDate, h.loc)
		if err != nil {
			return p, "due_date must be RFC 3339 or YYYY-MM-DD", nil
		}
		p.DueDate = &due
	}

	if p.AssigneeID != nil {
		m, err := h.members.GetByID(*p.AssigneeID)
		if err != nil {
			return p, "", err
		}
		if m == nil || m.Archived {
			return p, "assignee not found", nil
		}
	}
	return p, "", nil
}

func (h *TaskHandler) today() time.Time {
	return h.now().In(h.loc)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.TaskFilter
	q := r.URL.Query()
	if raw := q.Get("assignee_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assignee_id")
			return
		}
		f.AssigneeID = &id
	}
	completed, err := queryBool(r, "completed")
	if err != nil {
		writeError(w, http.StatusBadRequest, "completed must be a boolean")
		return
	}
	f.Completed = completed
	f.Category = strings.TrimSpace(q.Get("category"))

	tasks, err := h.tasks.List(f)
	if err != nil {
		serverError(w, r, h.logger, "failed to list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": taskstatus.Annotate(tasks, h.today())})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.annotate(task))
}

func (h *TaskHandler) annotate(t *model.Task) taskstatus.TaskWithStatus {
	return taskstatus.TaskWithStatus{Task: *t, Status: taskstatus.Compute(*t, h.today())}
}

func (h *TaskHandler) load(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	task, err := h.tasks.GetByID(id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get task", err)
		return nil, false
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return task, true
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, msg, err := h.params(req)
	if err != nil {
		serverError(w, r, h.logger, "failed to validate task", err)
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.tasks.Create(p)
	if err != nil {
		serverError(w, r, h.logger, "failed to create task", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionCreated, task.ID, nil))
	writeJSON(w, http.StatusCreated, h.annotate(task))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, msg, err := h.params(req)
	if err != nil {
		serverError(w, r, h.logger, "failed to validate task", err)
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.tasks.Update(existing.ID, p)
	if err != nil {
		serverError(w, r, h.logger, "failed to update task", err)
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionUpdated, task.ID, nil))
	writeJSON(w, http.StatusOK, h.annotate(task))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(existing.ID); err != nil {
		serverError(w, r, h.logger, "failed to delete task", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionDeleted, existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips a task's completion. A body of {"completed": bool} sets the
// state explicitly instead. The first completion credits the assignee.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	completed := !existing.Completed
	if r.ContentLength > 0 {
		var req struct {
			Completed *bool `json:"completed"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Completed != nil {
			completed = *req.Completed
		}
	}

	task, awarded, err := h.tasks.SetCompleted(existing.ID, completed, h.now())
	if err != nil {
		serverError(w, r, h.logger, "failed to update task", err)
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionUpdated, task.ID,
		map[string]any{"completed": task.Completed}))
	if awarded > 0 && task.AssigneeID != nil {
		h.broadcast(websocket.NewMessage(websocket.EntityMember, "points_awarded", *task.AssigneeID,
			map[string]any{"points": awarded, "task_id": task.ID}))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task":           h.annotate(task),
		"points_awarded": awarded,
	})
}
