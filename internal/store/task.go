package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

// TaskParams holds the editable fields of a task.
type TaskParams struct {
	Title       string
	Description string
	AssigneeID  *int64
	Points      int
	Priority    model.Priority
	Category    string
	DueDate     *time.Time
}

// TaskFilter narrows List. Nil fields are ignored.
type TaskFilter struct {
	AssigneeID *int64
	Completed  *bool
	Category   string
}

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, title, description, assignee_id, completed, completed_at, points, priority, category, due_date, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var assigneeID sql.NullInt64
	var completed int
	var completedAt, dueDate sql.NullTime
	var priority string

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &assigneeID, &completed, &completedAt,
		&t.Points, &priority, &t.Category, &dueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	t.Priority = model.Priority(priority)
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.Int64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return &t, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func (s *TaskStore) Create(p TaskParams) (*model.Task, error) {
	if p.Priority == "" {
		p.Priority = model.PriorityMedium
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (title, description, assignee_id, points, priority, category, due_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, nullInt64(p.AssigneeID), p.Points, string(p.Priority), p.Category, nullTime(p.DueDate), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns tasks matching f, open tasks first, newest first.
func (s *TaskStore) List(f TaskFilter) ([]model.Task, error) {
	var where []string
	var args []any
	if f.AssigneeID != nil {
		where = append(where, "assignee_id = ?")
		args = append(args, *f.AssigneeID)
	}
	if f.Completed != nil {
		where = append(where, "completed = ?")
		if *f.Completed {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}

	query := `SELECT ` + taskCols + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY completed ASC, created_at DESC, id DESC`

	return s.query(query, args...)
}

// ListAll returns every task in creation order.
func (s *TaskStore) ListAll() ([]model.Task, error) {
	return s.query(`SELECT ` + taskCols + ` FROM tasks ORDER BY created_at ASC, id ASC`)
}

func (s *TaskStore) query(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, p TaskParams) (*model.Task, error) {
	if p.Priority == "" {
		p.Priority = model.PriorityMedium
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, assignee_id = ?, points = ?, priority = ?, category = ?, due_date = ?
		 WHERE id = ?`,
		p.Title, p.Description, nullInt64(p.AssigneeID), p.Points, string(p.Priority), p.Category, nullTime(p.DueDate), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// SetCompleted marks a task done or not done. The first completion of a task
// with an assignee credits its points to that member and recomputes their
// level. Points are never taken back, and a task pays out at most once.
// It returns the updated task and the number of points awarded by this call.
func (s *TaskStore) SetCompleted(id int64, completed bool, at time.Time) (*model.Task, int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var points, awarded int
	var assigneeID sql.NullInt64
	err = tx.QueryRow(
		`SELECT points, points_awarded, assignee_id FROM tasks WHERE id = ?`, id,
	).Scan(&points, &awarded, &assigneeID)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load task: %w", err)
	}

	var credited int
	if completed {
		if _, err := tx.Exec(
			`UPDATE tasks SET completed = 1, completed_at = ? WHERE id = ?`, at.UTC(), id,
		); err != nil {
			return nil, 0, fmt.Errorf("complete task: %w", err)
		}

		if awarded == 0 && assigneeID.Valid {
			if err := awardPoints(tx, assigneeID.Int64, points); err != nil {
				return nil, 0, err
			}
			if _, err := tx.Exec(`UPDATE tasks SET points_awarded = 1 WHERE id = ?`, id); err != nil {
				return nil, 0, fmt.Errorf("mark points awarded: %w", err)
			}
			credited = points
		}
	} else {
		if _, err := tx.Exec(
			`UPDATE tasks SET completed = 0, completed_at = NULL WHERE id = ?`, id,
		); err != nil {
			return nil, 0, fmt.Errorf("reopen task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}

	t, err := s.GetByID(id)
	if err != nil {
		return nil, 0, err
	}
	return t, credited, nil
}

func awardPoints(tx *sql.Tx, memberID int64, points int) error {
	var current int
	err := tx.QueryRow(`SELECT points FROM family_members WHERE id = ?`, memberID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("award points: member %d not found", memberID)
	}
	if err != nil {
		return fmt.Errorf("load member points: %w", err)
	}

	total := current + points
	_, err = tx.Exec(
		`UPDATE family_members SET points = ?, level = ? WHERE id = ?`,
		total, model.LevelForPoints(total), memberID,
	)
	if err != nil {
		return fmt.Errorf("award points: %w", err)
	}
	return nil
}
