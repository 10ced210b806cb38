package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

// EventParams holds the editable fields of a calendar event.
type EventParams struct {
	Title          string
	Description    string
	Category       string
	Date           time.Time
	EndDate        *time.Time
	AllDay         bool
	Location       string
	RecurrenceRule string
	Participants   []int64
}

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, title, description, category, date, end_date, all_day, location, recurrence_rule, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var allDay int
	var endDate sql.NullTime

	err := scanner.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Date, &endDate,
		&allDay, &e.Location, &e.RecurrenceRule, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.AllDay = allDay != 0
	if endDate.Valid {
		e.EndDate = &endDate.Time
	}
	e.Participants = []int64{}
	return &e, nil
}

func (s *EventStore) Create(p EventParams) (*model.CalendarEvent, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO calendar_events (title, description, category, date, end_date, all_day, location, recurrence_rule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, p.Category, p.Date.UTC(), nullTime(p.EndDate), boolInt(p.AllDay), p.Location, p.RecurrenceRule,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := replaceParticipants(tx, id, p.Participants); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM calendar_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}

	events := []model.CalendarEvent{*e}
	if err := s.attachParticipants(events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

// ListAll returns every event ordered by date.
func (s *EventStore) ListAll() ([]model.CalendarEvent, error) {
	return s.query(`SELECT ` + eventCols + ` FROM calendar_events ORDER BY date ASC, id ASC`)
}

// ListByDateRange returns one-off events overlapping [start, end) and every
// recurring event that begins before end. Recurring events must be expanded
// by the caller.
func (s *EventStore) ListByDateRange(start, end time.Time) ([]model.CalendarEvent, error) {
	return s.query(
		`SELECT `+eventCols+` FROM calendar_events
		 WHERE date < ? AND (recurrence_rule != '' OR COALESCE(end_date, date) >= ?)
		 ORDER BY all_day DESC, date ASC, id ASC`,
		end.UTC(), start.UTC(),
	)
}

func (s *EventStore) query(query string, args ...any) ([]model.CalendarEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := s.attachParticipants(events); err != nil {
		return nil, err
	}
	return events, nil
}

// attachParticipants fills Participants for each event with a single query.
func (s *EventStore) attachParticipants(events []model.CalendarEvent) error {
	if len(events) == 0 {
		return nil
	}

	index := make(map[int64]int, len(events))
	placeholders := make([]string, len(events))
	args := make([]any, len(events))
	for i, e := range events {
		index[e.ID] = i
		placeholders[i] = "?"
		args[i] = e.ID
	}

	rows, err := s.db.Query(
		`SELECT event_id, family_member_id FROM event_participants
		 WHERE event_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY event_id, family_member_id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID, memberID int64
		if err := rows.Scan(&eventID, &memberID); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		i := index[eventID]
		events[i].Participants = append(events[i].Participants, memberID)
	}
	return rows.Err()
}

func (s *EventStore) Update(id int64, p EventParams) (*model.CalendarEvent, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE calendar_events
		 SET title = ?, description = ?, category = ?, date = ?, end_date = ?, all_day = ?, location = ?, recurrence_rule = ?
		 WHERE id = ?`,
		p.Title, p.Description, p.Category, p.Date.UTC(), nullTime(p.EndDate), boolInt(p.AllDay), p.Location, p.RecurrenceRule, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}

	if err := replaceParticipants(tx, id, p.Participants); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

func replaceParticipants(tx *sql.Tx, eventID int64, memberIDs []int64) error {
	if _, err := tx.Exec(`DELETE FROM event_participants WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	for _, memberID := range memberIDs {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO event_participants (event_id, family_member_id) VALUES (?, ?)`,
			eventID, memberID,
		)
		if err != nil {
			return fmt.Errorf("insert participant %d: %w", memberID, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
