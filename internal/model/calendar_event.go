package model

import "time"

type CalendarEvent struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Date           time.Time  `json:"date"`
	EndDate        *time.Time `json:"end_date"`
	AllDay         bool       `json:"all_day"`
	Location       string     `json:"location"`
	RecurrenceRule string     `json:"recurrence_rule"`
	Participants   []int64    `json:"participants"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ActivityTime returns the event date, or now when the date is unset.
func (e CalendarEvent) ActivityTime(now time.Time) (time.Time, bool) {
	if e.Date.IsZero() {
		return now, true
	}
	return e.Date, false
}

// HasParticipant reports whether memberID is among the event's participants.
func (e CalendarEvent) HasParticipant(memberID int64) bool {
	for _, id := range e.Participants {
		if id == memberID {
			return true
		}
	}
	return false
}

// Duration is the span between Date and EndDate, defaulting to one hour
// (or a full day for all-day events).
func (e CalendarEvent) Duration() time.Duration {
	if e.EndDate != nil && e.EndDate.After(e.Date) {
		return e.EndDate.Sub(e.Date)
	}
	if e.AllDay {
		return 24 * time.Hour
	}
	return time.Hour
}

// In returns a copy of e with Date and EndDate expressed in loc, so that
// recurrence weekdays and wall-clock times follow the household zone.
func (e CalendarEvent) In(loc *time.Location) CalendarEvent {
	e.Date = e.Date.In(loc)
	if e.EndDate != nil {
		end := e.EndDate.In(loc)
		e.EndDate = &end
	}
	return e
}

// EventOccurrence is a single concrete instance of a (possibly recurring) event.
type EventOccurrence struct {
	EventID   int64     `json:"event_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	AllDay    bool      `json:"all_day"`
	Recurring bool      `json:"recurring"`
}
