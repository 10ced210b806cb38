package store

import (
	"testing"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

func TestEventCreateWithParticipants(t *testing.T) {
	db := setupTestDB(t)
	members := NewFamilyMemberStore(db)
	s := NewEventStore(db)

	a, _ := members.Create("A", model.RoleParent, "#000000", "")
	b, _ := members.Create("B", model.RoleChild, "#000000", "")

	start := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	e, err := s.Create(EventParams{
		Title:        "Ужин",
		Category:     "семья",
		Date:         start,
		EndDate:      &end,
		Location:     "Дом",
		Participants: []int64{b.ID, a.ID, a.ID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Title != "Ужин" || !e.Date.Equal(start) || e.EndDate == nil || !e.EndDate.Equal(end) {
		t.Errorf("event = %+v", e)
	}
	if len(e.Participants) != 2 || e.Participants[0] != a.ID || e.Participants[1] != b.ID {
		t.Errorf("participants = %v", e.Participants)
	}

	missing, err := s.GetByID(999)
	if err != nil || missing != nil {
		t.Errorf("missing = %v, %v", missing, err)
	}
}

func TestEventUpdateReplacesParticipants(t *testing.T) {
	db := setupTestDB(t)
	members := NewFamilyMemberStore(db)
	s := NewEventStore(db)

	a, _ := members.Create("A", model.RoleParent, "#000000", "")
	b, _ := members.Create("B", model.RoleChild, "#000000", "")

	start := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	e, _ := s.Create(EventParams{Title: "x", Date: start, Participants: []int64{a.ID}})

	updated, err := s.Update(e.ID, EventParams{Title: "y", Date: start, AllDay: true, Participants: []int64{b.ID}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "y" || !updated.AllDay {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.Participants) != 1 || updated.Participants[0] != b.ID {
		t.Errorf("participants = %v", updated.Participants)
	}

	missing, err := s.Update(999, EventParams{Title: "z", Date: start})
	if err != nil || missing != nil {
		t.Errorf("update missing = %v, %v", missing, err)
	}
}

func TestEventListByDateRange(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	day := func(d int) time.Time { return time.Date(2026, 2, d, 10, 0, 0, 0, time.UTC) }
	s.Create(EventParams{Title: "before", Date: day(1)})
	s.Create(EventParams{Title: "inside", Date: day(10)})
	s.Create(EventParams{Title: "after", Date: day(20)})
	s.Create(EventParams{Title: "weekly", Date: day(2), RecurrenceRule: "FREQ=WEEKLY"})

	events, err := s.ListByDateRange(day(5), day(15))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := map[string]bool{}
	for _, e := range events {
		got[e.Title] = true
	}
	if len(events) != 2 || !got["inside"] || !got["weekly"] {
		t.Errorf("events = %v", got)
	}
}

func TestEventDeleteCascadesParticipants(t *testing.T) {
	db := setupTestDB(t)
	members := NewFamilyMemberStore(db)
	s := NewEventStore(db)

	a, _ := members.Create("A", model.RoleParent, "#000000", "")
	e, _ := s.Create(EventParams{Title: "x", Date: time.Now(), Participants: []int64{a.ID}})

	if err := s.Delete(e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int
	db.QueryRow("SELECT COUNT(*) FROM event_participants").Scan(&n)
	if n != 0 {
		t.Errorf("participants left = %d", n)
	}

	all, _ := s.ListAll()
	if len(all) != 0 {
		t.Errorf("events left = %d", len(all))
	}
}
