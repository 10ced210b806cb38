package analytics

import (
	"fmt"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

type MemberLister interface {
	List(includeArchived bool) ([]model.FamilyMember, error)
}

type TaskLister interface {
	ListAll() ([]model.Task, error)
}

type EventLister interface {
	ListAll() ([]model.CalendarEvent, error)
}

// Service loads the raw collections and builds reports from them.
type Service struct {
	members MemberLister
	tasks   TaskLister
	events  EventLister
	locale  Locale
	now     func() time.Time
}

// NewService creates a Service. Reports are computed in the given location.
func NewService(members MemberLister, tasks TaskLister, events EventLister, locale Locale, tz *time.Location) *Service {
	if tz == nil {
		tz = time.Local
	}
	return &Service{
		members: members,
		tasks:   tasks,
		events:  events,
		locale:  locale,
		now:     func() time.Time { return time.Now().In(tz) },
	}
}

// Locale returns the label language of built reports.
func (s *Service) Locale() Locale {
	return s.locale
}

// Build loads members, tasks and events and computes the report for p.
func (s *Service) Build(p Period) (Report, error) {
	members, err := s.members.List(false)
	if err != nil {
		return Report{}, fmt.Errorf("load members: %w", err)
	}
	tasks, err := s.tasks.ListAll()
	if err != nil {
		return Report{}, fmt.Errorf("load tasks: %w", err)
	}
	events, err := s.events.ListAll()
	if err != nil {
		return Report{}, fmt.Errorf("load events: %w", err)
	}
	return BuildReport(p, s.now(), s.locale, members, tasks, events), nil
}
