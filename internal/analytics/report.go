package analytics

import (
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

// Summary holds headline figures for the tasks and events inside a report window.
type Summary struct {
	TotalTasks      int            `json:"total_tasks"`
	CompletedTasks  int            `json:"completed_tasks"`
	CompletionRate  float64        `json:"completion_rate"`
	TotalEvents     int            `json:"total_events"`
	PointsAwarded   int            `json:"points_awarded"`
	TasksByCategory map[string]int `json:"tasks_by_category"`
	TasksByPriority map[string]int `json:"tasks_by_priority"`
}

// Report is the full analytics payload for one period.
type Report struct {
	Period        Period           `json:"period"`
	Locale        Locale           `json:"locale"`
	GeneratedAt   time.Time        `json:"generated_at"`
	WindowStart   time.Time        `json:"window_start"`
	WindowEnd     time.Time        `json:"window_end"`
	Buckets       []Bucket         `json:"buckets"`
	Members       []MemberActivity `json:"members"`
	Summary       Summary          `json:"summary"`
	UndatedTasks  int              `json:"undated_tasks"`
	UndatedEvents int              `json:"undated_events"`
}

// BuildReport computes a report from in-memory collections. It is pure.
// Member ranking covers every task and event passed in; the summary only
// covers items that fall inside the report window.
func BuildReport(p Period, now time.Time, loc Locale, members []model.FamilyMember, tasks []model.Task, events []model.CalendarEvent) Report {
	tl := Bucketize(p, now, loc, tasks, events)

	r := Report{
		Period:        p,
		Locale:        loc,
		GeneratedAt:   now,
		Buckets:       tl.Buckets,
		Members:       RankMembers(members, tasks, events),
		UndatedTasks:  tl.UndatedTasks,
		UndatedEvents: tl.UndatedEvents,
	}
	if len(tl.Buckets) > 0 {
		r.WindowStart = tl.Buckets[0].Start
		r.WindowEnd = tl.Buckets[len(tl.Buckets)-1].End
	}
	r.Summary = summarize(r.WindowStart, r.WindowEnd, now, tasks, events)
	return r
}

func summarize(start, end, now time.Time, tasks []model.Task, events []model.CalendarEvent) Summary {
	s := Summary{
		TasksByCategory: make(map[string]int),
		TasksByPriority: make(map[string]int),
	}
	window := Bucket{Start: start, End: end}

	for _, t := range tasks {
		at, _ := t.ActivityTime(now)
		if !window.Contains(at) {
			continue
		}
		s.TotalTasks++
		if t.Completed {
			s.CompletedTasks++
			// Unassigned tasks credit nobody.
			if t.AssigneeID != nil {
				s.PointsAwarded += t.Points
			}
		}
		category := t.Category
		if category == "" {
			category = "other"
		}
		s.TasksByCategory[category]++
		priority := t.Priority
		if priority == "" {
			priority = model.PriorityMedium
		}
		s.TasksByPriority[string(priority)]++
	}

	for _, e := range events {
		at, _ := e.ActivityTime(now)
		if window.Contains(at) {
			s.TotalEvents++
		}
	}

	if s.TotalTasks > 0 {
		s.CompletionRate = float64(s.CompletedTasks) / float64(s.TotalTasks)
	}
	return s
}
