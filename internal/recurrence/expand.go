package recurrence

import (
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

// Occurrence is one generated instance of a recurring event.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// maxPeriods bounds expansion of rules that never reach the range end.
const maxPeriods = 50000

// Expand returns the occurrences of rule whose span overlaps
// [rangeStart, rangeEnd). The first occurrence is start and every occurrence
// lasts end-start. COUNT is applied from the first occurrence, not from
// rangeStart.
func Expand(rule Rule, start, end, rangeStart, rangeEnd time.Time) []Occurrence {
	dur := end.Sub(start)
	if dur < 0 {
		dur = 0
	}
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	var out []Occurrence
	emitted := 0
	for k := 0; k < maxPeriods; k++ {
		for _, t := range rule.period(start, k*interval) {
			if t.Before(start) {
				continue
			}
			if rule.Until != nil && t.After(*rule.Until) {
				return out
			}
			if !t.Before(rangeEnd) {
				return out
			}
			emitted++
			if rule.Count > 0 && emitted > rule.Count {
				return out
			}
			e := t.Add(dur)
			if e.After(rangeStart) || (dur == 0 && !t.Before(rangeStart)) {
				out = append(out, Occurrence{Start: t, End: e})
			}
		}
	}
	return out
}

// period returns the candidate starts of the period n frequency units after
// start, in ascending order. Periods with no valid date yield nil.
func (r Rule) period(start time.Time, n int) []time.Time {
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
	}

	switch r.Freq {
	case Daily:
		t := at(start.Year(), start.Month(), start.Day()+n)
		if !r.ByDay.Empty() && !r.ByDay.Has(t.Weekday()) {
			return nil
		}
		return []time.Time{t}

	case Weekly:
		anchor := at(start.Year(), start.Month(), start.Day()+7*n)
		if r.ByDay.Empty() {
			return []time.Time{anchor}
		}
		monday := anchor.Day() - (int(anchor.Weekday())+6)%7
		var days []time.Time
		for i := 0; i < 7; i++ {
			t := at(anchor.Year(), anchor.Month(), monday+i)
			if r.ByDay.Has(t.Weekday()) {
				days = append(days, t)
			}
		}
		return days

	case Monthly:
		first := time.Date(start.Year(), start.Month()+time.Month(n), 1, 0, 0, 0, 0, start.Location())
		day := r.ByMonthDay
		if day == 0 {
			day = start.Day()
		}
		if day > daysIn(first.Year(), first.Month()) {
			return nil
		}
		return []time.Time{at(first.Year(), first.Month(), day)}

	case Yearly:
		y := start.Year() + n
		if start.Day() > daysIn(y, start.Month()) {
			return nil
		}
		return []time.Time{at(y, start.Month(), start.Day())}
	}
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Occurrences expands a calendar event into concrete instances overlapping
// [rangeStart, rangeEnd). One-off events yield at most one instance. An
// unparseable rule is reported and the event treated as one-off.
func Occurrences(e model.CalendarEvent, rangeStart, rangeEnd time.Time) ([]model.EventOccurrence, error) {
	dur := e.Duration()
	occ := func(start, end time.Time, recurring bool) model.EventOccurrence {
		return model.EventOccurrence{
			EventID:   e.ID,
			Title:     e.Title,
			Category:  e.Category,
			Start:     start,
			End:       end,
			AllDay:    e.AllDay,
			Recurring: recurring,
		}
	}

	single := func() []model.EventOccurrence {
		end := e.Date.Add(dur)
		if e.Date.Before(rangeEnd) && end.After(rangeStart) {
			return []model.EventOccurrence{occ(e.Date, end, false)}
		}
		return nil
	}

	if e.RecurrenceRule == "" {
		return single(), nil
	}
	rule, err := Parse(e.RecurrenceRule)
	if err != nil {
		return single(), err
	}

	var out []model.EventOccurrence
	for _, o := range Expand(rule, e.Date, e.Date.Add(dur), rangeStart, rangeEnd) {
		out = append(out, occ(o.Start, o.End, true))
	}
	return out, nil
}
