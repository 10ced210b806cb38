package analytics

import (
	"strconv"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
)

// Bucket is one contiguous slice of a report window.
type Bucket struct {
	Label  string    `json:"month"`
	Start  time.Time `json:"period_start"`
	End    time.Time `json:"period_end"`
	Tasks  int       `json:"tasks"`
	Events int       `json:"events"`
}

// Contains reports whether t lies within [Start, End].
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && !t.After(b.End)
}

// Timeline is the bucketized activity for one period.
type Timeline struct {
	Buckets []Bucket
	// Items whose timestamp was missing and were attributed to now.
	UndatedTasks  int
	UndatedEvents int
}

// Windows computes the empty buckets of period p ending at now, oldest first.
// Day buckets run midnight to midnight, week buckets are rolling 7-day
// windows anchored on now, month buckets follow calendar months.
func Windows(p Period, now time.Time, loc Locale) []Bucket {
	l, ok := layouts[p]
	if !ok {
		return nil
	}

	buckets := make([]Bucket, 0, l.count)
	for i := l.count - 1; i >= 0; i-- {
		var b Bucket
		switch l.unit {
		case unitDay:
			b.Start = startOfDay(now).AddDate(0, 0, -i)
			b.End = b.Start.AddDate(0, 0, 1).Add(-time.Nanosecond)
			b.Label = strconv.Itoa(b.Start.Day())
		case unitWeek:
			b.End = now.AddDate(0, 0, -7*i)
			b.Start = b.End.AddDate(0, 0, -7).Add(time.Nanosecond)
			b.Label = loc.week(l.count - i)
		case unitMonth:
			b.Start = time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
			b.End = b.Start.AddDate(0, 1, 0).Add(-time.Nanosecond)
			b.Label = loc.month(int(b.Start.Month()) - 1)
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// Bucketize counts tasks and events into the buckets of period p.
// It never fails: items without a usable timestamp are counted at now.
func Bucketize(p Period, now time.Time, loc Locale, tasks []model.Task, events []model.CalendarEvent) Timeline {
	tl := Timeline{Buckets: Windows(p, now, loc)}

	for _, t := range tasks {
		at, fallback := t.ActivityTime(now)
		if fallback {
			tl.UndatedTasks++
		}
		if i := find(tl.Buckets, at); i >= 0 {
			tl.Buckets[i].Tasks++
		}
	}

	for _, e := range events {
		at, fallback := e.ActivityTime(now)
		if fallback {
			tl.UndatedEvents++
		}
		if i := find(tl.Buckets, at); i >= 0 {
			tl.Buckets[i].Events++
		}
	}

	return tl
}

// find returns the index of the bucket containing t, or -1.
func find(buckets []Bucket, t time.Time) int {
	for i := range buckets {
		if buckets[i].Contains(t) {
			return i
		}
	}
	return -1
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
