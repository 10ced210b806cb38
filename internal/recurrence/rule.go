// Package recurrence implements the RRULE subset used by calendar events.
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
	Yearly
)

func (f Freq) String() string {
	switch f {
	case Daily:
		return "DAILY"
	case Weekly:
		return "WEEKLY"
	case Monthly:
		return "MONTHLY"
	case Yearly:
		return "YEARLY"
	}
	return fmt.Sprintf("Freq(%d)", int(f))
}

func parseFreq(s string) (Freq, bool) {
	for f := Daily; f <= Yearly; f++ {
		if f.String() == s {
			return f, true
		}
	}
	return 0, false
}

// Weekdays is a set of days of the week, one bit per time.Weekday.
type Weekdays uint8

// monFirst is the RFC 5545 day order used when serializing.
var monFirst = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var dayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w = w.With(d)
	}
	return w
}

func (w Weekdays) With(d time.Weekday) Weekdays { return w | 1<<uint(d) }

func (w Weekdays) Has(d time.Weekday) bool { return w&(1<<uint(d)) != 0 }

func (w Weekdays) Empty() bool { return w == 0 }

// Days returns the members of the set, Monday first.
func (w Weekdays) Days() []time.Weekday {
	var days []time.Weekday
	for _, d := range monFirst {
		if w.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (w Weekdays) String() string {
	codes := make([]string, 0, 7)
	for _, d := range w.Days() {
		codes = append(codes, dayCodes[d])
	}
	return strings.Join(codes, ",")
}

// Rule is a parsed recurrence rule.
type Rule struct {
	Freq       Freq
	Interval   int        // >= 1
	ByDay      Weekdays   // empty means the weekday of the first occurrence
	ByMonthDay int        // MONTHLY only; 0 means the day of the first occurrence
	Count      int        // 0 means unlimited
	Until      *time.Time // inclusive
}

const untilLayout = "20060102T150405Z"

var ErrEmptyRule = errors.New("empty recurrence rule")

// Parse reads a rule such as "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE". An optional
// "RRULE:" prefix is accepted.
func Parse(s string) (Rule, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "RRULE:")
	if s == "" {
		return Rule{}, ErrEmptyRule
	}

	r := Rule{Interval: 1}
	seen := make(map[string]bool)

	for _, part := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok || val == "" {
			return Rule{}, fmt.Errorf("malformed rule part %q", part)
		}
		key = strings.ToUpper(key)
		if seen[key] {
			return Rule{}, fmt.Errorf("duplicate rule key %q", key)
		}
		seen[key] = true

		var err error
		switch key {
		case "FREQ":
			f, ok := parseFreq(strings.ToUpper(val))
			if !ok {
				return Rule{}, fmt.Errorf("unknown frequency %q", val)
			}
			r.Freq = f
		case "INTERVAL":
			r.Interval, err = positive(val, 1<<16)
		case "BYDAY":
			r.ByDay, err = parseDays(val)
		case "BYMONTHDAY":
			r.ByMonthDay, err = positive(val, 31)
		case "COUNT":
			r.Count, err = positive(val, 1<<20)
		case "UNTIL":
			r.Until, err = parseUntil(val)
		default:
			return Rule{}, fmt.Errorf("unsupported rule key %q", key)
		}
		if err != nil {
			return Rule{}, fmt.Errorf("%s: %w", key, err)
		}
	}

	if !seen["FREQ"] {
		return Rule{}, errors.New("FREQ is required")
	}
	if r.ByMonthDay > 0 && r.Freq != Monthly {
		return Rule{}, errors.New("BYMONTHDAY requires FREQ=MONTHLY")
	}
	if r.Count > 0 && r.Until != nil {
		return Rule{}, errors.New("COUNT and UNTIL are mutually exclusive")
	}
	return r, nil
}

func positive(s string, max int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("want integer in 1..%d, got %q", max, s)
	}
	return n, nil
}

func parseDays(s string) (Weekdays, error) {
	var w Weekdays
	for _, code := range strings.Split(s, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		found := false
		for d, c := range dayCodes {
			if c == code {
				w = w.With(time.Weekday(d))
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown day %q", code)
		}
	}
	return w, nil
}

func parseUntil(s string) (*time.Time, error) {
	t, err := time.Parse(untilLayout, s)
	if err != nil {
		d, derr := time.Parse("20060102", s)
		if derr != nil {
			return nil, fmt.Errorf("invalid date %q", s)
		}
		// A bare date covers the whole day.
		t = d.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

// String renders the rule in canonical key order.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString("FREQ=" + r.Freq.String())
	if r.Interval > 1 {
		fmt.Fprintf(&b, ";INTERVAL=%d", r.Interval)
	}
	if !r.ByDay.Empty() {
		b.WriteString(";BYDAY=" + r.ByDay.String())
	}
	if r.ByMonthDay > 0 {
		fmt.Fprintf(&b, ";BYMONTHDAY=%d", r.ByMonthDay)
	}
	if r.Count > 0 {
		fmt.Fprintf(&b, ";COUNT=%d", r.Count)
	}
	if r.Until != nil {
		b.WriteString(";UNTIL=" + r.Until.UTC().Format(untilLayout))
	}
	return b.String()
}
