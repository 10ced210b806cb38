package analytics

import "fmt"

// Period is the lookback window selected for an analytics report.
type Period string

const (
	PeriodWeek     Period = "week"
	PeriodMonth    Period = "month"
	PeriodQuarter  Period = "quarter"
	PeriodHalfYear Period = "half-year"
	PeriodYear     Period = "year"
)

// DefaultPeriod is used when a request does not name one.
const DefaultPeriod = PeriodMonth

type unit int

const (
	unitDay unit = iota
	unitWeek
	unitMonth
)

type layout struct {
	count int
	unit  unit
}

// layouts maps each period to its bucket count and bucket unit.
var layouts = map[Period]layout{
	PeriodWeek:     {count: 7, unit: unitDay},
	PeriodMonth:    {count: 4, unit: unitWeek},
	PeriodQuarter:  {count: 3, unit: unitMonth},
	PeriodHalfYear: {count: 6, unit: unitMonth},
	PeriodYear:     {count: 12, unit: unitMonth},
}

// Periods lists the supported periods from shortest to longest.
var Periods = []Period{PeriodWeek, PeriodMonth, PeriodQuarter, PeriodHalfYear, PeriodYear}

// ParsePeriod validates s. An empty string yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if _, ok := layouts[p]; !ok {
		return "", fmt.Errorf("unknown period %q", s)
	}
	return p, nil
}

// BucketCount returns how many buckets the period is split into.
func (p Period) BucketCount() int {
	return layouts[p].count
}
