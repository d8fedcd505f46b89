package models

import "time"

// Period identifies a lookback window, e.g. "m3" or "y2".
type Period string

// PeriodSpec describes a lookback window. Months count 30 days and years
// count 365 days; there is no calendar-aware arithmetic.
type PeriodSpec struct {
	ID      Period
	Label   string
	Months  int
	Years   int
	Enabled bool
}

// Periods is the full set of known windows. Only y2 runs by default; the
// longer windows pull too much intraday data to analyze routinely.
var Periods = []PeriodSpec{
	{ID: "m1", Label: "近1月", Months: 1},
	{ID: "m3", Label: "3月", Months: 3},
	{ID: "m6", Label: "6月", Months: 6},
	{ID: "y1", Label: "1年", Years: 1},
	{ID: "y2", Label: "2年", Years: 2, Enabled: true},
	{ID: "y3", Label: "3年", Years: 3},
	{ID: "y4", Label: "4年", Years: 4},
	{ID: "y5", Label: "5年", Years: 5},
}

// LookupPeriod returns the window definition for id.
func LookupPeriod(id Period) (PeriodSpec, bool) {
	for _, p := range Periods {
		if p.ID == id {
			return p, true
		}
	}
	return PeriodSpec{}, false
}

// EnabledPeriods returns the specs flagged as enabled, in declaration order.
func EnabledPeriods() []PeriodSpec {
	out := make([]PeriodSpec, 0, 1)
	for _, p := range Periods {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Label returns the display label of a period id.
func (p Period) Label() string {
	if spec, ok := LookupPeriod(p); ok {
		return spec.Label
	}
	return string(p)
}

// Days is the window length in days.
func (s PeriodSpec) Days() int {
	return 30*s.Months + 365*s.Years
}

// Start returns the first date included in the window ending at now.
func (s PeriodSpec) Start(now time.Time) time.Time {
	return now.AddDate(0, 0, -s.Days())
}
