package util

import (
	"fmt"
	"time"
)

// TradeDateLayout is the provider's compact trade date format.
const TradeDateLayout = "20060102"

// MinuteLayout is the provider's intraday timestamp format.
const MinuteLayout = "2006-01-02 15:04:05"

// FormatTradeDate renders t as YYYYMMDD.
func FormatTradeDate(t time.Time) string {
	return t.Format(TradeDateLayout)
}

// ParseTradeDate parses a YYYYMMDD date in loc (UTC when nil).
func ParseTradeDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TradeDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse trade date %q: %w", s, err)
	}
	return t, nil
}

// ParseMinute parses a provider intraday timestamp in loc (UTC when nil).
func ParseMinute(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(MinuteLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse minute %q: %w", s, err)
	}
	return t, nil
}

// SessionBounds returns the provider timestamps for hh:mm:00 on a YYYYMMDD date.
func SessionBounds(tradeDate string, startHM, endHM [2]int) (string, string, error) {
	d, err := ParseTradeDate(tradeDate, time.UTC)
	if err != nil {
		return "", "", err
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), startHM[0], startHM[1], 0, 0, time.UTC)
	end := time.Date(d.Year(), d.Month(), d.Day(), endHM[0], endHM[1], 0, 0, time.UTC)
	return start.Format(MinuteLayout), end.Format(MinuteLayout), nil
}

// SameDay reports whether a and b fall on the same calendar date in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
