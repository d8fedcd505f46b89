package models

import (
	"testing"
	"time"
)

func session(loc *time.Location, minutes ...int) []MinuteBar {
	bars := make([]MinuteBar, 0, len(minutes))
	for _, m := range minutes {
		ts := time.Date(2025, 3, 10, 9, 30, 0, 0, loc).Add(time.Duration(m) * time.Minute)
		bars = append(bars, MinuteBar{TradeTime: ts, Close: float64(100 + m)})
	}
	return bars
}

func TestTruncateSession(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	// deliberately unsorted, 09:30 .. 11:00
	var minutes []int
	for m := 90; m >= 0; m-- {
		minutes = append(minutes, m)
	}
	bars := session(loc, minutes...)

	cases := []struct {
		h    Horizon
		want int
		last float64
	}{
		{Horizon1Min, 1, 100},
		{Horizon5Min, 6, 105},
		{Horizon15Min, 16, 115},
		{Horizon30Min, 31, 130},
		{Horizon60Min, 61, 160},
	}
	for _, c := range cases {
		got := TruncateSession(bars, c.h)
		if len(got) != c.want {
			t.Fatalf("%s: got %d bars, want %d", c.h, len(got), c.want)
		}
		if got[len(got)-1].Close != c.last {
			t.Fatalf("%s: last close %v, want %v", c.h, got[len(got)-1].Close, c.last)
		}
	}
	if bars[0].Close != 190 {
		t.Fatalf("input must not be reordered")
	}
}

func TestTruncateSessionEdgeCases(t *testing.T) {
	if TruncateSession(nil, Horizon5Min) != nil {
		t.Fatalf("empty session should yield nil")
	}
	bars := session(time.UTC, 0, 1)
	if TruncateSession(bars, HorizonAuction) != nil {
		t.Fatalf("auction horizon has no minute window")
	}
}

func TestHorizonLabels(t *testing.T) {
	for _, h := range Horizons {
		if got := ParseHorizonLabel(h.Label()); got != h {
			t.Fatalf("label round trip %s -> %s", h, got)
		}
	}
	if Horizon1Min.TracksExtremes() || HorizonAuction.TracksExtremes() {
		t.Fatalf("1min and auction do not track extremes")
	}
	if !Horizon60Min.TracksExtremes() {
		t.Fatalf("60min tracks extremes")
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	y2, ok := LookupPeriod("y2")
	if !ok || !y2.Enabled {
		t.Fatalf("y2 must exist and be enabled")
	}
	want := now.AddDate(0, 0, -730)
	if !y2.Start(now).Equal(want) {
		t.Fatalf("unexpected start %v", y2.Start(now))
	}
	m3, _ := LookupPeriod("m3")
	if m3.Days() != 90 {
		t.Fatalf("m3 should span 90 days, got %d", m3.Days())
	}
	enabled := EnabledPeriods()
	if len(enabled) != 1 || enabled[0].ID != "y2" {
		t.Fatalf("only y2 should be enabled, got %v", enabled)
	}
	if Period("y2").Label() != "2年" {
		t.Fatalf("unexpected label %s", Period("y2").Label())
	}
}
