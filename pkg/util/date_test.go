package util

import (
	"testing"
	"time"
)

func TestParseTradeDate(t *testing.T) {
	got, err := ParseTradeDate("20250307", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2025 || got.Month() != time.March || got.Day() != 7 {
		t.Fatalf("unexpected date %v", got)
	}
	if FormatTradeDate(got) != "20250307" {
		t.Fatalf("round trip failed: %s", FormatTradeDate(got))
	}
}

func TestParseTradeDateInvalid(t *testing.T) {
	if _, err := ParseTradeDate("2025-03-07", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSessionBounds(t *testing.T) {
	start, end, err := SessionBounds("20250307", [2]int{9, 30}, [2]int{11, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != "2025-03-07 09:30:00" || end != "2025-03-07 11:00:00" {
		t.Fatalf("unexpected bounds %s %s", start, end)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2025, 3, 7, 0, 1, 0, 0, time.UTC)
	b := time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC)
	if !SameDay(a, b) {
		t.Fatalf("expected same day")
	}
	if SameDay(a, b.Add(2*time.Minute)) {
		t.Fatalf("expected different day")
	}
}
