package models

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestTallyRecord(t *testing.T) {
	var tl Tally
	tl.Observe(11, 10)
	tl.Observe(9, 10)
	tl.Observe(10, 10)
	tl.MaxPctSum, tl.MinPctSum, tl.ClosePctSum = 6, -3, 1.5

	if tl.Up+tl.Down+tl.Equal != tl.Total {
		t.Fatalf("counts do not add up: %+v", tl)
	}

	rec := tl.Record(Horizon15Min)
	if rec.UpProb != 33.33 || rec.DownProb != 33.33 || rec.EqualProb != 33.33 {
		t.Fatalf("unexpected probabilities %+v", rec)
	}
	if math.Abs(rec.UpProb+rec.DownProb+rec.EqualProb-100) > 0.011*3 {
		t.Fatalf("probabilities should sum to 100 within rounding, got %+v", rec)
	}
	if rec.MaxPct != 2 || rec.MinPct != -1 || rec.ClosePct != 0.5 {
		t.Fatalf("unexpected averages %+v", rec)
	}

	one := tl.Record(Horizon1Min)
	if one.MaxPct != 0 || one.ClosePct != 0 {
		t.Fatalf("1min must not carry swing averages: %+v", one)
	}
}

func TestTallyRecordEmpty(t *testing.T) {
	rec := Tally{}.Record(Horizon5Min)
	if rec.HasData() || rec.UpProb != 0 {
		t.Fatalf("empty tally should not carry probabilities: %+v", rec)
	}
}

func TestAnalysisResultView(t *testing.T) {
	table := PeriodTable{}
	table.Set(CategoryRange3To5, HorizonAuction, ProbabilityRecord{Total: 4, UpProb: 75, DownProb: 25})
	res := AnalysisResult{"y2": table}

	view := res.View()
	pv, ok := view["y2"]
	if !ok || pv.PeriodName != "2年" {
		t.Fatalf("unexpected period view %+v", view)
	}
	cv := pv.Categories[CategoryRange3To5]
	if cv.CategoryName != "3-5" {
		t.Fatalf("unexpected category name %s", cv.CategoryName)
	}
	hv := cv.TimePeriods[HorizonAuction]
	if hv.TimeName != "竞价" || hv.UpProb != 75 || hv.Total != 4 {
		t.Fatalf("unexpected horizon view %+v", hv)
	}
}

func TestOrderedCategories(t *testing.T) {
	table := PeriodTable{}
	table.Set(CategoryLimitDown, Horizon1Min, ProbabilityRecord{})
	table.Set(CategoryLimitUp, Horizon1Min, ProbabilityRecord{})
	table.Set(Category("zz"), Horizon1Min, ProbabilityRecord{})
	got := table.OrderedCategories()
	if len(got) != 3 || got[0] != CategoryLimitUp || got[1] != CategoryLimitDown || got[2] != "zz" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFoundf("info", "stock %s", "000001.SZ"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is to match kind")
	}
	if errors.Is(err, ErrEmptyData) {
		t.Fatalf("kinds must not cross-match")
	}
	if KindOf(err) != KindNotFound || !IsKind(err, KindNotFound) {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain errors have unknown kind")
	}
	up := Upstream("daily", errors.New("timeout"))
	if up.Error() != "daily: upstream_failure: timeout" {
		t.Fatalf("unexpected message %q", up.Error())
	}
}
