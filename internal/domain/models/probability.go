package models

import (
	"sort"

	"stockprob/pkg/util"
)

// Tally accumulates outcomes for one (category, horizon) pair.
//
// Auction horizons keep the latest observed swing values (MaxPct, MinPct,
// ClosePct) and turnover ratio. Horizons that track extremes accumulate
// per-day swings into the *Sum fields; Record divides them by Total.
type Tally struct {
	Up    int
	Down  int
	Equal int
	Total int

	MaxPct      float64
	MinPct      float64
	ClosePct    float64
	VolumeRatio float64

	MaxPctSum   float64
	MinPctSum   float64
	ClosePctSum float64
}

// Observe classifies price against base and counts it.
func (t *Tally) Observe(price, base float64) {
	switch {
	case price > base:
		t.Up++
	case price < base:
		t.Down++
	default:
		t.Equal++
	}
	t.Total++
}

// ProbabilityRecord is the derived, serializable view of a Tally.
// Probability fields are zero when Total is zero.
type ProbabilityRecord struct {
	Up          int     `json:"up"`
	Down        int     `json:"down"`
	Equal       int     `json:"equal"`
	Total       int     `json:"total"`
	UpProb      float64 `json:"up_prob"`
	DownProb    float64 `json:"down_prob"`
	EqualProb   float64 `json:"equal_prob"`
	MaxPct      float64 `json:"max_pct"`
	MinPct      float64 `json:"min_pct"`
	ClosePct    float64 `json:"close_pct"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// HasData reports whether at least one observation backs the record.
func (r ProbabilityRecord) HasData() bool {
	return r.Total > 0
}

// Record derives probabilities for horizon h.
func (t Tally) Record(h Horizon) ProbabilityRecord {
	rec := ProbabilityRecord{
		Up:          t.Up,
		Down:        t.Down,
		Equal:       t.Equal,
		Total:       t.Total,
		MaxPct:      t.MaxPct,
		MinPct:      t.MinPct,
		ClosePct:    t.ClosePct,
		VolumeRatio: t.VolumeRatio,
	}
	if t.Total == 0 {
		return rec
	}
	n := float64(t.Total)
	rec.UpProb = util.Round2(float64(t.Up) / n * 100)
	rec.DownProb = util.Round2(float64(t.Down) / n * 100)
	rec.EqualProb = util.Round2(float64(t.Equal) / n * 100)
	if h.TracksExtremes() {
		rec.MaxPct = util.Round2(t.MaxPctSum / n)
		rec.MinPct = util.Round2(t.MinPctSum / n)
		rec.ClosePct = util.Round2(t.ClosePctSum / n)
	}
	return rec
}

// PeriodTable maps category and horizon to a probability record for one
// instrument and lookback period.
type PeriodTable map[Category]map[Horizon]ProbabilityRecord

// Set stores rec under (c, h).
func (t PeriodTable) Set(c Category, h Horizon, rec ProbabilityRecord) {
	row, ok := t[c]
	if !ok {
		row = make(map[Horizon]ProbabilityRecord, len(Horizons))
		t[c] = row
	}
	row[h] = rec
}

// OrderedCategories returns the categories present in t in display order.
// Categories outside the known set follow, sorted by name.
func (t PeriodTable) OrderedCategories() []Category {
	out := make([]Category, 0, len(t))
	seen := make(map[Category]bool, len(t))
	for _, c := range append(append([]Category{}, Categories...), CategoryRange10To19) {
		if _, ok := t[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var extra []Category
	for c := range t {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// AnalysisResult is the per-period table set for one instrument.
type AnalysisResult map[Period]PeriodTable

// HorizonView is the labelled per-horizon summary returned by the API.
type HorizonView struct {
	TimeName  string  `json:"time_name"`
	UpProb    float64 `json:"up_prob"`
	DownProb  float64 `json:"down_prob"`
	EqualProb float64 `json:"equal_prob"`
	Total     int     `json:"total"`
}

// CategoryView is the labelled per-category summary.
type CategoryView struct {
	CategoryName string                  `json:"category_name"`
	TimePeriods  map[Horizon]HorizonView `json:"time_periods"`
}

// PeriodView is the labelled per-period summary.
type PeriodView struct {
	PeriodName string                    `json:"period_name"`
	Categories map[Category]CategoryView `json:"categories"`
}

// ProbabilityView is the labelled form of an AnalysisResult.
type ProbabilityView map[Period]PeriodView

// View attaches display labels to r.
func (r AnalysisResult) View() ProbabilityView {
	out := make(ProbabilityView, len(r))
	for p, table := range r {
		pv := PeriodView{
			PeriodName: p.Label(),
			Categories: make(map[Category]CategoryView, len(table)),
		}
		for c, row := range table {
			cv := CategoryView{
				CategoryName: c.Label(),
				TimePeriods:  make(map[Horizon]HorizonView, len(row)),
			}
			for h, rec := range row {
				cv.TimePeriods[h] = HorizonView{
					TimeName:  h.Label(),
					UpProb:    rec.UpProb,
					DownProb:  rec.DownProb,
					EqualProb: rec.EqualProb,
					Total:     rec.Total,
				}
			}
			pv.Categories[c] = cv
		}
		out[p] = pv
	}
	return out
}

// StockProbabilities is one entry of the cross-instrument lookup.
type StockProbabilities struct {
	Name string          `json:"name"`
	Data ProbabilityView `json:"data"`
}

// PctProbability is the answer to a percentage-driven lookup.
type PctProbability struct {
	Code         string   `json:"ts_code"`
	PctChg       float64  `json:"pct_chg"`
	Category     Category `json:"category"`
	DisplayRange string   `json:"display_range"`
	UpProb       float64  `json:"up_prob"`
	DownProb     float64  `json:"down_prob"`
	EqualProb    float64  `json:"equal_prob"`
	AvgTotal     float64  `json:"avg_total"`
	MaxPct       float64  `json:"max_pct"`
	MinPct       float64  `json:"min_pct"`
	ClosePct     float64  `json:"close_pct"`
	Rows         int      `json:"rows"`
}

// StockInfo is the basic profile returned by the single-instrument lookup.
type StockInfo struct {
	Code     string  `json:"ts_code"`
	Name     string  `json:"name"`
	Industry string  `json:"industry"`
	Market   string  `json:"market"`
	TotalMV  float64 `json:"total_mv"`
	CircMV   float64 `json:"circ_mv"`
}

// InfoFromInstrument builds the profile view of inst.
func InfoFromInstrument(inst Instrument) StockInfo {
	return StockInfo{
		Code:     inst.Code,
		Name:     inst.Name,
		Industry: inst.Industry,
		Market:   inst.Market,
		TotalMV:  inst.TotalMarketValue(),
		CircMV:   inst.CircMarketValue(),
	}
}
