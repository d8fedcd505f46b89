package models

import (
	"sort"
	"time"
)

// Horizon is how much of the next session is considered for an outcome.
type Horizon string

const (
	HorizonAuction Horizon = "auction"
	Horizon1Min    Horizon = "1min"
	Horizon5Min    Horizon = "5min"
	Horizon15Min   Horizon = "15min"
	Horizon30Min   Horizon = "30min"
	Horizon60Min   Horizon = "60min"
)

// Horizons lists every horizon in output order.
var Horizons = []Horizon{
	HorizonAuction,
	Horizon1Min,
	Horizon5Min,
	Horizon15Min,
	Horizon30Min,
	Horizon60Min,
}

// IntradayHorizons are the horizons derived from 1-minute session bars.
var IntradayHorizons = []Horizon{
	Horizon1Min,
	Horizon5Min,
	Horizon15Min,
	Horizon30Min,
	Horizon60Min,
}

var horizonLabels = map[Horizon]string{
	HorizonAuction: "竞价",
	Horizon1Min:    "1分钟",
	Horizon5Min:    "5分钟",
	Horizon15Min:   "15分钟",
	Horizon30Min:   "30分钟",
	Horizon60Min:   "1小时",
}

// end-of-window wall clock per horizon, inclusive
var horizonCutoffs = map[Horizon][2]int{
	Horizon5Min:  {9, 35},
	Horizon15Min: {9, 45},
	Horizon30Min: {10, 0},
	Horizon60Min: {10, 30},
}

// Label returns the display label for the horizon.
func (h Horizon) Label() string {
	if l, ok := horizonLabels[h]; ok {
		return l
	}
	return string(h)
}

// TracksExtremes reports whether the horizon accumulates max/min/close swings.
func (h Horizon) TracksExtremes() bool {
	_, ok := horizonCutoffs[h]
	return ok
}

// ParseHorizonLabel resolves a stored display label back to its Horizon.
func ParseHorizonLabel(label string) Horizon {
	for h, l := range horizonLabels {
		if l == label {
			return h
		}
	}
	return Horizon(label)
}

// TruncateSession returns the bars of a full morning session that fall inside
// the horizon window. The input is not modified; the output is sorted by time.
// The 1-minute horizon keeps only the first bar. Auction or unknown horizons
// yield nil.
func TruncateSession(bars []MinuteBar, h Horizon) []MinuteBar {
	if len(bars) == 0 {
		return nil
	}
	sorted := make([]MinuteBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TradeTime.Before(sorted[j].TradeTime)
	})

	if h == Horizon1Min {
		return sorted[:1]
	}
	hm, ok := horizonCutoffs[h]
	if !ok {
		return nil
	}

	first := sorted[0].TradeTime
	cutoff := time.Date(first.Year(), first.Month(), first.Day(), hm[0], hm[1], 0, 0, first.Location())
	n := 0
	for n < len(sorted) && !sorted[n].TradeTime.After(cutoff) {
		n++
	}
	return sorted[:n]
}
