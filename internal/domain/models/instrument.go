package models

import (
	"strings"
	"time"
)

// Instrument is one listed equity as reported by the provider roster, optionally
// enriched with valuation metrics for the universe reference date.
// Market values are in the provider's native unit (10k CNY).
type Instrument struct {
	Code     string   `json:"ts_code"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Area     string   `json:"area"`
	Industry string   `json:"industry"`
	Market   string   `json:"market"`
	ListDate string   `json:"list_date"`
	TotalMV  *float64 `json:"total_mv"`
	CircMV   *float64 `json:"circ_mv"`
}

// HasValuation reports whether a total market value was merged in.
func (i Instrument) HasValuation() bool {
	return i.TotalMV != nil
}

// FloatRatio returns circ_mv / total_mv. ok is false when either side is
// missing or total_mv is zero.
func (i Instrument) FloatRatio() (ratio float64, ok bool) {
	if i.TotalMV == nil || i.CircMV == nil || *i.TotalMV == 0 {
		return 0, false
	}
	return *i.CircMV / *i.TotalMV, true
}

// CircMarketValue returns the free-float market value or 0 when unknown.
func (i Instrument) CircMarketValue() float64 {
	if i.CircMV == nil {
		return 0
	}
	return *i.CircMV
}

// TotalMarketValue returns the total market value or 0 when unknown.
func (i Instrument) TotalMarketValue() float64 {
	if i.TotalMV == nil {
		return 0
	}
	return *i.TotalMV
}

// IsRiskWarned reports whether the display name carries the marker.
func (i Instrument) IsRiskWarned(marker string) bool {
	return marker != "" && strings.Contains(i.Name, marker)
}

// Valuation is one daily_basic row for a single trade date.
type Valuation struct {
	Code         string   `json:"ts_code"`
	TradeDate    string   `json:"trade_date"`
	Close        float64  `json:"close"`
	TurnoverRate float64  `json:"turnover_rate"`
	VolumeRatio  float64  `json:"volume_ratio"`
	PE           float64  `json:"pe"`
	PB           float64  `json:"pb"`
	TotalMV      *float64 `json:"total_mv"`
	CircMV       *float64 `json:"circ_mv"`
}

// DailyBar is the daily valuation row joined with the daily price row on
// (code, trade date). Dates are YYYYMMDD.
type DailyBar struct {
	Code         string  `json:"ts_code"`
	TradeDate    string  `json:"trade_date"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
	PreClose     float64 `json:"pre_close"`
	Change       float64 `json:"change"`
	PctChg       float64 `json:"pct_chg"`
	Vol          float64 `json:"vol"`
	Amount       float64 `json:"amount"`
	TurnoverRate float64 `json:"turnover_rate"`
	VolumeRatio  float64 `json:"volume_ratio"`
	PE           float64 `json:"pe"`
	PB           float64 `json:"pb"`
	TotalMV      float64 `json:"total_mv"`
	CircMV       float64 `json:"circ_mv"`
}

// AuctionSnapshot is the opening call-auction summary for one trading day.
type AuctionSnapshot struct {
	Code      string  `json:"ts_code"`
	TradeDate string  `json:"trade_date"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Vol       float64 `json:"vol"`
	Amount    float64 `json:"amount"`
	VWAP      float64 `json:"vwap"`
}

// MinuteBar is one 1-minute intraday bar.
type MinuteBar struct {
	Code      string    `json:"ts_code"`
	TradeTime time.Time `json:"trade_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Vol       float64   `json:"vol"`
	Amount    float64   `json:"amount"`
}
