package repository

import (
	"context"
	"time"

	"stockprob/internal/domain/models"
)

// MarketData is the typed view of the external market-data provider.
// Transport and provider failures surface as models.KindUpstreamFailure.
type MarketData interface {
	ListInstruments(ctx context.Context) ([]models.Instrument, error)
	StockBasic(ctx context.Context, code string) (models.Instrument, error)
	Valuations(ctx context.Context, codes []string, tradeDate string) ([]models.Valuation, error)
	LatestTradeDate(ctx context.Context, asOf time.Time) (string, error)
	DailyBars(ctx context.Context, code, start, end string) ([]models.DailyBar, error)
	AuctionSnapshot(ctx context.Context, code, tradeDate string) (*models.AuctionSnapshot, error)
	SessionBars(ctx context.Context, code, tradeDate string) ([]models.MinuteBar, error)
	IntradayBars(ctx context.Context, code, tradeDate string, h models.Horizon) ([]models.MinuteBar, error)
}

// StoredRow is one persisted (category, horizon) line of a period table.
type StoredRow struct {
	Code     string
	Name     string
	Category models.Category
	Horizon  models.Horizon
	Record   models.ProbabilityRecord
}

// ResultStore persists period tables. Load returns models.KindCacheMiss when
// no table was written today.
type ResultStore interface {
	Load(code string, period models.Period) (models.PeriodTable, error)
	Save(code, name string, period models.Period, table models.PeriodTable) (string, error)
	Files(code string) ([]string, error)
	ReadRows(path string) ([]StoredRow, error)
}

// UniverseStore persists the filtered universe and its audit trail.
type UniverseStore interface {
	Exists() bool
	Load() ([]models.Instrument, error)
	Save(stocks []models.Instrument) error
	SaveAudit(name string, stocks []models.Instrument) error
}

// ResultSink mirrors saved tables into an analytical store.
type ResultSink interface {
	StoreTable(ctx context.Context, runID, code, name string, period models.Period, table models.PeriodTable) error
	Close() error
}

// AnalysisEvent announces a persisted period table.
type AnalysisEvent struct {
	RunID      string        `json:"run_id"`
	Code       string        `json:"ts_code"`
	Name       string        `json:"name"`
	Period     models.Period `json:"period"`
	Path       string        `json:"path"`
	Categories int           `json:"categories"`
	Samples    int           `json:"samples"`
	Duration   float64       `json:"duration_seconds"`
	At         time.Time     `json:"at"`
}

// EventPublisher emits analysis events.
type EventPublisher interface {
	PublishAnalysis(ctx context.Context, ev AnalysisEvent) error
	Close() error
}

// Metrics records service-level measurements.
type Metrics interface {
	RecordProviderCall(api, result string, seconds float64)
	RecordLimiterWait(limiter string, seconds float64)
	RecordPeriodDuration(period string, seconds float64)
	RecordCache(layer string, hit bool)
	RecordError(kind string)
}
