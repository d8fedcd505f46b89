package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/pkg/logger"
	"stockprob/pkg/metrics"
	"stockprob/pkg/util"
)

// DefaultFloorDate is the earliest trade date requested from the provider.
const DefaultFloorDate = "20150101"

// EngineConfig configures the probability engine.
type EngineConfig struct {
	FloorDate string
	Periods   []models.PeriodSpec
	// ReuseToday lets a table written earlier today stand in for a rerun.
	ReuseToday bool
}

// Engine computes next-day outcome probabilities for one instrument.
type Engine struct {
	md      drepo.MarketData
	fetcher *Fetcher
	store   drepo.ResultStore
	sink    drepo.ResultSink
	events  drepo.EventPublisher
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     EngineConfig
	now     func() time.Time
	loc     *time.Location
}

// EngineOption configures Engine.
type EngineOption func(*Engine)

// WithClock replaces the engine's notion of now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the exchange time zone used to derive "today".
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) { e.loc = loc }
}

// WithSink mirrors saved tables into an analytical store.
func WithSink(s drepo.ResultSink) EngineOption {
	return func(e *Engine) { e.sink = s }
}

// WithEvents publishes an event per saved table.
func WithEvents(p drepo.EventPublisher) EngineOption {
	return func(e *Engine) { e.events = p }
}

// WithEngineMetrics records engine timings.
func WithEngineMetrics(m drepo.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an Engine.
func NewEngine(md drepo.MarketData, fetcher *Fetcher, store drepo.ResultStore, log *logger.Logger, cfg EngineConfig, opts ...EngineOption) *Engine {
	if cfg.FloorDate == "" {
		cfg.FloorDate = DefaultFloorDate
	}
	if cfg.Periods == nil {
		cfg.Periods = models.EnabledPeriods()
	}
	e := &Engine{
		md:      md,
		fetcher: fetcher,
		store:   store,
		log:     log,
		cfg:     cfg,
		metrics: metrics.Nop{},
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Periods returns the lookback windows the engine computes.
func (e *Engine) Periods() []models.PeriodSpec {
	return e.cfg.Periods
}

// pairedDay is one daily row with the trade date of the following row.
type pairedDay struct {
	bar      models.DailyBar
	category models.Category
	next     string
}

// Analyze computes every configured period for code. A period whose window
// holds no data is left out of the result.
func (e *Engine) Analyze(ctx context.Context, code, name string, circMV float64) (models.AnalysisResult, error) {
	result := make(models.AnalysisResult, len(e.cfg.Periods))
	today := e.now().In(e.loc)

	pending := make([]models.PeriodSpec, 0, len(e.cfg.Periods))
	for _, p := range e.cfg.Periods {
		if e.cfg.ReuseToday && e.store != nil {
			if table, err := e.store.Load(code, p.ID); err == nil {
				e.metrics.RecordCache("result_store", true)
				result[p.ID] = table
				continue
			}
			e.metrics.RecordCache("result_store", false)
		}
		pending = append(pending, p)
	}
	if len(pending) == 0 {
		return result, nil
	}

	bars, err := e.md.DailyBars(ctx, code, e.cfg.FloorDate, util.FormatTradeDate(today))
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, models.EmptyDataf("analyze", "no daily data for %s", code)
	}

	runID := uuid.NewString()
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		start := time.Now()
		table, ok := e.analyzePeriod(ctx, code, circMV, bars, p, today)
		if !ok {
			continue
		}
		e.persist(ctx, runID, code, name, p.ID, table, time.Since(start))
		result[p.ID] = table

		elapsed := time.Since(start)
		e.metrics.RecordPeriodDuration(string(p.ID), elapsed.Seconds())
		e.log.Info("period analyzed",
			logger.String("ts_code", code),
			logger.String("period", string(p.ID)),
			logger.Int("categories", len(table)),
			logger.Duration("elapsed_ms", elapsed),
		)
	}
	return result, nil
}

func (e *Engine) analyzePeriod(ctx context.Context, code string, circMV float64, bars []models.DailyBar, p models.PeriodSpec, today time.Time) (models.PeriodTable, bool) {
	days := window(bars, util.FormatTradeDate(p.Start(today)))
	if len(days) == 0 {
		e.log.Warn("no data in period",
			logger.String("ts_code", code),
			logger.String("period", string(p.ID)),
		)
		return nil, false
	}

	plan := fetchPlan(days)
	e.log.Info("fetching next-day data",
		logger.String("ts_code", code),
		logger.String("period", string(p.ID)),
		logger.Int("rows", len(days)),
		logger.Int("dates", len(plan)),
	)
	auctions := e.fetcher.Auctions(ctx, code, plan)
	sessions := e.fetcher.Sessions(ctx, code, plan)

	return tabulate(days, auctions, sessions, circMV), true
}

func (e *Engine) persist(ctx context.Context, runID, code, name string, period models.Period, table models.PeriodTable, elapsed time.Duration) {
	path := ""
	if e.store != nil {
		var err error
		path, err = e.store.Save(code, name, period, table)
		if err != nil {
			e.metrics.RecordError("result_store")
			e.log.Error("save probability table failed",
				logger.String("ts_code", code),
				logger.String("period", string(period)),
				logger.Error(err),
			)
		}
	}
	if e.sink != nil {
		if err := e.sink.StoreTable(ctx, runID, code, name, period, table); err != nil {
			e.metrics.RecordError("result_sink")
			e.log.Warn("mirror probability table failed", logger.String("ts_code", code), logger.Error(err))
		}
	}
	if e.events != nil {
		ev := drepo.AnalysisEvent{
			RunID:      runID,
			Code:       code,
			Name:       name,
			Period:     period,
			Path:       path,
			Categories: len(table),
			Samples:    sampleCount(table),
			Duration:   elapsed.Seconds(),
			At:         e.now(),
		}
		if err := e.events.PublishAnalysis(ctx, ev); err != nil {
			e.metrics.RecordError("events")
			e.log.Warn("publish analysis event failed", logger.String("ts_code", code), logger.Error(err))
		}
	}
}

func sampleCount(t models.PeriodTable) int {
	n := 0
	for _, row := range t {
		n += row[models.HorizonAuction].Total
	}
	return n
}

// window classifies the bars dated on or after start and pairs each with the
// next row's trade date. bars must be date ascending; the last row stays
// unpaired.
func window(bars []models.DailyBar, start string) []pairedDay {
	var days []pairedDay
	for i, b := range bars {
		if b.TradeDate < start {
			continue
		}
		d := pairedDay{bar: b, category: models.Categorize(b.PctChg)}
		if i+1 < len(bars) {
			d.next = bars[i+1].TradeDate
		}
		days = append(days, d)
	}
	return days
}

// fetchPlan returns the distinct next-trade dates of days in first-seen order.
func fetchPlan(days []pairedDay) []string {
	seen := make(map[string]bool, len(days))
	plan := make([]string, 0, len(days))
	for _, d := range days {
		if d.next == "" || seen[d.next] {
			continue
		}
		seen[d.next] = true
		plan = append(plan, d.next)
	}
	return plan
}

// tabulate aggregates outcomes per category and horizon. Every category seen
// in days gets a record for every horizon, even with zero observations.
func tabulate(days []pairedDay, auctions map[string]*models.AuctionSnapshot, sessions map[string][]models.MinuteBar, circMV float64) models.PeriodTable {
	tallies := make(map[models.Category]map[models.Horizon]*models.Tally)
	for _, d := range days {
		row, ok := tallies[d.category]
		if !ok {
			row = make(map[models.Horizon]*models.Tally, len(models.Horizons))
			for _, h := range models.Horizons {
				row[h] = &models.Tally{}
			}
			tallies[d.category] = row
		}
		if d.next == "" {
			continue
		}
		prevClose := d.bar.Close

		if snap := auctions[d.next]; snap != nil {
			t := row[models.HorizonAuction]
			t.Observe(snap.Open, prevClose)
			t.MaxPct = util.Round2(util.PctChange(snap.High, prevClose))
			t.MinPct = util.Round2(util.PctChange(snap.Low, prevClose))
			t.ClosePct = util.Round2(util.PctChange(snap.Close, prevClose))
			if circMV != 0 {
				t.VolumeRatio = util.Round2(snap.Amount / circMV)
			}
		}

		session := sessions[d.next]
		if len(session) == 0 {
			continue
		}
		for _, h := range models.IntradayHorizons {
			span := models.TruncateSession(session, h)
			if len(span) == 0 {
				continue
			}
			t := row[h]
			if !h.TracksExtremes() {
				t.Observe(span[0].Close, prevClose)
				continue
			}
			last := span[len(span)-1].Close
			hi, lo := span[0].High, span[0].Low
			for _, b := range span[1:] {
				if b.High > hi {
					hi = b.High
				}
				if b.Low < lo {
					lo = b.Low
				}
			}
			t.MaxPctSum += util.PctChange(hi, prevClose)
			t.MinPctSum += util.PctChange(lo, prevClose)
			t.ClosePctSum += util.PctChange(last, prevClose)
			t.Observe(last, prevClose)
		}
	}

	table := make(models.PeriodTable, len(tallies))
	for c, row := range tallies {
		for h, t := range row {
			table.Set(c, h, t.Record(h))
		}
	}
	return table
}
