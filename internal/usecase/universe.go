package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/pkg/logger"
	"stockprob/pkg/util"
)

// Audit file names written next to the universe cache.
const (
	AuditMarketValue = "filtered_out_market_value.csv"
	AuditFloatRatio  = "filtered_float_ratio.csv"
)

// UniverseConfig holds the screening thresholds. Market values are in 10k CNY.
type UniverseConfig struct {
	AsOfDate        string
	ExcludeSuffixes []string
	ExcludePrefixes []string
	RiskMarker      string
	ValuationBatch  int
	MinTotalMV      float64
	MaxTotalMV      float64
	MinFloatRatio   float64
	Blacklist       []string
	// MaxLagDays bounds how many earlier open days are tried when the
	// provider has not published valuations for the resolved date yet.
	MaxLagDays int
}

// DefaultUniverseConfig returns the production screen: no Beijing or STAR
// board listings, no risk-warned names, total market value between 3 and
// 22.2 billion CNY and more than 70% free float.
func DefaultUniverseConfig() UniverseConfig {
	return UniverseConfig{
		ExcludeSuffixes: []string{".BJ"},
		ExcludePrefixes: []string{"688"},
		RiskMarker:      "ST",
		ValuationBatch:  1000,
		MinTotalMV:      30 * 10000,
		MaxTotalMV:      222 * 10000,
		MinFloatRatio:   0.7,
		Blacklist:       []string{"600811.SH"},
		MaxLagDays:      5,
	}
}

// UniverseFilter screens the instrument roster down to the analyzable set.
type UniverseFilter struct {
	md    drepo.MarketData
	audit drepo.UniverseStore
	cfg   UniverseConfig
	log   *logger.Logger
	now   func() time.Time
}

// NewUniverseFilter creates a filter. audit may be nil.
func NewUniverseFilter(md drepo.MarketData, audit drepo.UniverseStore, cfg UniverseConfig, log *logger.Logger) *UniverseFilter {
	if cfg.ValuationBatch <= 0 {
		cfg.ValuationBatch = 1000
	}
	return &UniverseFilter{md: md, audit: audit, cfg: cfg, log: log, now: time.Now}
}

func keep(in []models.Instrument, pred func(models.Instrument) bool) []models.Instrument {
	out := make([]models.Instrument, 0, len(in))
	for _, s := range in {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

func (f *UniverseFilter) stage(name string, stocks []models.Instrument) {
	f.log.Info("universe stage", logger.String("stage", name), logger.Int("remaining", len(stocks)))
}

// Filter applies every stage to roster. It never fails: stages that cannot
// run leave the best intermediate result, and the manual exclusion list is
// applied on every path.
func (f *UniverseFilter) Filter(ctx context.Context, roster []models.Instrument) []models.Instrument {
	stocks := keep(roster, func(s models.Instrument) bool {
		for _, suf := range f.cfg.ExcludeSuffixes {
			if strings.HasSuffix(s.Code, suf) {
				return false
			}
		}
		return true
	})
	f.stage("exclude_exchange", stocks)

	stocks = keep(stocks, func(s models.Instrument) bool {
		for _, pre := range f.cfg.ExcludePrefixes {
			if strings.HasPrefix(s.Code, pre) {
				return false
			}
		}
		return true
	})
	f.stage("exclude_board", stocks)

	base := keep(stocks, func(s models.Instrument) bool { return !s.IsRiskWarned(f.cfg.RiskMarker) })
	f.stage("exclude_risk_warning", base)

	result := f.screenByValuation(ctx, base)
	result = f.dropBlacklisted(result)
	f.stage("exclude_blacklist", result)

	if len(result) == 0 {
		f.log.Warn("universe empty after screening, falling back to base roster")
		result = f.dropBlacklisted(base)
	}
	f.log.Info("universe ready", logger.Int("stocks", len(result)))
	return result
}

func (f *UniverseFilter) screenByValuation(ctx context.Context, base []models.Instrument) []models.Instrument {
	date, err := f.referenceDate(ctx)
	if err != nil {
		f.log.Error("resolve universe reference date failed", logger.Error(err))
		return base
	}

	codes := make([]string, len(base))
	for i, s := range base {
		codes[i] = s.Code
	}
	vals := f.fetchValuations(ctx, codes, date)
	// daily_basic lags the calendar: an open day may have no rows until the
	// evening publish, so walk back through earlier open days.
	for lag := 0; !hasMarketValue(vals) && f.cfg.AsOfDate == "" && lag < f.cfg.MaxLagDays; lag++ {
		prev, err := f.previousTradeDate(ctx, date)
		if err != nil {
			f.log.Error("resolve previous trade date failed", logger.String("trade_date", date), logger.Error(err))
			break
		}
		if prev >= date {
			break
		}
		f.log.Warn("no valuation data for trade date, trying previous open day",
			logger.String("trade_date", date),
			logger.String("previous", prev),
		)
		date = prev
		vals = f.fetchValuations(ctx, codes, date)
	}

	merged := make([]models.Instrument, len(base))
	withMV := 0
	for i, s := range base {
		if v, ok := vals[s.Code]; ok {
			s.TotalMV, s.CircMV = v.TotalMV, v.CircMV
		}
		if s.TotalMV != nil {
			withMV++
		}
		merged[i] = s
	}
	if withMV == 0 {
		f.log.Warn("no valuation data, skipping market value screens",
			logger.String("trade_date", date),
		)
		return merged
	}

	inRange := keep(merged, func(s models.Instrument) bool {
		return s.TotalMV != nil && *s.TotalMV >= f.cfg.MinTotalMV && *s.TotalMV <= f.cfg.MaxTotalMV
	})
	f.stage("market_value", inRange)
	f.writeAudit(AuditMarketValue, keep(merged, func(s models.Instrument) bool {
		return s.TotalMV == nil || *s.TotalMV < f.cfg.MinTotalMV || *s.TotalMV > f.cfg.MaxTotalMV
	}))

	liquid := keep(inRange, func(s models.Instrument) bool {
		r, ok := s.FloatRatio()
		return ok && r > f.cfg.MinFloatRatio
	})
	f.stage("float_ratio", liquid)
	f.writeAudit(AuditFloatRatio, liquid)
	return liquid
}

func (f *UniverseFilter) fetchValuations(ctx context.Context, codes []string, date string) map[string]models.Valuation {
	vals := make(map[string]models.Valuation, len(codes))
	for i, batch := range util.Chunk(codes, f.cfg.ValuationBatch) {
		rows, err := f.md.Valuations(ctx, batch, date)
		if err != nil {
			f.log.Error("fetch valuations failed", logger.Int("batch", i+1), logger.String("trade_date", date), logger.Error(err))
			continue
		}
		if len(rows) == 0 {
			f.log.Warn("empty valuation batch", logger.Int("batch", i+1), logger.String("trade_date", date))
			continue
		}
		for _, v := range rows {
			vals[v.Code] = v
		}
	}
	return vals
}

func hasMarketValue(vals map[string]models.Valuation) bool {
	for _, v := range vals {
		if v.TotalMV != nil {
			return true
		}
	}
	return false
}

// previousTradeDate returns the latest open day strictly before date.
func (f *UniverseFilter) previousTradeDate(ctx context.Context, date string) (string, error) {
	d, err := util.ParseTradeDate(date, time.UTC)
	if err != nil {
		return "", err
	}
	day := time.Date(d.Year(), d.Month(), d.Day()-1, 12, 0, 0, 0, time.UTC)
	return f.md.LatestTradeDate(ctx, day)
}

func (f *UniverseFilter) referenceDate(ctx context.Context) (string, error) {
	if f.cfg.AsOfDate != "" {
		return f.cfg.AsOfDate, nil
	}
	return f.md.LatestTradeDate(ctx, f.now())
}

func (f *UniverseFilter) dropBlacklisted(in []models.Instrument) []models.Instrument {
	if len(f.cfg.Blacklist) == 0 {
		return in
	}
	bad := make(map[string]bool, len(f.cfg.Blacklist))
	for _, c := range f.cfg.Blacklist {
		bad[c] = true
	}
	return keep(in, func(s models.Instrument) bool { return !bad[s.Code] })
}

func (f *UniverseFilter) writeAudit(name string, stocks []models.Instrument) {
	if f.audit == nil {
		return
	}
	if err := f.audit.SaveAudit(name, stocks); err != nil {
		f.log.Warn("write universe audit failed", logger.String("file", name), logger.Error(err))
	}
}

// UniverseService serves the filtered universe from its store, building it
// on first use.
type UniverseService struct {
	md     drepo.MarketData
	filter *UniverseFilter
	store  drepo.UniverseStore
	log    *logger.Logger
	mu     sync.Mutex
}

// NewUniverseService creates a UniverseService.
func NewUniverseService(md drepo.MarketData, filter *UniverseFilter, store drepo.UniverseStore, log *logger.Logger) *UniverseService {
	return &UniverseService{md: md, filter: filter, store: store, log: log}
}

// Stocks returns the cached universe or builds and caches it. A roster
// failure is returned to the caller.
func (s *UniverseService) Stocks(ctx context.Context) ([]models.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Exists() {
		stocks, err := s.store.Load()
		if err == nil {
			return stocks, nil
		}
		s.log.Warn("universe cache unreadable, rebuilding", logger.Error(err))
	}
	return s.rebuild(ctx)
}

// Rebuild ignores the cache and screens the roster again.
func (s *UniverseService) Rebuild(ctx context.Context) ([]models.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuild(ctx)
}

func (s *UniverseService) rebuild(ctx context.Context) ([]models.Instrument, error) {
	roster, err := s.md.ListInstruments(ctx)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, models.EmptyDataf("universe", "instrument roster is empty")
	}
	s.log.Info("instrument roster loaded", logger.Int("stocks", len(roster)))

	stocks := s.filter.Filter(ctx, roster)
	if len(stocks) > 0 {
		if err := s.store.Save(stocks); err != nil {
			s.log.Error("save universe failed", logger.Error(err))
		}
	}
	return stocks, nil
}
