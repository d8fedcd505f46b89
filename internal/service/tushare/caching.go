package tushare

import (
	"context"
	"errors"
	"time"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/pkg/cache"
	"stockprob/pkg/logger"
	"stockprob/pkg/metrics"
)

// CacheTTLs sets how long each cached lookup lives.
type CacheTTLs struct {
	Roster    time.Duration
	Basic     time.Duration
	DailyBars time.Duration
}

// CachedMarketData memoizes slow-changing lookups of an underlying
// MarketData. Auction and minute data always go to the provider.
type CachedMarketData struct {
	drepo.MarketData
	cache   cache.Service
	ttl     CacheTTLs
	log     *logger.Logger
	metrics drepo.Metrics
}

// NewCachedMarketData wraps next with c.
func NewCachedMarketData(next drepo.MarketData, c cache.Service, ttl CacheTTLs, log *logger.Logger, m drepo.Metrics) *CachedMarketData {
	if m == nil {
		m = metrics.Nop{}
	}
	return &CachedMarketData{MarketData: next, cache: c, ttl: ttl, log: log, metrics: m}
}

func cached[T any](ctx context.Context, d *CachedMarketData, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var v T
	if ttl > 0 {
		err := d.cache.Get(ctx, key, &v)
		if err == nil {
			d.metrics.RecordCache("market_data", true)
			return v, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			d.log.Warn("market data cache read failed", logger.String("key", key), logger.Error(err))
		}
		d.metrics.RecordCache("market_data", false)
	}

	v, err := load()
	if err != nil || ttl <= 0 {
		return v, err
	}
	if err := d.cache.Set(ctx, key, v, ttl); err != nil {
		d.log.Warn("market data cache write failed", logger.String("key", key), logger.Error(err))
	}
	return v, nil
}

func (d *CachedMarketData) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	return cached(ctx, d, cache.Key("roster"), d.ttl.Roster, func() ([]models.Instrument, error) {
		return d.MarketData.ListInstruments(ctx)
	})
}

func (d *CachedMarketData) StockBasic(ctx context.Context, code string) (models.Instrument, error) {
	return cached(ctx, d, cache.Key("basic", code), d.ttl.Basic, func() (models.Instrument, error) {
		return d.MarketData.StockBasic(ctx, code)
	})
}

func (d *CachedMarketData) DailyBars(ctx context.Context, code, start, end string) ([]models.DailyBar, error) {
	return cached(ctx, d, cache.Key("daily", code, start, end), d.ttl.DailyBars, func() ([]models.DailyBar, error) {
		return d.MarketData.DailyBars(ctx, code, start, end)
	})
}
