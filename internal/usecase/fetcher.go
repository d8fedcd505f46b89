package usecase

import (
	"context"
	"sync"
	"time"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/pkg/logger"
	"stockprob/pkg/util"
)

// FetchConfig bounds how next-day data is pulled from the provider.
type FetchConfig struct {
	BatchSize  int
	Workers    int
	BatchPause time.Duration
}

// DefaultFetchConfig returns batches of 100 dates, 10 workers and a one second
// pause between batches.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		BatchSize:  100,
		Workers:    10,
		BatchPause: time.Second,
	}
}

// Fetcher pulls per-date auction snapshots and minute sessions for one
// instrument with a bounded worker pool. Results are returned as maps owned by
// the caller; workers never touch them. Per-call deadlines belong to the
// MarketData implementation so that rate limiter waits do not count against
// them.
type Fetcher struct {
	md    drepo.MarketData
	cfg   FetchConfig
	log   *logger.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher.
func NewFetcher(md drepo.MarketData, cfg FetchConfig, log *logger.Logger) *Fetcher {
	def := DefaultFetchConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}
	return &Fetcher{md: md, cfg: cfg, log: log, sleep: sleepCtx}
}

// Auctions returns the auction snapshot for every date that has one.
func (f *Fetcher) Auctions(ctx context.Context, code string, dates []string) map[string]*models.AuctionSnapshot {
	return fetchAll(ctx, f, "auction", code, dates, func(ctx context.Context, date string) (*models.AuctionSnapshot, bool, error) {
		snap, err := f.md.AuctionSnapshot(ctx, code, date)
		return snap, snap != nil, err
	})
}

// Sessions returns the full morning minute session for every date that has one.
func (f *Fetcher) Sessions(ctx context.Context, code string, dates []string) map[string][]models.MinuteBar {
	return fetchAll(ctx, f, "minutes", code, dates, func(ctx context.Context, date string) ([]models.MinuteBar, bool, error) {
		bars, err := f.md.SessionBars(ctx, code, date)
		return bars, len(bars) > 0, err
	})
}

type fetchResult[T any] struct {
	date string
	val  T
	ok   bool
	err  error
}

func fetchAll[T any](ctx context.Context, f *Fetcher, kind, code string, dates []string, fetch func(context.Context, string) (T, bool, error)) map[string]T {
	out := make(map[string]T, len(dates))
	batches := util.Chunk(dates, f.cfg.BatchSize)
	start := time.Now()

	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		f.log.Debug("fetch batch",
			logger.String("kind", kind),
			logger.String("ts_code", code),
			logger.Int("batch", i+1),
			logger.Int("batches", len(batches)),
			logger.Int("dates", len(batch)),
		)

		jobs := make(chan string)
		results := make(chan fetchResult[T])
		workers := f.cfg.Workers
		if workers > len(batch) {
			workers = len(batch)
		}

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for date := range jobs {
					val, ok, err := fetch(ctx, date)
					results <- fetchResult[T]{date: date, val: val, ok: ok, err: err}
				}
			}()
		}
		go func() {
			defer close(jobs)
			for _, d := range batch {
				select {
				case jobs <- d:
				case <-ctx.Done():
					return
				}
			}
		}()
		go func() {
			wg.Wait()
			close(results)
		}()

		for r := range results {
			if r.err != nil {
				f.log.Warn("fetch failed",
					logger.String("kind", kind),
					logger.String("ts_code", code),
					logger.String("trade_date", r.date),
					logger.Error(r.err),
				)
				continue
			}
			if r.ok {
				out[r.date] = r.val
			}
		}

		if i < len(batches)-1 && f.cfg.BatchPause > 0 {
			if err := f.sleep(ctx, f.cfg.BatchPause); err != nil {
				break
			}
		}
	}

	f.log.Info("fetch finished",
		logger.String("kind", kind),
		logger.String("ts_code", code),
		logger.Int("with_data", len(out)),
		logger.Int("dates", len(dates)),
		logger.Duration("elapsed_ms", time.Since(start)),
	)
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
