package usecase

import (
	"context"
	"time"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/pkg/logger"
	"stockprob/pkg/util"
)

// StockService answers the query operations exposed over HTTP and the CLI.
type StockService struct {
	universe *UniverseService
	md       drepo.MarketData
	engine   *Engine
	store    drepo.ResultStore
	log      *logger.Logger
	now      func() time.Time
}

// NewStockService creates a StockService.
func NewStockService(universe *UniverseService, md drepo.MarketData, engine *Engine, store drepo.ResultStore, log *logger.Logger) *StockService {
	return &StockService{universe: universe, md: md, engine: engine, store: store, log: log, now: time.Now}
}

// FilteredStocks returns the screened universe.
func (s *StockService) FilteredStocks(ctx context.Context) ([]models.Instrument, error) {
	return s.universe.Stocks(ctx)
}

// StockInfo looks code up in the universe, then falls back to the provider.
func (s *StockService) StockInfo(ctx context.Context, code string) (models.StockInfo, error) {
	stocks, err := s.universe.Stocks(ctx)
	if err != nil {
		s.log.Warn("universe unavailable for info lookup", logger.String("ts_code", code), logger.Error(err))
	}
	for _, st := range stocks {
		if st.Code == code {
			return models.InfoFromInstrument(st), nil
		}
	}

	s.log.Info("stock not in universe, asking provider", logger.String("ts_code", code))
	inst, err := s.md.StockBasic(ctx, code)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return models.StockInfo{}, err
		}
		return models.StockInfo{}, models.NewError(models.KindNotFound, "stock info", "stock "+code+" not found", err)
	}

	date, err := s.md.LatestTradeDate(ctx, s.now())
	if err == nil {
		var vals []models.Valuation
		vals, err = s.md.Valuations(ctx, []string{code}, date)
		if err == nil && len(vals) > 0 {
			inst.TotalMV, inst.CircMV = vals[0].TotalMV, vals[0].CircMV
		}
	}
	if err != nil {
		s.log.Warn("valuation lookup failed", logger.String("ts_code", code), logger.Error(err))
	}
	return models.InfoFromInstrument(inst), nil
}

// StockProbability analyzes code and returns the labelled tables. When period
// names a computed window only that window is returned.
func (s *StockService) StockProbability(ctx context.Context, code string, period models.Period) (models.ProbabilityView, error) {
	info, err := s.StockInfo(ctx, code)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Analyze(ctx, info.Code, info.Name, info.CircMV)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, models.EmptyDataf("stock probability", "no probability data for %s", code)
	}
	return filterPeriod(result.View(), period), nil
}

func filterPeriod(view models.ProbabilityView, period models.Period) models.ProbabilityView {
	if period == "" {
		return view
	}
	if pv, ok := view[period]; ok {
		return models.ProbabilityView{period: pv}
	}
	return view
}

// AllStocksProbability analyzes the whole universe. Failed instruments are
// logged and left out.
func (s *StockService) AllStocksProbability(ctx context.Context, period models.Period) (map[string]models.StockProbabilities, error) {
	return s.EachStockProbability(ctx, period, nil)
}

// EachStockProbability is AllStocksProbability with a per-instrument callback
// invoked after each attempt.
func (s *StockService) EachStockProbability(ctx context.Context, period models.Period, progress func(done, total int, code string)) (map[string]models.StockProbabilities, error) {
	stocks, err := s.universe.Stocks(ctx)
	if err != nil {
		return nil, err
	}
	if len(stocks) == 0 {
		return nil, models.EmptyDataf("all probability", "stock universe is empty")
	}

	out := make(map[string]models.StockProbabilities, len(stocks))
	for i, st := range stocks {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		s.log.Info("analyzing stock",
			logger.Int("index", i+1),
			logger.Int("total", len(stocks)),
			logger.String("ts_code", st.Code),
			logger.String("name", st.Name),
		)
		result, err := s.engine.Analyze(ctx, st.Code, st.Name, st.CircMarketValue())
		switch {
		case err != nil:
			s.log.Warn("stock probability failed", logger.String("ts_code", st.Code), logger.Error(err))
		case len(result) == 0:
			s.log.Warn("stock has no probability data", logger.String("ts_code", st.Code))
		default:
			out[st.Code] = models.StockProbabilities{
				Name: st.Name,
				Data: filterPeriod(result.View(), period),
			}
		}
		if progress != nil {
			progress(i+1, len(stocks), st.Code)
		}
	}
	s.log.Info("universe analyzed", logger.Int("succeeded", len(out)), logger.Int("total", len(stocks)))
	return out, nil
}

// ProbabilityByPct averages every stored row for code whose category matches
// pct, across all periods and horizons.
func (s *StockService) ProbabilityByPct(ctx context.Context, code string, pct float64) (models.PctProbability, error) {
	category := models.Categorize(pct)
	out := models.PctProbability{
		Code:         code,
		PctChg:       pct,
		Category:     category,
		DisplayRange: category.Label(),
	}

	files, err := s.store.Files(code)
	if err != nil {
		return out, err
	}
	if len(files) == 0 {
		return out, models.NotFoundf("probability by pct", "no probability data for %s", code)
	}

	var up, down, equal, samples float64
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rows, err := s.store.ReadRows(path)
		if err != nil {
			s.log.Warn("read probability file failed", logger.String("file", path), logger.Error(err))
			continue
		}
		for _, r := range rows {
			if r.Category != category {
				continue
			}
			up += r.Record.UpProb
			down += r.Record.DownProb
			equal += r.Record.EqualProb
			samples += float64(r.Record.Total)
			if r.Record.MaxPct > out.MaxPct {
				out.MaxPct = r.Record.MaxPct
			}
			if r.Record.MinPct < out.MinPct {
				out.MinPct = r.Record.MinPct
			}
			out.ClosePct = r.Record.ClosePct
			out.Rows++
		}
	}
	if out.Rows == 0 {
		return out, models.NotFoundf("probability by pct", "no probability data for %s at %.2f%%", code, pct)
	}

	n := float64(out.Rows)
	out.UpProb = util.Round2(up / n)
	out.DownProb = util.Round2(down / n)
	out.EqualProb = util.Round2(equal / n)
	out.AvgTotal = util.Round2(samples / n)
	return out, nil
}
