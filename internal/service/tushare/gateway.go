package tushare

import (
	"context"
	"sort"
	"strings"
	"time"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/internal/service/ratelimit"
	"stockprob/pkg/logger"
	"stockprob/pkg/metrics"
	"stockprob/pkg/util"
)

const (
	fieldsStockBasic = "ts_code,symbol,name,area,industry,market,list_date"
	fieldsValuation  = "ts_code,trade_date,close,turnover_rate,volume_ratio,pe,pb,total_mv,circ_mv"
	fieldsDailyBasic = "ts_code,trade_date,close,turnover_rate,volume_ratio,pe,pb,total_mv,circ_mv,pct_chg"
	fieldsDaily      = "ts_code,trade_date,open,high,low,close,pre_close,change,pct_chg,vol,amount"
	fieldsAuction    = "ts_code,trade_date,open,high,low,close,vol,amount,vwap"
	fieldsMinutes    = "ts_code,trade_time,open,high,low,close,vol,amount"
)

var (
	sessionOpen  = [2]int{9, 30}
	sessionClose = [2]int{11, 0}
)

// Gateway implements repository.MarketData over Tushare Pro.
type Gateway struct {
	q       Querier
	mins    *ratelimit.Limiter
	auction *ratelimit.Limiter
	loc     *time.Location
	log     *logger.Logger
	metrics drepo.Metrics
}

// GatewayOption configures Gateway.
type GatewayOption func(*Gateway)

// WithLimiters sets the intraday-bar and auction limiters.
func WithLimiters(mins, auction *ratelimit.Limiter) GatewayOption {
	return func(g *Gateway) {
		g.mins = mins
		g.auction = auction
	}
}

// WithLocation sets the exchange time zone used to parse minute timestamps.
func WithLocation(loc *time.Location) GatewayOption {
	return func(g *Gateway) { g.loc = loc }
}

// WithGatewayMetrics records limiter waits.
func WithGatewayMetrics(m drepo.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a market data gateway backed by q.
func NewGateway(q Querier, log *logger.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		q:       q,
		mins:    ratelimit.PerMinute(500),
		auction: ratelimit.PerMinute(500),
		loc:     time.FixedZone("CST", 8*3600),
		log:     log,
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ drepo.MarketData = (*Gateway)(nil)

func (g *Gateway) query(ctx context.Context, op, api string, params map[string]string, fields string) ([]Row, error) {
	f, err := g.q.Query(ctx, api, params, fields)
	if err != nil {
		g.log.Error("provider call failed",
			logger.String("op", op),
			logger.String("api", api),
			logger.Error(err),
		)
		g.metrics.RecordError(models.KindUpstreamFailure.String())
		return nil, models.Upstream(op, err)
	}
	return f.Rows(), nil
}

func (g *Gateway) acquire(ctx context.Context, name string, l *ratelimit.Limiter) error {
	if l == nil {
		return nil
	}
	start := time.Now()
	err := l.Acquire(ctx)
	g.metrics.RecordLimiterWait(name, time.Since(start).Seconds())
	return err
}

// ListInstruments returns every listed equity.
func (g *Gateway) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	rows, err := g.query(ctx, "list instruments", "stock_basic", map[string]string{
		"exchange":    "",
		"list_status": "L",
	}, fieldsStockBasic)
	if err != nil {
		return nil, err
	}
	out := make([]models.Instrument, 0, len(rows))
	for _, r := range rows {
		out = append(out, instrumentFromRow(r))
	}
	return out, nil
}

// StockBasic returns the roster entry for code.
func (g *Gateway) StockBasic(ctx context.Context, code string) (models.Instrument, error) {
	rows, err := g.query(ctx, "stock basic", "stock_basic", map[string]string{"ts_code": code}, fieldsStockBasic)
	if err != nil {
		return models.Instrument{}, err
	}
	if len(rows) == 0 {
		return models.Instrument{}, models.NotFoundf("stock basic", "stock %s not found", code)
	}
	return instrumentFromRow(rows[0]), nil
}

func instrumentFromRow(r Row) models.Instrument {
	return models.Instrument{
		Code:     r.String("ts_code"),
		Symbol:   r.String("symbol"),
		Name:     r.String("name"),
		Area:     r.String("area"),
		Industry: r.String("industry"),
		Market:   r.String("market"),
		ListDate: r.String("list_date"),
	}
}

// Valuations returns daily_basic rows for codes on one trade date.
func (g *Gateway) Valuations(ctx context.Context, codes []string, tradeDate string) ([]models.Valuation, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := g.query(ctx, "valuations", "daily_basic", map[string]string{
		"ts_code":    strings.Join(codes, ","),
		"trade_date": tradeDate,
	}, fieldsValuation)
	if err != nil {
		return nil, err
	}
	out := make([]models.Valuation, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Valuation{
			Code:         r.String("ts_code"),
			TradeDate:    r.String("trade_date"),
			Close:        r.Float("close"),
			TurnoverRate: r.Float("turnover_rate"),
			VolumeRatio:  r.Float("volume_ratio"),
			PE:           r.Float("pe"),
			PB:           r.Float("pb"),
			TotalMV:      r.FloatPtr("total_mv"),
			CircMV:       r.FloatPtr("circ_mv"),
		})
	}
	return out, nil
}

// LatestTradeDate returns asOf's date when the exchange is open that day,
// otherwise the most recent open day before it.
func (g *Gateway) LatestTradeDate(ctx context.Context, asOf time.Time) (string, error) {
	day := util.FormatTradeDate(asOf.In(g.loc))
	rows, err := g.query(ctx, "latest trade date", "trade_cal", map[string]string{
		"exchange":   "",
		"start_date": day,
		"end_date":   day,
		"is_open":    "1",
	}, "cal_date,is_open")
	if err != nil {
		return "", err
	}
	if len(rows) > 0 {
		return day, nil
	}

	rows, err = g.query(ctx, "latest trade date", "trade_cal", map[string]string{
		"exchange":   "",
		"start_date": util.FormatTradeDate(asOf.In(g.loc).AddDate(0, 0, -30)),
		"end_date":   day,
		"is_open":    "1",
	}, "cal_date,is_open")
	if err != nil {
		return "", err
	}
	latest := ""
	for _, r := range rows {
		if d := r.String("cal_date"); d > latest && d <= day {
			latest = d
		}
	}
	if latest == "" {
		return "", models.NotFoundf("latest trade date", "no open day on or before %s", day)
	}
	return latest, nil
}

// DailyBars returns valuation rows left-joined with price rows, date ascending.
func (g *Gateway) DailyBars(ctx context.Context, code, start, end string) ([]models.DailyBar, error) {
	params := map[string]string{"ts_code": code, "start_date": start, "end_date": end}
	basics, err := g.query(ctx, "daily bars", "daily_basic", params, fieldsDailyBasic)
	if err != nil {
		return nil, err
	}
	prices, err := g.query(ctx, "daily bars", "daily", params, fieldsDaily)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]Row, len(prices))
	for _, p := range prices {
		byDate[p.String("trade_date")] = p
	}

	out := make([]models.DailyBar, 0, len(basics))
	for _, b := range basics {
		bar := models.DailyBar{
			Code:         b.String("ts_code"),
			TradeDate:    b.String("trade_date"),
			Close:        b.Float("close"),
			PctChg:       b.Float("pct_chg"),
			TurnoverRate: b.Float("turnover_rate"),
			VolumeRatio:  b.Float("volume_ratio"),
			PE:           b.Float("pe"),
			PB:           b.Float("pb"),
			TotalMV:      b.Float("total_mv"),
			CircMV:       b.Float("circ_mv"),
		}
		if p, ok := byDate[bar.TradeDate]; ok {
			bar.Open = p.Float("open")
			bar.High = p.Float("high")
			bar.Low = p.Float("low")
			bar.PreClose = p.Float("pre_close")
			bar.Change = p.Float("change")
			bar.Vol = p.Float("vol")
			bar.Amount = p.Float("amount")
			if pct, ok := p.FloatOK("pct_chg"); ok {
				bar.PctChg = pct
			}
			if bar.Close == 0 {
				bar.Close = p.Float("close")
			}
		}
		out = append(out, bar)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TradeDate < out[j].TradeDate })
	return out, nil
}

// AuctionSnapshot returns the opening call auction for code on tradeDate, or
// nil when the provider has none.
func (g *Gateway) AuctionSnapshot(ctx context.Context, code, tradeDate string) (*models.AuctionSnapshot, error) {
	if err := g.acquire(ctx, "auction", g.auction); err != nil {
		return nil, err
	}
	rows, err := g.query(ctx, "auction snapshot", "stk_auction_o", map[string]string{
		"ts_code":    code,
		"trade_date": tradeDate,
	}, fieldsAuction)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &models.AuctionSnapshot{
		Code:      r.String("ts_code"),
		TradeDate: r.String("trade_date"),
		Open:      r.Float("open"),
		High:      r.Float("high"),
		Low:       r.Float("low"),
		Close:     r.Float("close"),
		Vol:       r.Float("vol"),
		Amount:    r.Float("amount"),
		VWAP:      r.Float("vwap"),
	}, nil
}

// SessionBars returns the 1-minute bars of the 09:30-11:00 session, ascending.
func (g *Gateway) SessionBars(ctx context.Context, code, tradeDate string) ([]models.MinuteBar, error) {
	from, to, err := util.SessionBounds(tradeDate, sessionOpen, sessionClose)
	if err != nil {
		return nil, err
	}
	if err := g.acquire(ctx, "minutes", g.mins); err != nil {
		return nil, err
	}
	rows, err := g.query(ctx, "session bars", "stk_mins", map[string]string{
		"ts_code":    code,
		"freq":       "1min",
		"start_date": from,
		"end_date":   to,
	}, fieldsMinutes)
	if err != nil {
		return nil, err
	}

	out := make([]models.MinuteBar, 0, len(rows))
	for _, r := range rows {
		ts, err := util.ParseMinute(r.String("trade_time"), g.loc)
		if err != nil {
			g.log.Warn("skip minute bar with bad timestamp",
				logger.String("ts_code", code),
				logger.String("trade_time", r.String("trade_time")),
			)
			continue
		}
		out = append(out, models.MinuteBar{
			Code:      r.String("ts_code"),
			TradeTime: ts,
			Open:      r.Float("open"),
			High:      r.Float("high"),
			Low:       r.Float("low"),
			Close:     r.Float("close"),
			Vol:       r.Float("vol"),
			Amount:    r.Float("amount"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TradeTime.Before(out[j].TradeTime) })
	return out, nil
}

// IntradayBars returns the session bars that fall inside horizon h.
func (g *Gateway) IntradayBars(ctx context.Context, code, tradeDate string, h models.Horizon) ([]models.MinuteBar, error) {
	bars, err := g.SessionBars(ctx, code, tradeDate)
	if err != nil {
		return nil, err
	}
	return models.TruncateSession(bars, h), nil
}
