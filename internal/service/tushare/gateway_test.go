package tushare

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"stockprob/internal/domain/models"
	"stockprob/internal/service/ratelimit"
	"stockprob/internal/usecase"
	"stockprob/pkg/cache"
	"stockprob/pkg/logger"
)

type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int
	seen  []request
	reply func(req request) response
}

func newFakeAPI(t *testing.T, reply func(req request) response) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{calls: map[string]int{}, reply: reply}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.calls[req.APIName]++
		f.seen = append(f.seen, req)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(f.reply(req))
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func frame(fields []string, items ...[]interface{}) *Frame {
	return &Frame{Fields: fields, Items: items}
}

func newTestGateway(srv *httptest.Server) *Gateway {
	c := NewClient("secret", WithURL(srv.URL))
	return NewGateway(c, logger.Nop())
}

func TestQuerySendsTokenAndParams(t *testing.T) {
	api, srv := newFakeAPI(t, func(req request) response {
		return response{Data: frame([]string{"ts_code", "name"}, []interface{}{"600001.SH", "样例"})}
	})
	c := NewClient("secret", WithURL(srv.URL), WithRateLimit(100, 1))

	f, err := c.Query(context.Background(), "stock_basic", map[string]string{"list_status": "L"}, "ts_code,name")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if f.Len() != 1 || f.Rows()[0].String("name") != "样例" {
		t.Fatalf("unexpected frame %+v", f)
	}
	got := api.seen[0]
	if got.Token != "secret" || got.Params["list_status"] != "L" || got.Fields != "ts_code,name" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestQueryProviderErrorIsUpstream(t *testing.T) {
	_, srv := newFakeAPI(t, func(req request) response {
		return response{Code: 40203, Msg: "no permission"}
	})
	g := newTestGateway(srv)

	_, err := g.ListInstruments(context.Background())
	if !models.IsKind(err, models.KindUpstreamFailure) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
}

func TestDailyBarsJoinAndOrder(t *testing.T) {
	_, srv := newFakeAPI(t, func(req request) response {
		switch req.APIName {
		case "daily_basic":
			return response{Data: frame(
				[]string{"ts_code", "trade_date", "close", "total_mv", "circ_mv"},
				[]interface{}{"600001.SH", "20250311", 10.3, 500000.0, 400000.0},
				[]interface{}{"600001.SH", "20250310", 10.0, 490000.0, 390000.0},
			)}
		case "daily":
			return response{Data: frame(
				[]string{"ts_code", "trade_date", "open", "pct_chg", "amount"},
				[]interface{}{"600001.SH", "20250311", 10.1, 3.0, 12345.0},
			)}
		}
		return response{Data: &Frame{}}
	})
	g := newTestGateway(srv)

	bars, err := g.DailyBars(context.Background(), "600001.SH", "20150101", "20250311")
	if err != nil {
		t.Fatalf("daily bars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].TradeDate != "20250310" || bars[1].TradeDate != "20250311" {
		t.Fatalf("bars not ascending: %+v", bars)
	}
	if bars[1].PctChg != 3.0 || bars[1].Open != 10.1 || bars[1].Amount != 12345 {
		t.Fatalf("price row not joined: %+v", bars[1])
	}
	if bars[0].Open != 0 || bars[0].Close != 10.0 {
		t.Fatalf("row without price data should keep valuation fields only: %+v", bars[0])
	}
}

func TestSessionBarsParsesAndSorts(t *testing.T) {
	api, srv := newFakeAPI(t, func(req request) response {
		return response{Data: frame(
			[]string{"ts_code", "trade_time", "open", "high", "low", "close"},
			[]interface{}{"600001.SH", "2025-03-11 09:31:00", 10.2, 10.4, 10.1, 10.3},
			[]interface{}{"600001.SH", "2025-03-11 09:30:00", 10.1, 10.2, 10.0, 10.2},
			[]interface{}{"600001.SH", "bad", 1, 1, 1, 1},
		)}
	})
	g := newTestGateway(srv)

	bars, err := g.SessionBars(context.Background(), "600001.SH", "20250311")
	if err != nil {
		t.Fatalf("session bars: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 10.2 || bars[1].Close != 10.3 {
		t.Fatalf("unexpected bars %+v", bars)
	}
	req := api.seen[0]
	if req.Params["freq"] != "1min" ||
		req.Params["start_date"] != "2025-03-11 09:30:00" ||
		req.Params["end_date"] != "2025-03-11 11:00:00" {
		t.Fatalf("unexpected minute params %+v", req.Params)
	}

	one, err := g.IntradayBars(context.Background(), "600001.SH", "20250311", models.Horizon1Min)
	if err != nil || len(one) != 1 || one[0].Close != 10.2 {
		t.Fatalf("1min horizon should keep the first bar: %+v %v", one, err)
	}
}

func TestAuctionSnapshotEmpty(t *testing.T) {
	_, srv := newFakeAPI(t, func(req request) response {
		return response{Data: frame([]string{"ts_code"})}
	})
	g := newTestGateway(srv)

	snap, err := g.AuctionSnapshot(context.Background(), "600001.SH", "20250311")
	if err != nil || snap != nil {
		t.Fatalf("expected no snapshot, got %+v %v", snap, err)
	}
}

func TestCallTimeoutExcludesLimiterWait(t *testing.T) {
	_, srv := newFakeAPI(t, func(req request) response {
		return response{Data: frame([]string{"ts_code", "trade_date", "open"},
			[]interface{}{"600001.SH", req.Params["trade_date"], 10.0},
		)}
	})
	c := NewClient("secret", WithURL(srv.URL), WithRateLimit(2, 2), WithCallTimeout(300*time.Millisecond))
	g := NewGateway(c, logger.Nop(), WithLimiters(ratelimit.New(2, time.Second), ratelimit.New(2, time.Second)))
	fetcher := usecase.NewFetcher(g, usecase.FetchConfig{Workers: 6}, logger.Nop())

	dates := []string{"20250303", "20250304", "20250305", "20250306", "20250307", "20250310"}
	got := fetcher.Auctions(context.Background(), "600001.SH", dates)
	if len(got) != len(dates) {
		t.Fatalf("throttled dates were dropped: kept %d of %d", len(got), len(dates))
	}
	for _, d := range dates {
		if got[d] == nil || got[d].TradeDate != d {
			t.Fatalf("missing snapshot for %s: %+v", d, got[d])
		}
	}
}

func TestLatestTradeDateFallsBack(t *testing.T) {
	_, srv := newFakeAPI(t, func(req request) response {
		if req.Params["start_date"] == req.Params["end_date"] {
			return response{Data: frame([]string{"cal_date", "is_open"})}
		}
		return response{Data: frame([]string{"cal_date", "is_open"},
			[]interface{}{"20250307", 1.0},
			[]interface{}{"20250306", 1.0},
		)}
	})
	g := newTestGateway(srv)

	sat := time.Date(2025, 3, 8, 12, 0, 0, 0, time.FixedZone("CST", 8*3600))
	d, err := g.LatestTradeDate(context.Background(), sat)
	if err != nil || d != "20250307" {
		t.Fatalf("expected 20250307, got %q %v", d, err)
	}
}

func TestStockBasicNotFound(t *testing.T) {
	_, srv := newFakeAPI(t, func(req request) response {
		return response{Data: frame([]string{"ts_code"})}
	})
	g := newTestGateway(srv)

	_, err := g.StockBasic(context.Background(), "999999.SH")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCachedMarketDataMemoizesRoster(t *testing.T) {
	api, srv := newFakeAPI(t, func(req request) response {
		return response{Data: frame([]string{"ts_code", "name"}, []interface{}{"600001.SH", "样例"})}
	})
	mem := cache.NewMemoryCache()
	defer mem.Close()
	md := NewCachedMarketData(newTestGateway(srv), mem, CacheTTLs{Roster: time.Hour}, logger.Nop(), nil)

	for i := 0; i < 3; i++ {
		got, err := md.ListInstruments(context.Background())
		if err != nil || len(got) != 1 {
			t.Fatalf("list: %v %v", got, err)
		}
	}
	if api.calls["stock_basic"] != 1 {
		t.Fatalf("expected one provider call, got %d", api.calls["stock_basic"])
	}
}
