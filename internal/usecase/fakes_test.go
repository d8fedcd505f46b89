package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/pkg/util"
)

var errUpstream = models.Upstream("fake", errors.New("provider down"))

// fakeMarket is an in-memory MarketData. Maps are read-only once a test
// starts; only the counters are guarded.
type fakeMarket struct {
	roster    []models.Instrument
	rosterErr error
	basics    map[string]models.Instrument
	vals      map[string]models.Valuation
	valsErr   error
	tradeDate string
	dateErr   error
	daily     map[string][]models.DailyBar
	dailyErr  map[string]error
	auctions  map[string]*models.AuctionSnapshot
	sessions  map[string][]models.MinuteBar
	failDates map[string]bool

	// when set, valuations and the calendar become date-aware
	valsByDate map[string]map[string]models.Valuation
	openDates  []string

	mu          sync.Mutex
	calls       map[string]int
	inFlight    int
	maxInFlight int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		basics:    map[string]models.Instrument{},
		vals:      map[string]models.Valuation{},
		tradeDate: "20250306",
		daily:     map[string][]models.DailyBar{},
		dailyErr:  map[string]error{},
		auctions:  map[string]*models.AuctionSnapshot{},
		sessions:  map[string][]models.MinuteBar{},
		failDates: map[string]bool{},
		calls:     map[string]int{},
	}
}

var _ drepo.MarketData = (*fakeMarket)(nil)

func (f *fakeMarket) count(api string) {
	f.mu.Lock()
	f.calls[api]++
	f.mu.Unlock()
}

func (f *fakeMarket) callCount(api string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[api]
}

func (f *fakeMarket) enter() func() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	time.Sleep(time.Millisecond)
	return func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}
}

func (f *fakeMarket) ListInstruments(context.Context) ([]models.Instrument, error) {
	f.count("stock_basic")
	return f.roster, f.rosterErr
}

func (f *fakeMarket) StockBasic(_ context.Context, code string) (models.Instrument, error) {
	f.count("stock_basic_one")
	inst, ok := f.basics[code]
	if !ok {
		return models.Instrument{}, models.NotFoundf("stock basic", "%s not found", code)
	}
	return inst, nil
}

func (f *fakeMarket) Valuations(_ context.Context, codes []string, tradeDate string) ([]models.Valuation, error) {
	f.count("daily_basic")
	if f.valsErr != nil {
		return nil, f.valsErr
	}
	vals := f.vals
	if f.valsByDate != nil {
		vals = f.valsByDate[tradeDate]
	}
	var out []models.Valuation
	for _, c := range codes {
		if v, ok := vals[c]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeMarket) LatestTradeDate(_ context.Context, asOf time.Time) (string, error) {
	f.count("trade_cal")
	if f.openDates == nil || f.dateErr != nil {
		return f.tradeDate, f.dateErr
	}
	day, latest := util.FormatTradeDate(asOf), ""
	for _, d := range f.openDates {
		if d <= day && d > latest {
			latest = d
		}
	}
	if latest == "" {
		return "", models.NotFoundf("latest trade date", "no open day on or before %s", day)
	}
	return latest, nil
}

func (f *fakeMarket) DailyBars(_ context.Context, code, start, end string) ([]models.DailyBar, error) {
	f.count("daily")
	if err := f.dailyErr[code]; err != nil {
		return nil, err
	}
	var out []models.DailyBar
	for _, b := range f.daily[code] {
		if b.TradeDate >= start && b.TradeDate <= end {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeMarket) AuctionSnapshot(_ context.Context, _ string, date string) (*models.AuctionSnapshot, error) {
	defer f.enter()()
	f.count("stk_auction")
	if f.failDates[date] {
		return nil, errUpstream
	}
	return f.auctions[date], nil
}

func (f *fakeMarket) SessionBars(_ context.Context, _ string, date string) ([]models.MinuteBar, error) {
	defer f.enter()()
	f.count("stk_mins")
	if f.failDates[date] {
		return nil, errUpstream
	}
	return f.sessions[date], nil
}

func (f *fakeMarket) IntradayBars(ctx context.Context, code, date string, h models.Horizon) ([]models.MinuteBar, error) {
	bars, err := f.SessionBars(ctx, code, date)
	if err != nil {
		return nil, err
	}
	return models.TruncateSession(bars, h), nil
}

// memResultStore keeps tables in memory and treats everything as fresh.
type memResultStore struct {
	mu     sync.Mutex
	tables map[string]models.PeriodTable
	saves  int
}

func newMemResultStore() *memResultStore {
	return &memResultStore{tables: map[string]models.PeriodTable{}}
}

func (s *memResultStore) Load(code string, period models.Period) (models.PeriodTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[code+"_"+string(period)]
	if !ok {
		return nil, models.NewError(models.KindCacheMiss, "load", "", nil)
	}
	return t, nil
}

func (s *memResultStore) Save(code, _ string, period models.Period, table models.PeriodTable) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	key := code + "_" + string(period)
	s.tables[key] = table
	return key, nil
}

func (s *memResultStore) Files(string) ([]string, error) { return nil, nil }

func (s *memResultStore) ReadRows(string) ([]drepo.StoredRow, error) { return nil, nil }

// memUniverseStore keeps the universe and audits in memory.
type memUniverseStore struct {
	stocks []models.Instrument
	saved  bool
	audits map[string][]models.Instrument
}

func newMemUniverseStore() *memUniverseStore {
	return &memUniverseStore{audits: map[string][]models.Instrument{}}
}

func (s *memUniverseStore) Exists() bool { return s.saved }

func (s *memUniverseStore) Load() ([]models.Instrument, error) {
	if !s.saved {
		return nil, models.NewError(models.KindCacheMiss, "load", "", nil)
	}
	return s.stocks, nil
}

func (s *memUniverseStore) Save(stocks []models.Instrument) error {
	s.stocks, s.saved = stocks, true
	return nil
}

func (s *memUniverseStore) SaveAudit(name string, stocks []models.Instrument) error {
	s.audits[name] = stocks
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []drepo.AnalysisEvent
}

func (p *recordingPublisher) PublishAnalysis(_ context.Context, ev drepo.AnalysisEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func fptr(v float64) *float64 { return &v }
