package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"stockprob/internal/domain/models"
	"stockprob/pkg/logger"
)

func TestFetcherBatchesAndBoundsWorkers(t *testing.T) {
	f := newFakeMarket()
	var dates []string
	for i := 1; i <= 25; i++ {
		d := fmt.Sprintf("202501%02d", i)
		dates = append(dates, d)
		f.auctions[d] = &models.AuctionSnapshot{TradeDate: d, Open: 10}
	}
	f.failDates["20250103"] = true
	delete(f.auctions, "20250104")

	fetcher := NewFetcher(f, FetchConfig{BatchSize: 10, Workers: 3, BatchPause: time.Second}, logger.Nop())
	var pauses []time.Duration
	fetcher.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	got := fetcher.Auctions(context.Background(), "600001.SH", dates)
	if len(got) != 23 {
		t.Fatalf("expected 23 snapshots, got %d", len(got))
	}
	if _, ok := got["20250103"]; ok {
		t.Fatalf("failed date should be absent")
	}
	if _, ok := got["20250104"]; ok {
		t.Fatalf("empty date should be absent")
	}
	if len(pauses) != 2 || pauses[0] != time.Second {
		t.Fatalf("expected a pause between each of 3 batches, got %v", pauses)
	}
	if f.maxInFlight > 3 {
		t.Fatalf("worker bound exceeded: %d in flight", f.maxInFlight)
	}
	if f.callCount("stk_auction") != 25 {
		t.Fatalf("every date should be fetched once, got %d", f.callCount("stk_auction"))
	}
}

func TestFetcherSessions(t *testing.T) {
	f := newFakeMarket()
	f.sessions["20250305"] = []models.MinuteBar{{Close: 10}}
	fetcher := NewFetcher(f, FetchConfig{}, logger.Nop())

	got := fetcher.Sessions(context.Background(), "600001.SH", []string{"20250305", "20250306"})
	if len(got) != 1 || len(got["20250305"]) != 1 {
		t.Fatalf("unexpected sessions %v", got)
	}
}

func TestFetcherStopsOnCancel(t *testing.T) {
	f := newFakeMarket()
	fetcher := NewFetcher(f, FetchConfig{BatchSize: 1}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := fetcher.Auctions(ctx, "600001.SH", []string{"20250303", "20250304"})
	if len(got) != 0 || f.callCount("stk_auction") != 0 {
		t.Fatalf("cancelled fetch should not call the provider")
	}
}
