package logger

import (
	"context"
	"sync"
	"testing"
	"time"
)

type batchPublisher struct {
	mu      sync.Mutex
	batches [][]AggregatedLogEntry
}

func (p *batchPublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollectorDeduplicates(t *testing.T) {
	pub := &batchPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Publisher: pub})

	fields := map[string]interface{}{"ts_code": "600001.SH", "api": "stk_mins"}
	c.AddLog("error", "fetch failed", fields, "a.go:1")
	c.AddLog("error", "fetch failed", map[string]interface{}{"api": "stk_mins", "ts_code": "600001.SH"}, "a.go:1")
	c.AddLog("error", "fetch failed", fields, "b.go:2")
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 {
		t.Fatalf("expected one flush on close, got %d", len(pub.batches))
	}
	batch := pub.batches[0]
	if len(batch) != 2 {
		t.Fatalf("expected 2 unique entries, got %d", len(batch))
	}
	if batch[0].Caller != "a.go:1" || batch[0].Count != 2 {
		t.Fatalf("unexpected first entry %+v", batch[0])
	}
}

func TestCollectorWithoutPublisher(t *testing.T) {
	c := NewLogCollector(&CollectionConfig{CountThreshold: 1})
	c.AddLog("error", "x", nil, "c")
	c.Close()
}
