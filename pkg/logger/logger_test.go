package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewBothWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(&Config{Level: "info", Format: "json", Output: "both", Dir: dir})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info("analysis finished", String("ts_code", "600001.SH"), Float64("seconds", 1.5))

	b, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"ts_code":"600001.SH"`) {
		t.Fatalf("log file missing field: %s", b)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

type capturePublisher struct {
	mu    sync.Mutex
	calls int
	topic string
	done  chan struct{}
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.topic = topic
	if p.calls == 1 {
		close(p.done)
	}
	return nil
}

func TestCollectorFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{})}
	l := Nop()
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 1,
		Topic:          "stockprob.logs",
		Publisher:      pub,
	})
	defer l.RemoveCollector()

	l.Error("fetch failed", Error(errors.New("boom")))

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("collector did not publish")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topic != "stockprob.logs" {
		t.Fatalf("unexpected topic %q", pub.topic)
	}
}
