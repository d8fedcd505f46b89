package di

import (
	"testing"

	internalrepo "stockprob/internal/repository"
	"stockprob/pkg/config"
	"stockprob/pkg/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Output = "stdout"
	cfg.Log.Level = "error"
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

func TestEnginePeriods(t *testing.T) {
	specs, err := enginePeriods([]string{"m3", "y2"})
	if err != nil {
		t.Fatalf("periods: %v", err)
	}
	if len(specs) != 2 || specs[0].ID != "m3" || specs[1].Days() != 730 {
		t.Fatalf("unexpected specs %+v", specs)
	}
	if _, err := enginePeriods([]string{"w1"}); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}

func TestOptionalBackendsDisabled(t *testing.T) {
	cfg := testConfig(t)

	producer, err := ProvideKafkaProducer(cfg)
	if err != nil || producer != nil {
		t.Fatalf("kafka should be off: %v %v", producer, err)
	}
	if _, ok := ProvideEventPublisher(cfg, nil).(internalrepo.NopPublisher); !ok {
		t.Fatalf("expected nop publisher")
	}
	client, err := ProvideClickHouseClient(cfg)
	if err != nil || client != nil {
		t.Fatalf("clickhouse should be off: %v", err)
	}
	sink, err := ProvideResultSink(cfg, nil)
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	if _, ok := sink.(internalrepo.NopSink); !ok {
		t.Fatalf("expected nop sink, got %T", sink)
	}
	c, err := ProvideCache(cfg)
	if err != nil || c != nil {
		t.Fatalf("cache should be off: %v", err)
	}
}

func TestProvideMemoryCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = true
	c, err := ProvideCache(cfg)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer c.Close()
	if c == nil {
		t.Fatalf("expected memory cache")
	}
}

func TestProvideMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	if _, ok := ProvideMetrics(cfg, ProvideRegistry()).(metrics.Nop); !ok {
		t.Fatalf("expected nop metrics")
	}
}

func TestInitializeApp(t *testing.T) {
	app, err := InitializeApp(testConfig(t))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if app.Stocks == nil || app.Universe == nil || app.Exporter == nil {
		t.Fatalf("app is missing services")
	}
	if err := app.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
