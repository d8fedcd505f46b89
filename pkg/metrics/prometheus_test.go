package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordProviderCall("daily", "ok", 0.2)
	r.RecordProviderCall("daily", "ok", 0.1)
	r.RecordCache("redis", true)
	r.RecordCache("redis", false)
	r.RecordError("upstream_failure")

	if got := testutil.ToFloat64(r.providerCalls.WithLabelValues("daily", "ok")); got != 2 {
		t.Fatalf("expected 2 provider calls, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("redis", "miss")); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("upstream_failure")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}
