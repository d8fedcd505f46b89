package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	drepo "stockprob/internal/domain/repository"
)

func TestSinkRows(t *testing.T) {
	at := time.Date(2025, 3, 7, 15, 0, 0, 0, time.UTC)
	rows := sinkRows("run-1", "600001.SH", "x", "y2", sampleTable(), at)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	r := rows[0]
	if r[0] != "run-1" || r[1] != "600001.SH" || r[3] != "y2" || r[4] != "range_3_5p" || r[5] != "auction" {
		t.Fatalf("unexpected keys %v", r[:6])
	}
	if r[6] != uint32(2) || r[9] != uint32(3) || r[10] != 66.67 {
		t.Fatalf("unexpected values %v", r)
	}
	if r[len(r)-1] != at {
		t.Fatalf("created_at should be last")
	}
}

type fakeProducer struct {
	topic string
	key   []byte
	value interface{}
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestKafkaPublisherKeysByCode(t *testing.T) {
	prod := &fakeProducer{}
	p := NewKafkaPublisher(prod, "")
	ev := drepo.AnalysisEvent{RunID: "r", Code: "600001.SH", Period: "y2", Samples: 12}
	if err := p.PublishAnalysis(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if prod.topic != DefaultAnalysisTopic || string(prod.key) != "600001.SH" {
		t.Fatalf("unexpected routing %s %s", prod.topic, prod.key)
	}
	b, _ := json.Marshal(prod.value)
	var body map[string]interface{}
	_ = json.Unmarshal(b, &body)
	if body["ts_code"] != "600001.SH" || body["samples"] != float64(12) {
		t.Fatalf("unexpected payload %s", b)
	}
}
