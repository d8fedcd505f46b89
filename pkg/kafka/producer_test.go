package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEncodesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.Publish(context.Background(), "analysis.completed", []byte("600001.SH"), map[string]interface{}{"period": "y2"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "analysis.completed" || string(m.Key) != "600001.SH" {
		t.Fatalf("unexpected message %+v", m)
	}
	var body map[string]string
	if err := json.Unmarshal(m.Value, &body); err != nil || body["period"] != "y2" {
		t.Fatalf("unexpected body %s: %v", m.Value, err)
	}
}

func TestPublishBatchPassesRawBytes(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "zstd")

	err := p.PublishBatch(context.Background(), "t", []Message{
		{Value: []byte("raw")},
		{Value: "text"},
	})
	if err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	if string(w.msgs[0].Value) != "raw" || string(w.msgs[1].Value) != "text" {
		t.Fatalf("values should pass through unchanged: %+v", w.msgs)
	}
	if err := p.PublishBatch(context.Background(), "t", nil); err != nil || len(w.msgs) != 2 {
		t.Fatalf("empty batch should be a no-op")
	}
}

func TestPublishReturnsWriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "gzip")

	if err := p.PublishMessage(context.Background(), "logs", []string{"x"}); err == nil {
		t.Fatalf("expected writer error")
	}
	_ = p.Close()
	if !w.closed {
		t.Fatalf("close should reach the writer")
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
