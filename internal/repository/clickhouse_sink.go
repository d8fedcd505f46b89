package repository

import (
	"context"
	"fmt"
	"time"

	"stockprob/internal/domain/models"
	"stockprob/internal/domain/repository"
	"stockprob/pkg/clickhouse"
)

// DefaultSinkTable receives one row per (category, horizon) of every saved table.
const DefaultSinkTable = "probability_records"

// ClickHouseSink mirrors saved period tables into ClickHouse.
type ClickHouseSink struct {
	client *clickhouse.Client
	table  string
	now    func() time.Time
}

// NewClickHouseSink creates a sink writing to table.
func NewClickHouseSink(client *clickhouse.Client, table string) *ClickHouseSink {
	if table == "" {
		table = DefaultSinkTable
	}
	return &ClickHouseSink{client: client, table: table, now: time.Now}
}

var _ repository.ResultSink = (*ClickHouseSink)(nil)

// Init creates the target table if needed.
func (s *ClickHouseSink) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, []string{s.schema()})
}

func (s *ClickHouseSink) schema() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id String,
	ts_code LowCardinality(String),
	name String,
	period LowCardinality(String),
	category LowCardinality(String),
	horizon LowCardinality(String),
	up UInt32,
	down UInt32,
	equal UInt32,
	total UInt32,
	up_prob Float64,
	down_prob Float64,
	equal_prob Float64,
	max_pct Float64,
	min_pct Float64,
	close_pct Float64,
	volume_ratio Float64,
	created_at DateTime
) ENGINE = ReplacingMergeTree(created_at)
ORDER BY (ts_code, period, category, horizon)`, s.table)
}

func (s *ClickHouseSink) insertQuery() string {
	return fmt.Sprintf(`INSERT INTO %s (run_id, ts_code, name, period, category, horizon, up, down, equal, total,
	up_prob, down_prob, equal_prob, max_pct, min_pct, close_pct, volume_ratio, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
}

// StoreTable writes every record of table in one batch.
func (s *ClickHouseSink) StoreTable(ctx context.Context, runID, code, name string, period models.Period, table models.PeriodTable) error {
	rows := sinkRows(runID, code, name, period, table, s.now())
	if len(rows) == 0 {
		return nil
	}
	if err := s.client.InsertBatch(ctx, s.insertQuery(), rows); err != nil {
		return fmt.Errorf("store %s %s: %w", code, period, err)
	}
	return nil
}

func sinkRows(runID, code, name string, period models.Period, table models.PeriodTable, at time.Time) [][]interface{} {
	var rows [][]interface{}
	for _, c := range table.OrderedCategories() {
		for _, h := range models.Horizons {
			rec, ok := table[c][h]
			if !ok {
				continue
			}
			rows = append(rows, []interface{}{
				runID, code, name, string(period), string(c), string(h),
				uint32(rec.Up), uint32(rec.Down), uint32(rec.Equal), uint32(rec.Total),
				rec.UpProb, rec.DownProb, rec.EqualProb,
				rec.MaxPct, rec.MinPct, rec.ClosePct, rec.VolumeRatio,
				at,
			})
		}
	}
	return rows
}

// Close is a no-op; the client is owned by the caller.
func (s *ClickHouseSink) Close() error {
	return nil
}

// NopSink discards tables.
type NopSink struct{}

func (NopSink) StoreTable(context.Context, string, string, string, models.Period, models.PeriodTable) error {
	return nil
}

func (NopSink) Close() error { return nil }
