package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"stockprob/internal/domain/models"
	"stockprob/pkg/logger"
)

// ExportRow is one stored (category, horizon) line in columnar form.
type ExportRow struct {
	Code        string  `parquet:"ts_code,dict"`
	Name        string  `parquet:"name,dict"`
	Period      string  `parquet:"period,dict"`
	Category    string  `parquet:"category,dict"`
	Horizon     string  `parquet:"horizon,dict"`
	UpProb      float64 `parquet:"up_prob"`
	DownProb    float64 `parquet:"down_prob"`
	EqualProb   float64 `parquet:"equal_prob"`
	MaxPct      float64 `parquet:"max_pct"`
	MinPct      float64 `parquet:"min_pct"`
	ClosePct    float64 `parquet:"close_pct"`
	VolumeRatio float64 `parquet:"volume_ratio"`
	Samples     int32   `parquet:"samples"`
}

// ParquetWriter streams rows of T into a file.
type ParquetWriter[T any] struct {
	file   *os.File
	writer *parquet.GenericWriter[T]
}

// NewParquetWriter creates filename with snappy compression unless options
// say otherwise.
func NewParquetWriter[T any](filename string, options ...parquet.WriterOption) (*ParquetWriter[T], error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	opts := append([]parquet.WriterOption{
		parquet.Compression(&parquet.Snappy),
		parquet.PageBufferSize(64 * 1024),
	}, options...)

	return &ParquetWriter[T]{file: f, writer: parquet.NewGenericWriter[T](f, opts...)}, nil
}

// Write appends a batch.
func (p *ParquetWriter[T]) Write(rows []T) error {
	_, err := p.writer.Write(rows)
	return err
}

// Close writes the footer, then closes the file.
func (p *ParquetWriter[T]) Close() error {
	if err := p.writer.Close(); err != nil {
		p.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// ParquetExporter flattens every stored table into one Parquet file.
type ParquetExporter struct {
	store *FileResultStore
	log   *logger.Logger
}

// NewParquetExporter creates an exporter over store.
func NewParquetExporter(store *FileResultStore, log *logger.Logger) *ParquetExporter {
	return &ParquetExporter{store: store, log: log}
}

// Export writes all stored rows to path and returns the row count. Unreadable
// files are logged and skipped.
func (e *ParquetExporter) Export(path string) (int, error) {
	files, err := e.store.AllFiles()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, models.NotFoundf("export", "no stored tables under %s", e.store.dir)
	}

	w, err := NewParquetWriter[ExportRow](path)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range files {
		rows, err := e.store.ReadRows(f)
		if err != nil {
			e.log.Warn("skip unreadable table", logger.String("file", f), logger.Error(err))
			continue
		}
		period := periodFromPath(f)
		batch := make([]ExportRow, 0, len(rows))
		for _, r := range rows {
			batch = append(batch, ExportRow{
				Code:        r.Code,
				Name:        r.Name,
				Period:      string(period),
				Category:    string(r.Category),
				Horizon:     string(r.Horizon),
				UpProb:      r.Record.UpProb,
				DownProb:    r.Record.DownProb,
				EqualProb:   r.Record.EqualProb,
				MaxPct:      r.Record.MaxPct,
				MinPct:      r.Record.MinPct,
				ClosePct:    r.Record.ClosePct,
				VolumeRatio: r.Record.VolumeRatio,
				Samples:     int32(r.Record.Total),
			})
		}
		if err := w.Write(batch); err != nil {
			w.Close()
			return total, fmt.Errorf("write %s: %w", f, err)
		}
		total += len(batch)
	}
	if err := w.Close(); err != nil {
		return total, err
	}
	return total, nil
}

// periodFromPath extracts the period id from {code}_{period}_probability.csv.
func periodFromPath(path string) models.Period {
	base := strings.TrimSuffix(filepath.Base(path), resultSuffix)
	i := strings.LastIndex(base, "_")
	if i < 0 {
		return ""
	}
	return models.Period(base[i+1:])
}
