package repository

import (
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"stockprob/internal/domain/models"
	"stockprob/pkg/logger"
)

func TestParquetExport(t *testing.T) {
	dir := t.TempDir()
	s := NewFileResultStore(dir)
	if _, err := s.Save("600001.SH", "邯郸钢铁", "y2", sampleTable()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Save("000001.SZ", "平安银行", "m3", sampleTable()); err != nil {
		t.Fatalf("save: %v", err)
	}

	out := filepath.Join(t.TempDir(), "export", "probabilities.parquet")
	n, err := NewParquetExporter(s, logger.Nop()).Export(out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 6 {
		t.Fatalf("expected 6 rows, got %d", n)
	}

	rows, err := parquet.ReadFile[ExportRow](out)
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows back, got %d", len(rows))
	}
	// files are sorted, so 000001.SZ comes first
	first := rows[0]
	if first.Code != "000001.SZ" || first.Period != "m3" || first.Category != string(models.CategoryRange3To5) {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.Horizon != string(models.HorizonAuction) || first.UpProb != 66.67 || first.Samples != 3 {
		t.Fatalf("unexpected values %+v", first)
	}
}

func TestParquetExportEmpty(t *testing.T) {
	s := NewFileResultStore(t.TempDir())
	_, err := NewParquetExporter(s, logger.Nop()).Export(filepath.Join(t.TempDir(), "x.parquet"))
	if !models.IsKind(err, models.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPeriodFromPath(t *testing.T) {
	if got := periodFromPath("/data/600001.SH_y2_probability.csv"); got != "y2" {
		t.Fatalf("unexpected period %q", got)
	}
}
