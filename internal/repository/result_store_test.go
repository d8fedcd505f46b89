package repository

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stockprob/internal/domain/models"
)

func sampleTable() models.PeriodTable {
	table := make(models.PeriodTable)
	table.Set(models.CategoryRange3To5, models.HorizonAuction, models.ProbabilityRecord{
		Up: 2, Down: 1, Total: 3, UpProb: 66.67, DownProb: 33.33, MaxPct: 1.5, MinPct: -0.5, ClosePct: 1, VolumeRatio: 0.01,
	})
	table.Set(models.CategoryRange3To5, models.Horizon5Min, models.ProbabilityRecord{
		Up: 1, Equal: 2, Total: 3, UpProb: 33.33, EqualProb: 66.67, MaxPct: 2.25,
	})
	table.Set(models.CategoryFlat, models.Horizon1Min, models.ProbabilityRecord{
		Down: 1, Total: 1, DownProb: 100,
	})
	return table
}

func TestResultStoreSaveLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewFileResultStore(dir)

	path, err := s.Save("600001.SH", "邯郸钢铁", "y2", sampleTable())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != filepath.Join(dir, "600001.SH_y2_probability.csv") {
		t.Fatalf("unexpected path %s", path)
	}

	data, _ := os.ReadFile(path)
	if !bytes.HasPrefix(data, utf8BOM) {
		t.Fatalf("file should start with a BOM")
	}
	if !bytes.Contains(data, []byte("股票代码,股票名称,当日涨幅,场景描述,时间段")) {
		t.Fatalf("missing header: %s", data)
	}

	table, err := s.Load("600001.SH", "y2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rec := table[models.CategoryRange3To5][models.HorizonAuction]
	if rec.UpProb != 66.67 || rec.DownProb != 33.33 || rec.Total != 3 || rec.MaxPct != 1.5 || rec.VolumeRatio != 0.01 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if table[models.CategoryFlat][models.Horizon1Min].DownProb != 100 {
		t.Fatalf("flat row lost: %+v", table[models.CategoryFlat])
	}
}

func TestResultStoreLoadMiss(t *testing.T) {
	s := NewFileResultStore(t.TempDir())
	if _, err := s.Load("600001.SH", "y2"); !models.IsKind(err, models.KindCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func TestResultStoreLoadStale(t *testing.T) {
	s := NewFileResultStore(t.TempDir())
	path, err := s.Save("600001.SH", "x", "y2", sampleTable())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := s.Load("600001.SH", "y2"); !models.IsKind(err, models.KindCacheMiss) {
		t.Fatalf("expected stale table to miss, got %v", err)
	}
}

func TestResultStoreRowsAndFiles(t *testing.T) {
	s := NewFileResultStore(t.TempDir())
	for _, p := range []models.Period{"y2", "m3"} {
		if _, err := s.Save("600001.SH", "x", p, sampleTable()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if _, err := s.Save("000001.SZ", "y", "y2", sampleTable()); err != nil {
		t.Fatalf("save: %v", err)
	}

	files, err := s.Files("600001.SH")
	if err != nil || len(files) != 2 {
		t.Fatalf("expected 2 files, got %v (%v)", files, err)
	}
	all, _ := s.AllFiles()
	if len(all) != 3 {
		t.Fatalf("expected 3 files overall, got %v", all)
	}

	rows, err := s.ReadRows(files[0])
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	// display order: 3-5 first, auction before 5min
	if rows[0].Category != models.CategoryRange3To5 || rows[0].Horizon != models.HorizonAuction {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].Horizon != models.Horizon5Min || rows[2].Category != models.CategoryFlat {
		t.Fatalf("unexpected order %+v", rows)
	}
}
