package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
	"stockprob/pkg/util"
)

// Result file columns.
const (
	colCode        = "股票代码"
	colName        = "股票名称"
	colCategory    = "当日涨幅"
	colScenario    = "场景描述"
	colHorizon     = "时间段"
	colUpProb      = "涨概率"
	colDownProb    = "跌概率"
	colEqualProb   = "平概率"
	colMaxPct      = "最大涨幅"
	colMinPct      = "最小涨幅"
	colClosePct    = "收盘涨幅"
	colVolumeRatio = "成交量占比"
	colSamples     = "样本数"
)

const resultSuffix = "_probability.csv"

var resultHeader = []string{
	colCode, colName, colCategory, colScenario, colHorizon,
	colUpProb, colDownProb, colEqualProb,
	colMaxPct, colMinPct, colClosePct, colVolumeRatio, colSamples,
}

// FileResultStore keeps one CSV per (instrument, period) under dir.
type FileResultStore struct {
	dir string
	now func() time.Time
}

// NewFileResultStore creates a store rooted at dir.
func NewFileResultStore(dir string) *FileResultStore {
	return &FileResultStore{dir: dir, now: time.Now}
}

var _ drepo.ResultStore = (*FileResultStore)(nil)

// Path returns the file holding code's table for period.
func (s *FileResultStore) Path(code string, period models.Period) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s%s", code, period, resultSuffix))
}

// Load returns the stored table when it was written today.
func (s *FileResultStore) Load(code string, period models.Period) (models.PeriodTable, error) {
	path := s.Path(code, period)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewError(models.KindCacheMiss, "load result", "no stored table", nil)
		}
		return nil, err
	}
	if !util.SameDay(s.now(), info.ModTime()) {
		return nil, models.NewError(models.KindCacheMiss, "load result", "stored table is stale", nil)
	}

	rows, err := s.ReadRows(path)
	if err != nil {
		return nil, err
	}
	table := make(models.PeriodTable)
	for _, r := range rows {
		table.Set(r.Category, r.Horizon, r.Record)
	}
	return table, nil
}

// Save overwrites code's table for period and returns the file path.
func (s *FileResultStore) Save(code, name string, period models.Period, table models.PeriodTable) (string, error) {
	rows := make([][]string, 0, len(table)*len(models.Horizons))
	for _, c := range table.OrderedCategories() {
		recs := table[c]
		for _, h := range orderedHorizons(recs) {
			rec := recs[h]
			rows = append(rows, []string{
				code,
				name,
				c.Label(),
				c.Scenario(),
				h.Label(),
				formatFloat(rec.UpProb),
				formatFloat(rec.DownProb),
				formatFloat(rec.EqualProb),
				formatFloat(rec.MaxPct),
				formatFloat(rec.MinPct),
				formatFloat(rec.ClosePct),
				formatFloat(rec.VolumeRatio),
				strconv.Itoa(rec.Total),
			})
		}
	}
	path := s.Path(code, period)
	if err := writeCSV(path, resultHeader, rows); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func orderedHorizons(recs map[models.Horizon]models.ProbabilityRecord) []models.Horizon {
	out := make([]models.Horizon, 0, len(recs))
	seen := make(map[models.Horizon]bool, len(recs))
	for _, h := range models.Horizons {
		if _, ok := recs[h]; ok {
			out = append(out, h)
			seen[h] = true
		}
	}
	var extra []models.Horizon
	for h := range recs {
		if !seen[h] {
			extra = append(extra, h)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// Files lists every stored table for code.
func (s *FileResultStore) Files(code string) ([]string, error) {
	return s.glob(code + "_*" + resultSuffix)
}

// AllFiles lists every stored table.
func (s *FileResultStore) AllFiles() ([]string, error) {
	return s.glob("*" + resultSuffix)
}

func (s *FileResultStore) glob(pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadRows parses one stored table.
func (s *FileResultStore) ReadRows(path string) ([]drepo.StoredRow, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := make([]drepo.StoredRow, 0, len(t.rows))
	for _, row := range t.rows {
		samples, _ := strconv.Atoi(t.str(row, colSamples))
		out = append(out, drepo.StoredRow{
			Code:     t.str(row, colCode),
			Name:     t.str(row, colName),
			Category: models.ParseCategoryLabel(t.str(row, colCategory)),
			Horizon:  models.ParseHorizonLabel(t.str(row, colHorizon)),
			Record: models.ProbabilityRecord{
				Total:       samples,
				UpProb:      t.float(row, colUpProb),
				DownProb:    t.float(row, colDownProb),
				EqualProb:   t.float(row, colEqualProb),
				MaxPct:      t.float(row, colMaxPct),
				MinPct:      t.float(row, colMinPct),
				ClosePct:    t.float(row, colClosePct),
				VolumeRatio: t.float(row, colVolumeRatio),
			},
		})
	}
	return out, nil
}
