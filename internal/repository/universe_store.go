package repository

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"stockprob/internal/domain/models"
	drepo "stockprob/internal/domain/repository"
)

// UniverseFile is the cached universe file name.
const UniverseFile = "filtered_stocks.csv"

var universeHeader = []string{
	"ts_code", "symbol", "name", "area", "industry", "market", "list_date", "total_mv", "circ_mv",
}

// FileUniverseStore keeps the filtered universe as CSV under dir. The cache
// has no expiry: its existence is enough.
type FileUniverseStore struct {
	dir string
}

// NewFileUniverseStore creates a store rooted at dir.
func NewFileUniverseStore(dir string) *FileUniverseStore {
	return &FileUniverseStore{dir: dir}
}

var _ drepo.UniverseStore = (*FileUniverseStore)(nil)

func (s *FileUniverseStore) path() string {
	return filepath.Join(s.dir, UniverseFile)
}

func (s *FileUniverseStore) Exists() bool {
	_, err := os.Stat(s.path())
	return err == nil
}

func (s *FileUniverseStore) Load() ([]models.Instrument, error) {
	t, err := readCSV(s.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewError(models.KindCacheMiss, "load universe", "no cached universe", err)
		}
		return nil, err
	}
	out := make([]models.Instrument, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.Instrument{
			Code:     t.str(row, "ts_code"),
			Symbol:   t.str(row, "symbol"),
			Name:     t.str(row, "name"),
			Area:     t.str(row, "area"),
			Industry: t.str(row, "industry"),
			Market:   t.str(row, "market"),
			ListDate: t.str(row, "list_date"),
			TotalMV:  t.floatPtr(row, "total_mv"),
			CircMV:   t.floatPtr(row, "circ_mv"),
		})
	}
	return out, nil
}

func (s *FileUniverseStore) Save(stocks []models.Instrument) error {
	return writeCSV(s.path(), universeHeader, instrumentRows(stocks))
}

// SaveAudit writes a screening audit file next to the cache.
func (s *FileUniverseStore) SaveAudit(name string, stocks []models.Instrument) error {
	return writeCSV(filepath.Join(s.dir, name), universeHeader, instrumentRows(stocks))
}

func instrumentRows(stocks []models.Instrument) [][]string {
	rows := make([][]string, 0, len(stocks))
	for _, st := range stocks {
		rows = append(rows, []string{
			st.Code, st.Symbol, st.Name, st.Area, st.Industry, st.Market, st.ListDate,
			formatFloatPtr(st.TotalMV), formatFloatPtr(st.CircMV),
		})
	}
	return rows
}
