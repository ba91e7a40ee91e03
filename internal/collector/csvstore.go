package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ForexLens/internal/model"
)

var csvHeader = []string{"date", "open", "high", "low", "close"}

// CSVStore keeps raw daily series as {Dir}/{BASE}_{QUOTE}_daily.csv.
// It also implements Fetcher for offline runs against saved data.
type CSVStore struct {
	Dir string
}

// NewCSVStore creates a store rooted at dir.
func NewCSVStore(dir string) *CSVStore { return &CSVStore{Dir: dir} }

func (s *CSVStore) Name() string { return "csv" }

// Path returns the file used for a pair.
func (s *CSVStore) Path(pair model.Pair) string {
	return filepath.Join(s.Dir, pair.FileKey()+"_daily.csv")
}

// Load reads a pair's series. A missing file yields ErrMissingSeries.
func (s *CSVStore) Load(pair model.Pair) (*model.PriceSeries, error) {
	f, err := os.Open(s.Path(pair))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no saved data for %s", model.ErrMissingSeries, pair)
		}
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path(pair), err)
	}
	if len(rows) > 0 && rows[0][0] == csvHeader[0] {
		rows = rows[1:]
	}
	bars := make([]model.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.Path(pair), i+1, err)
		}
		bars = append(bars, bar)
	}
	return model.NewPriceSeries(pair, bars)
}

func parseCSVRow(row []string) (model.Bar, error) {
	if len(row) < len(csvHeader) {
		return model.Bar{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}
	t, err := time.Parse(time.DateOnly, row[0])
	if err != nil {
		return model.Bar{}, err
	}
	var vals [4]float64
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(row[i+1], 64); err != nil {
			return model.Bar{}, err
		}
	}
	return model.Bar{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}, nil
}

// Save writes a series, replacing any previous file for the pair.
func (s *CSVStore) Save(series *model.PriceSeries) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	path := s.Path(series.Pair())
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	_ = w.Write(csvHeader)
	for _, b := range series.Bars() {
		_ = w.Write([]string{
			b.Time.Format(time.DateOnly),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *CSVStore) FetchDailySeries(_ context.Context, pair model.Pair) (*model.PriceSeries, error) {
	return s.Load(pair)
}

// FetchQuote returns the last saved close as the rate.
func (s *CSVStore) FetchQuote(_ context.Context, pair model.Pair) (model.Quote, error) {
	series, err := s.Load(pair)
	if err != nil {
		return model.Quote{}, err
	}
	if series.Len() == 0 {
		return model.Quote{}, fmt.Errorf("%w: empty saved data for %s", model.ErrMissingSeries, pair)
	}
	last := series.Last()
	return model.Quote{Pair: pair, Rate: last.Close, Time: last.Time}, nil
}
