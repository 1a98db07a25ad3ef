// Package dataio reads bar files and parameter documents and writes
// trade dumps. The core never touches the network; everything is
// local files.
package dataio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"gridbt/internal/model"
)

// LoadBars dispatches on file extension: .csv or .parquet.
func LoadBars(path string) ([]model.Bar, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".parquet":
		return loadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported bar file %q (use .csv or .parquet)", path)
	}
}

func loadParquet(path string) ([]model.Bar, error) {
	bars, err := parquet.ReadFile[model.Bar](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	sortBars(bars)
	return bars, nil
}

// loadCSV requires at least time,open,high,low,close,volume in the
// header (any order, any case). Extra columns, including precomputed
// indicators, are ignored: indicators are always recomputed.
func loadCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idx := func(name string) (int, error) {
		i, ok := col[name]
		if !ok {
			return 0, fmt.Errorf("csv %s: missing column %q", path, name)
		}
		return i, nil
	}
	var cols [6]int
	for i, name := range []string{"time", "open", "high", "low", "close", "volume"} {
		if cols[i], err = idx(name); err != nil {
			return nil, err
		}
	}

	var bars []model.Bar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv %s line %d: %w", path, line, err)
		}
		ts, err := parseTime(rec[cols[0]])
		if err != nil {
			return nil, fmt.Errorf("csv %s line %d: %w", path, line, err)
		}
		var b model.Bar
		b.Timestamp = ts
		for i, dst := range []*float64{&b.Open, &b.High, &b.Low, &b.Close} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[i+1]]), 64)
			if err != nil {
				return nil, fmt.Errorf("csv %s line %d: %w", path, line, err)
			}
			*dst = v
		}
		vol, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[5]]), 64)
		if err != nil {
			return nil, fmt.Errorf("csv %s line %d: %w", path, line, err)
		}
		b.Volume = int64(vol)
		bars = append(bars, b)
	}
	sortBars(bars)
	return bars, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
}

// parseTime accepts Unix seconds or a handful of datetime layouts
// (naive timestamps are taken as UTC).
func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unparseable time %q", s)
}

func sortBars(bars []model.Bar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
}
