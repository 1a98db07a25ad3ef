package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// Summary is the run-metadata artifact written after a completed
// sweep. Cancelled sweeps never produce it.
type Summary struct {
	Timestamp  time.Time `json:"timestamp"`
	Strategy   string    `json:"strategy"`
	TotalTests int       `json:"total_tests"`
	GridSize   int       `json:"grid_size"`
	Sampled    bool      `json:"sampled"`
	Failed     int       `json:"failed"`
	TopN       []Record  `json:"top_n"`
}

// WriteArtifacts writes the ranked top-N CSV and the summary JSON into
// the run directory.
func (r *Run) WriteArtifacts(sum Summary) error {
	if err := writeTopCSV(filepath.Join(r.Dir, "top.csv"), sum.TopN); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(r.Dir, "summary.json"), data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// writeTopCSV expands params into their own columns, metric columns
// first. Param column order is the sorted union of keys.
func writeTopCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	paramCols := map[string]struct{}{}
	for _, rec := range records {
		for k := range rec.Params {
			paramCols[k] = struct{}{}
		}
	}
	params := make([]string, 0, len(paramCols))
	for k := range paramCols {
		params = append(params, k)
	}
	sort.Strings(params)

	header := []string{
		"rank", "score", "total_return", "sharpe_ratio", "sortino_ratio",
		"win_rate", "total_trades", "profit_factor", "max_drawdown_pct",
		"expectancy", "success", "error",
	}
	header = append(header, params...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, rec := range records {
		row := []string{
			strconv.Itoa(i + 1),
			fmtFloat(rec.Score),
			fmtFloat(rec.TotalReturn),
			fmtFloat(rec.SharpeRatio),
			fmtFloat(rec.SortinoRatio),
			fmtFloat(rec.WinRate),
			strconv.Itoa(rec.TotalTrades),
			fmtFloat(rec.ProfitFactor),
			fmtFloat(rec.MaxDrawdownPct),
			fmtFloat(rec.Expectancy),
			strconv.FormatBool(rec.Success),
			rec.Error,
		}
		for _, k := range params {
			row = append(row, paramStr(rec.Params[k]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func paramStr(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
