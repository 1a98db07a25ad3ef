package dataio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"gridbt/internal/model"
	"gridbt/internal/series"
)

// WriteTrades dumps a backtest's trade list as CSV, one row per round
// trip, with bar timestamps resolved from the series.
func WriteTrades(path string, trades []model.Trade, s *series.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write trades: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"entry_time", "exit_time", "entry_bar", "exit_bar", "side",
		"entry_price", "exit_price", "sl_price", "tp_price",
		"pnl_points", "exit_reason",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			barTime(s, t.EntryBar),
			barTime(s, t.ExitBar),
			strconv.Itoa(t.EntryBar),
			strconv.Itoa(t.ExitBar),
			t.Side.String(),
			fmtPrice(t.EntryPrice),
			fmtPrice(t.ExitPrice),
			fmtPrice(t.SLPrice),
			fmtPrice(t.TPPrice),
			fmtPrice(t.PnLPoints),
			string(t.ExitReason),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func barTime(s *series.Series, i int) string {
	return time.Unix(s.Timestamp(i), 0).UTC().Format("2006-01-02 15:04")
}

func fmtPrice(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
