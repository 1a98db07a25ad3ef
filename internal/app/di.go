package app

import (
	"log/slog"

	"gridbt/internal/dataio"
	"gridbt/internal/series"
	"gridbt/internal/store"
	"gridbt/internal/strategy"
)

// ProvideSeries loads the bar file and builds the shared price series
// (for Wire).
func ProvideSeries(cfg *Config) (*series.Series, error) {
	bars, err := dataio.LoadBars(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	from, to, err := cfg.DateRange()
	if err != nil {
		return nil, err
	}
	sess, err := cfg.Session()
	if err != nil {
		return nil, err
	}
	s, err := series.Build(bars, series.BuildOptions{From: from, To: to, Session: sess, Tick: cfg.Tick})
	if err != nil {
		return nil, err
	}
	slog.Info("series built", "rows", len(bars), "bars", s.Len(), "start_index", s.StartIndex())
	return s, nil
}

// ProvideGrid parses the grid document for the configured strategy
// (for Wire).
func ProvideGrid(cfg *Config) (strategy.Grid, error) {
	return dataio.LoadGrid(cfg.GridPath, cfg.Strategy)
}

// ProvideParams parses the single-backtest params document (for Wire).
func ProvideParams(cfg *Config) (strategy.ParamSet, error) {
	return dataio.LoadParams(cfg.ParamsPath, cfg.Strategy)
}

// ProvideRun opens or creates the sweep run directory (for Wire).
func ProvideRun(cfg *Config) (*store.Run, error) {
	return store.OpenRun(cfg.RunBase, cfg.RunDir)
}
