package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gridbt/internal/dataio"
	"gridbt/internal/metrics"
	"gridbt/internal/series"
	"gridbt/internal/sim"
	"gridbt/internal/store"
	"gridbt/internal/strategy"
	"gridbt/internal/sweep"
)

// OptimizeApp is the wired dependency set for one sweep.
type OptimizeApp struct {
	Config   *Config
	Series   *series.Series
	Grid     strategy.Grid
	RunStore *store.Run
}

// Run executes the sweep with signal-driven cooperative cancellation.
// A cancelled sweep keeps its partial shards and skips the ranking
// artifacts.
func (a *OptimizeApp) Run() error {
	shutdown := make(chan struct{})
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		if sig, ok := <-signals; ok {
			slog.Info("received signal, draining workers", "sig", sig)
			close(shutdown)
		}
	}()

	sum, err := sweep.Run(a.Series, a.Grid, a.RunStore, shutdown, sweep.Options{
		MaxTests:   a.Config.Tests,
		TopN:       a.Config.TopN,
		Workers:    a.Config.Workers,
		ChunkSize:  a.Config.ChunkSize,
		BufferSize: a.Config.BufferSize,
		Resume:     a.Config.RunDir != "",
	})
	if errors.Is(err, sweep.ErrCancelled) {
		slog.Info("sweep cancelled, partial results kept", "dir", a.RunStore.Dir)
		return err
	}
	if err != nil {
		return err
	}
	slog.Info("artifacts written", "dir", a.RunStore.Dir, "top_n", len(sum.TopN))
	return nil
}

// BacktestApp is the wired dependency set for one single-configuration
// backtest with trade dump.
type BacktestApp struct {
	Config *Config
	Series *series.Series
	Params strategy.ParamSet
}

func (a *BacktestApp) Run() error {
	sig := a.Params.Strategy().Signals(a.Series)
	trades, err := sim.Run(a.Series, sig, a.Params.Exec())
	if err != nil {
		return err
	}
	rep := metrics.Compute(trades)
	score := metrics.Score(rep, metrics.DefaultWeights)

	if a.Config.OutPath != "" {
		if err := dataio.WriteTrades(a.Config.OutPath, trades, a.Series); err != nil {
			return err
		}
		slog.Info("trades written", "path", a.Config.OutPath, "trades", len(trades))
	}

	out := struct {
		Params map[string]any `json:"params"`
		metrics.Report
		Score float64 `json:"score"`
	}{a.Params.Fields(), rep, score}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
