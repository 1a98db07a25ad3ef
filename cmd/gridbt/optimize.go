package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"gridbt/internal/app"
	"gridbt/internal/slogx"
	"gridbt/internal/strategy"
	"gridbt/internal/sweep"
)

type optimizeCmd struct {
	cfg app.Config
}

func (*optimizeCmd) Name() string { return "optimize" }

func (*optimizeCmd) Synopsis() string {
	return "run a parameter sweep over a grid and rank the top setups"
}

func (*optimizeCmd) Usage() string {
	return `optimize --strategy NAME --grid PATH --data PATH [--tests N] [--top-n K] [--workers W] [--run-dir D]:
  Expand the grid, backtest every combination in parallel, stream
  results to the run directory and write ranked artifacts.
`
}

func (c *optimizeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cfg.Strategy, "strategy", strategy.ElephantName, "strategy name")
	f.StringVar(&c.cfg.GridPath, "grid", "", "grid YAML path (required)")
	f.StringVar(&c.cfg.DataPath, "data", "", "bar file path, .csv or .parquet (required)")
	f.IntVar(&c.cfg.Tests, "tests", 0, "max configurations; 0 = full grid, larger grids are sampled")
	f.IntVar(&c.cfg.TopN, "top-n", 10, "ranked setups to keep")
	f.IntVar(&c.cfg.Workers, "workers", 0, "worker count; 0 = all CPUs")
	f.IntVar(&c.cfg.ChunkSize, "chunk-size", 0, "configurations per dispatch chunk")
	f.IntVar(&c.cfg.BufferSize, "buffer-size", 0, "records buffered per worker before a flush")
	f.StringVar(&c.cfg.RunBase, "run-base", "runs", "base directory for new run dirs")
	f.StringVar(&c.cfg.RunDir, "run-dir", "", "existing run dir to resume")
	f.StringVar(&c.cfg.From, "from", "", "first tradable date, YYYY-MM-DD")
	f.StringVar(&c.cfg.To, "to", "", "end date (exclusive), YYYY-MM-DD")
	f.StringVar(&c.cfg.SessionStart, "session-start", "", "drop bars before this time of day, HH:MM (with --session-end)")
	f.StringVar(&c.cfg.SessionEnd, "session-end", "", "drop bars after this time of day, HH:MM (with --session-start)")
	f.Float64Var(&c.cfg.Tick, "tick", 0, "instrument tick size for the storage precision check")
	f.StringVar(&c.cfg.LogLevel, "log-level", "info", "debug | info | warn | error")
}

func (c *optimizeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	slog.SetDefault(slogx.NewDefault(c.cfg.LogLevel))
	if c.cfg.GridPath == "" || c.cfg.DataPath == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := initializeOptimizeApp(&c.cfg)
	if err != nil {
		slog.Error("optimize init failed", "error", err)
		return subcommands.ExitFailure
	}
	if err := a.Run(); err != nil {
		if errors.Is(err, sweep.ErrCancelled) {
			return subcommands.ExitSuccess
		}
		slog.Error("optimize failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
