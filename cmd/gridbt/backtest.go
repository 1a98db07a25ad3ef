package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"gridbt/internal/app"
	"gridbt/internal/slogx"
	"gridbt/internal/strategy"
)

type backtestCmd struct {
	cfg app.Config
}

func (*backtestCmd) Name() string { return "backtest" }

func (*backtestCmd) Synopsis() string {
	return "backtest a single configuration and dump its trades"
}

func (*backtestCmd) Usage() string {
	return `backtest --strategy NAME --params PATH --data PATH --out PATH:
  Run one configuration over the bar file, print the metrics report
  and write the trade list as CSV.
`
}

func (c *backtestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cfg.Strategy, "strategy", strategy.ElephantName, "strategy name")
	f.StringVar(&c.cfg.ParamsPath, "params", "", "params YAML path (required)")
	f.StringVar(&c.cfg.DataPath, "data", "", "bar file path, .csv or .parquet (required)")
	f.StringVar(&c.cfg.OutPath, "out", "", "trade dump CSV path")
	f.StringVar(&c.cfg.From, "from", "", "first tradable date, YYYY-MM-DD")
	f.StringVar(&c.cfg.To, "to", "", "end date (exclusive), YYYY-MM-DD")
	f.StringVar(&c.cfg.SessionStart, "session-start", "", "drop bars before this time of day, HH:MM (with --session-end)")
	f.StringVar(&c.cfg.SessionEnd, "session-end", "", "drop bars after this time of day, HH:MM (with --session-start)")
	f.Float64Var(&c.cfg.Tick, "tick", 0, "instrument tick size for the storage precision check")
	f.StringVar(&c.cfg.LogLevel, "log-level", "info", "debug | info | warn | error")
}

func (c *backtestCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	slog.SetDefault(slogx.NewDefault(c.cfg.LogLevel))
	if c.cfg.ParamsPath == "" || c.cfg.DataPath == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := initializeBacktestApp(&c.cfg)
	if err != nil {
		slog.Error("backtest init failed", "error", err)
		return subcommands.ExitFailure
	}
	if err := a.Run(); err != nil {
		slog.Error("backtest failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
