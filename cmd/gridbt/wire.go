//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"gridbt/internal/app"
)

// initializeOptimizeApp wires the sweep dependencies from a resolved
// Config.
func initializeOptimizeApp(cfg *app.Config) (*app.OptimizeApp, error) {
	wire.Build(
		app.ProvideSeries,
		app.ProvideGrid,
		app.ProvideRun,
		wire.Struct(new(app.OptimizeApp), "Config", "Series", "Grid", "RunStore"),
	)
	return nil, nil
}

// initializeBacktestApp wires the single-backtest dependencies.
func initializeBacktestApp(cfg *app.Config) (*app.BacktestApp, error) {
	wire.Build(
		app.ProvideSeries,
		app.ProvideParams,
		wire.Struct(new(app.BacktestApp), "Config", "Series", "Params"),
	)
	return nil, nil
}
