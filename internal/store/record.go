// Package store streams sweep results to disk as append-only JSONL
// shards (one file set per worker) and produces the final ranked
// artifacts. Trade lists never reach the store; records stay a few
// hundred bytes regardless of trade frequency.
package store

import (
	"math"

	"gridbt/internal/metrics"
	"gridbt/internal/strategy"
)

// Record is one configuration result on the wire. Every numeric field
// is finite: NaN/∞ are mapped before writing.
type Record struct {
	Key            string         `json:"key"`
	Strategy       string         `json:"strategy"`
	Params         map[string]any `json:"params"`
	TotalReturn    float64        `json:"total_return"`
	SharpeRatio    float64        `json:"sharpe_ratio"`
	SortinoRatio   float64        `json:"sortino_ratio"`
	WinRate        float64        `json:"win_rate"`
	TotalTrades    int            `json:"total_trades"`
	ProfitFactor   float64        `json:"profit_factor"`
	MaxDrawdownPct float64        `json:"max_drawdown_pct"`
	Expectancy     float64        `json:"expectancy"`
	Score          float64        `json:"score"`
	Success        bool           `json:"success"`
	Error          string         `json:"error,omitempty"`
}

// NewRecord flattens a metrics report for one parameter set.
func NewRecord(ps strategy.ParamSet, r metrics.Report, score float64) Record {
	rec := Record{
		Key:            ps.Key(),
		Strategy:       ps.StrategyName(),
		Params:         ps.Fields(),
		TotalReturn:    r.TotalReturn,
		SharpeRatio:    r.SharpeRatio,
		SortinoRatio:   r.SortinoRatio,
		WinRate:        r.WinRate,
		TotalTrades:    r.TotalTrades,
		ProfitFactor:   r.ProfitFactor,
		MaxDrawdownPct: r.MaxDrawdownPct,
		Expectancy:     r.Expectancy,
		Score:          score,
		Success:        true,
	}
	rec.sanitize()
	return rec
}

// NewFailureRecord captures a per-configuration error kind.
func NewFailureRecord(ps strategy.ParamSet, kind string) Record {
	return Record{
		Key:      ps.Key(),
		Strategy: ps.StrategyName(),
		Params:   ps.Fields(),
		Success:  false,
		Error:    kind,
	}
}

func (r *Record) sanitize() {
	for _, f := range []*float64{
		&r.TotalReturn, &r.SharpeRatio, &r.SortinoRatio, &r.WinRate,
		&r.MaxDrawdownPct, &r.Expectancy, &r.Score,
	} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
	if math.IsNaN(r.ProfitFactor) {
		r.ProfitFactor = 0
	} else if math.IsInf(r.ProfitFactor, 0) {
		r.ProfitFactor = metrics.PFSentinel
	}
}
