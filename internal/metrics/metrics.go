// Package metrics rolls a trade sequence up into the flat performance
// record used for ranking. Degenerate inputs (no trades, zero
// variance, zero gross loss) follow fixed conventions so downstream
// ordering stays total.
package metrics

import (
	"math"

	"gridbt/internal/model"
)

// NominalCapital seeds the equity curve for drawdown percentages.
const NominalCapital = 10000.0

// PFSentinel encodes an infinite profit factor (gross loss zero,
// gross profit positive) as a large finite constant.
const PFSentinel = 1e6

// annualize scales per-trade Sharpe/Sortino by √252.
var annualize = math.Sqrt(252)

type SideStats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	TotalReturn float64 `json:"total_return"`
}

type Report struct {
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`

	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	ProfitFactor float64 `json:"profit_factor"`

	TotalReturn    float64 `json:"total_return"`
	TotalReturnPct float64 `json:"total_return_pct"`
	Expectancy     float64 `json:"expectancy"`

	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`

	MaxDrawdownAbs float64 `json:"max_drawdown_absolute"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`

	Long  SideStats `json:"long"`
	Short SideStats `json:"short"`

	ExitStops          int `json:"exit_stops"`
	ExitTargets        int `json:"exit_targets"`
	ExitIntradayCloses int `json:"exit_intraday_closes"`
}

// Compute builds the full report. An empty trade list yields the zero
// report, which is a valid (zero-trade) success.
func Compute(trades []model.Trade) Report {
	var r Report
	r.TotalTrades = len(trades)
	if len(trades) == 0 {
		return r
	}

	var sumWin, sumLoss float64
	var curWins, curLosses int
	equity := NominalCapital
	peak := equity

	for _, t := range trades {
		pnl := t.PnLPoints
		r.TotalReturn += pnl
		if pnl > 0 {
			r.Wins++
			sumWin += pnl
			curWins++
			curLosses = 0
		} else if pnl < 0 {
			r.Losses++
			sumLoss += -pnl
			curLosses++
			curWins = 0
		} else {
			curWins, curLosses = 0, 0
		}
		if curWins > r.MaxConsecutiveWins {
			r.MaxConsecutiveWins = curWins
		}
		if curLosses > r.MaxConsecutiveLosses {
			r.MaxConsecutiveLosses = curLosses
		}

		equity += pnl
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > r.MaxDrawdownAbs {
			r.MaxDrawdownAbs = dd
			r.MaxDrawdownPct = dd / peak * 100
		}

		side := &r.Long
		if t.Side == model.Short {
			side = &r.Short
		}
		side.Trades++
		side.TotalReturn += pnl
		if pnl > 0 {
			side.Wins++
		}

		switch t.ExitReason {
		case model.ExitStop:
			r.ExitStops++
		case model.ExitTarget:
			r.ExitTargets++
		case model.ExitIntradayClose:
			r.ExitIntradayCloses++
		}
	}

	n := float64(len(trades))
	r.WinRate = float64(r.Wins) / n
	r.GrossProfit = sumWin
	r.GrossLoss = sumLoss
	r.TotalReturnPct = r.TotalReturn / NominalCapital * 100

	switch {
	case sumLoss > 0:
		r.ProfitFactor = sumWin / sumLoss
	case sumWin > 0:
		r.ProfitFactor = PFSentinel
	default:
		r.ProfitFactor = 0
	}

	var avgWin, avgLoss float64
	if r.Wins > 0 {
		avgWin = sumWin / float64(r.Wins)
	}
	if r.Losses > 0 {
		avgLoss = -sumLoss / float64(r.Losses)
	}
	r.Expectancy = r.WinRate*avgWin + (1-r.WinRate)*avgLoss

	mean := r.TotalReturn / n
	var variance, downVarSum float64
	var downN int
	for _, t := range trades {
		d := t.PnLPoints - mean
		variance += d * d
		if t.PnLPoints < 0 {
			downN++
		}
	}
	variance /= n
	if sd := math.Sqrt(variance); sd > 0 {
		r.SharpeRatio = mean / sd * annualize
	}
	if downN > 0 {
		downMean := -sumLoss / float64(downN)
		for _, t := range trades {
			if t.PnLPoints < 0 {
				d := t.PnLPoints - downMean
				downVarSum += d * d
			}
		}
		if dsd := math.Sqrt(downVarSum / float64(downN)); dsd > 0 {
			r.SortinoRatio = mean / dsd * annualize
		}
	}
	return r
}
