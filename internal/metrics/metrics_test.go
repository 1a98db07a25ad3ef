package metrics

import (
	"math"
	"testing"

	"gridbt/internal/model"
)

func mk(pnl float64, side model.Side, reason model.ExitReason) model.Trade {
	return model.Trade{Side: side, PnLPoints: pnl, ExitReason: reason}
}

func longs(pnls ...float64) []model.Trade {
	out := make([]model.Trade, len(pnls))
	for i, p := range pnls {
		reason := model.ExitTarget
		if p <= 0 {
			reason = model.ExitStop
		}
		out[i] = mk(p, model.Long, reason)
	}
	return out
}

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil)
	if r.TotalTrades != 0 || r.WinRate != 0 || r.ProfitFactor != 0 || r.SharpeRatio != 0 {
		t.Errorf("empty report not zero: %+v", r)
	}
}

func TestComputeBasics(t *testing.T) {
	trades := []model.Trade{
		mk(10, model.Long, model.ExitTarget),
		mk(5, model.Long, model.ExitTarget),
		mk(-3, model.Short, model.ExitStop),
		mk(-4, model.Long, model.ExitStop),
		mk(-2, model.Short, model.ExitStop),
		mk(7, model.Short, model.ExitTarget),
		mk(0, model.Long, model.ExitIntradayClose),
	}
	r := Compute(trades)

	if r.TotalTrades != 7 || r.Wins != 3 || r.Losses != 3 {
		t.Fatalf("counts: %+v", r)
	}
	if got, want := r.WinRate, 3.0/7.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("win rate = %v, want %v", got, want)
	}
	if r.GrossProfit != 22 || r.GrossLoss != 9 {
		t.Errorf("gross P/L = %v/%v", r.GrossProfit, r.GrossLoss)
	}
	if got, want := r.ProfitFactor, 22.0/9.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("profit factor = %v, want %v", got, want)
	}
	if r.TotalReturn != 13 {
		t.Errorf("total return = %v", r.TotalReturn)
	}
	if got, want := r.TotalReturnPct, 13.0/NominalCapital*100; math.Abs(got-want) > 1e-12 {
		t.Errorf("total return pct = %v, want %v", got, want)
	}
	if r.MaxConsecutiveWins != 2 || r.MaxConsecutiveLosses != 3 {
		t.Errorf("streaks = %d wins / %d losses", r.MaxConsecutiveWins, r.MaxConsecutiveLosses)
	}
	// equity peaks at 10015 after two wins, troughs at 10006
	if r.MaxDrawdownAbs != 9 {
		t.Errorf("max drawdown = %v, want 9", r.MaxDrawdownAbs)
	}
	if got, want := r.MaxDrawdownPct, 9.0/10015*100; math.Abs(got-want) > 1e-12 {
		t.Errorf("max drawdown pct = %v, want %v", got, want)
	}
	// expectancy = wr*avgWin + (1-wr)*avgLoss
	wr := 3.0 / 7.0
	want := wr*(22.0/3) + (1-wr)*(-9.0/3)
	if math.Abs(r.Expectancy-want) > 1e-12 {
		t.Errorf("expectancy = %v, want %v", r.Expectancy, want)
	}

	if r.Long.Trades != 4 || r.Long.Wins != 2 || r.Long.TotalReturn != 11 {
		t.Errorf("long side = %+v", r.Long)
	}
	if r.Short.Trades != 3 || r.Short.Wins != 1 || r.Short.TotalReturn != 2 {
		t.Errorf("short side = %+v", r.Short)
	}
	if r.ExitStops != 3 || r.ExitTargets != 3 || r.ExitIntradayCloses != 1 {
		t.Errorf("exit counts = %d/%d/%d", r.ExitStops, r.ExitTargets, r.ExitIntradayCloses)
	}
}

func TestComputeProfitFactorConventions(t *testing.T) {
	if pf := Compute(longs(5, 10)).ProfitFactor; pf != PFSentinel {
		t.Errorf("zero-loss PF = %v, want sentinel", pf)
	}
	if pf := Compute(longs(0, 0)).ProfitFactor; pf != 0 {
		t.Errorf("all-flat PF = %v, want 0", pf)
	}
	if pf := Compute(longs(-5, -10)).ProfitFactor; pf != 0 {
		t.Errorf("all-loss PF = %v, want 0", pf)
	}
}

func TestComputeSharpe(t *testing.T) {
	// mean 3, population sd 1
	r := Compute(longs(2, 4))
	if want := 3 * math.Sqrt(252); math.Abs(r.SharpeRatio-want) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", r.SharpeRatio, want)
	}
	// zero variance: sharpe stays 0 rather than blowing up
	if s := Compute(longs(5, 5, 5)).SharpeRatio; s != 0 {
		t.Errorf("zero-variance sharpe = %v", s)
	}
}

func TestComputeSortino(t *testing.T) {
	// identical losses: downside deviation 0, sortino stays 0
	if s := Compute(longs(10, -2, -2)).SortinoRatio; s != 0 {
		t.Errorf("zero downside deviation sortino = %v", s)
	}
	r := Compute(longs(10, -2, -4))
	if r.SortinoRatio == 0 || math.IsNaN(r.SortinoRatio) {
		t.Errorf("sortino = %v", r.SortinoRatio)
	}
	// no losses at all
	if s := Compute(longs(3, 4)).SortinoRatio; s != 0 {
		t.Errorf("no-loss sortino = %v", s)
	}
}

// scale-free metrics must not move when every P&L is scaled.
func TestComputeScaleInvariance(t *testing.T) {
	pnls := []float64{4, -2, 7, -3, 1}
	scaled := make([]float64, len(pnls))
	for i, p := range pnls {
		scaled[i] = p * 10
	}
	a, b := Compute(longs(pnls...)), Compute(longs(scaled...))
	if math.Abs(a.SharpeRatio-b.SharpeRatio) > 1e-9 {
		t.Errorf("sharpe moved under scaling: %v vs %v", a.SharpeRatio, b.SharpeRatio)
	}
	if a.WinRate != b.WinRate {
		t.Errorf("win rate moved under scaling")
	}
	if math.Abs(a.ProfitFactor-b.ProfitFactor) > 1e-9 {
		t.Errorf("profit factor moved under scaling")
	}
	if math.Abs(b.TotalReturn-10*a.TotalReturn) > 1e-9 {
		t.Errorf("total return should scale linearly")
	}
}

// order-free metrics must not move when the trade order changes.
func TestComputeOrderInvariance(t *testing.T) {
	a := Compute(longs(4, -2, 7, -3, 1))
	b := Compute(longs(-3, 7, 1, 4, -2))
	if a.TotalReturn != b.TotalReturn || a.WinRate != b.WinRate || a.ProfitFactor != b.ProfitFactor {
		t.Error("aggregate metrics moved under reordering")
	}
	if math.Abs(a.SharpeRatio-b.SharpeRatio) > 1e-9 {
		t.Error("sharpe moved under reordering")
	}
}

func TestScore(t *testing.T) {
	var zero Report
	if got, want := Score(zero, DefaultWeights), DefaultWeights.Drawdown*100; math.Abs(got-want) > 1e-12 {
		t.Errorf("zero-report score = %v, want the drawdown term alone (%v)", got, want)
	}

	good := Report{SharpeRatio: 5, WinRate: 0.6, ProfitFactor: 2.5, TotalReturnPct: 40, MaxDrawdownPct: 10}
	want := 0.30*50 + 0.20*60 + 0.20*30 + 0.15*40 + 0.15*90
	if got := Score(good, DefaultWeights); math.Abs(got-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got, want)
	}

	// every component clips into [0,100]
	extreme := Report{SharpeRatio: 1000, WinRate: 1, ProfitFactor: PFSentinel, TotalReturnPct: 1e9, MaxDrawdownPct: 0}
	if got := Score(extreme, DefaultWeights); got > 100+1e-9 {
		t.Errorf("score %v exceeds 100 with unit weights", got)
	}
	negative := Report{SharpeRatio: -10, ProfitFactor: 0.2, TotalReturnPct: -50, MaxDrawdownPct: 300}
	if got := Score(negative, DefaultWeights); got != 0 {
		t.Errorf("fully clipped score = %v, want 0", got)
	}

	better := good
	better.SharpeRatio = 6
	if Score(better, DefaultWeights) <= Score(good, DefaultWeights) {
		t.Error("score not monotonic in sharpe")
	}
}
