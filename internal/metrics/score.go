package metrics

// Weights blends the normalized metrics into the composite score used
// for ranking. They should sum to 1 but are not forced to.
type Weights struct {
	Sharpe       float64 `yaml:"sharpe"`
	WinRate      float64 `yaml:"win_rate"`
	ProfitFactor float64 `yaml:"profit_factor"`
	TotalReturn  float64 `yaml:"total_return"`
	Drawdown     float64 `yaml:"drawdown"`
}

var DefaultWeights = Weights{
	Sharpe:       0.30,
	WinRate:      0.20,
	ProfitFactor: 0.20,
	TotalReturn:  0.15,
	Drawdown:     0.15,
}

// Score normalizes each metric to [0,100] with clipped linear maps and
// returns the weighted sum.
func Score(r Report, w Weights) float64 {
	sharpe := clip100(10 * r.SharpeRatio)
	winRate := clip100(100 * r.WinRate)
	pf := clip100(20 * (r.ProfitFactor - 1))
	ret := clip100(r.TotalReturnPct)
	dd := 100 - r.MaxDrawdownPct
	if dd < 0 {
		dd = 0
	}
	return w.Sharpe*sharpe + w.WinRate*winRate + w.ProfitFactor*pf + w.TotalReturn*ret + w.Drawdown*dd
}

func clip100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
