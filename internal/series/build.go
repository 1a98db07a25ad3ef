package series

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gridbt/internal/model"
)

// BuildOptions controls series construction. Zero values mean: no date
// filter, no session filter, no tick precision check.
type BuildOptions struct {
	// From/To bound the tradable range. Bars before From are kept as
	// warmup so the first tradable bar has well-defined moving
	// averages; bars at or after To are discarded.
	From time.Time
	To   time.Time

	// Session, when set, drops bars outside [Start, End] time of day
	// after indicator computation. End must cover the flat-close
	// boundary or intraday liquidation never fires.
	Session *SessionFilter

	// Tick is the instrument tick size. When positive, Build verifies
	// that float32 price storage loses less than half a tick.
	Tick float64
}

type SessionFilter struct {
	Start model.TimeOfDay
	End   model.TimeOfDay
}

// firstValid is the first index at which every indicator column is
// defined: amplitude MA 30 shifted by one needs 30 prior bars.
const firstValid = 30

// Build constructs a Series from sorted raw bars following the fixed
// pipeline: date filter (keeping a warmup margin) → indicators →
// calendar columns → drop undefined → mark warmup → session filter.
func Build(bars []model.Bar, opts BuildOptions) (*Series, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("series: no bars")
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp <= bars[i-1].Timestamp {
			return nil, fmt.Errorf("series: bars not sorted at row %d", i)
		}
	}
	for i, b := range bars {
		if hasNaN(b.Open, b.High, b.Low, b.Close) {
			return nil, fmt.Errorf("series: NaN price at row %d", i)
		}
		if b.Low > b.High || b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
			return nil, fmt.Errorf("series: OHLC out of range at row %d", i)
		}
		if b.Volume < 0 {
			return nil, fmt.Errorf("series: negative volume at row %d", i)
		}
	}

	bars = clipDateRange(bars, opts.From, opts.To)
	if len(bars) <= firstValid {
		return nil, fmt.Errorf("series: %d bars after date filter, need more than %d for indicator warmup", len(bars), firstValid)
	}

	n := len(bars)
	atr := computeATR(bars)
	ampMA := make(map[int][]float64, len(AmplitudeLookbacks))
	for _, l := range AmplitudeLookbacks {
		ampMA[l] = computeAmplitudeMA(bars, l)
	}
	volMA := computeVolumeMA(bars)

	var fromTS int64 = math.MinInt64
	if !opts.From.IsZero() {
		fromTS = opts.From.Unix()
	}

	if opts.Tick > 0 {
		var maxPrice float64
		for _, b := range bars {
			if b.High > maxPrice {
				maxPrice = b.High
			}
		}
		if loss := float32Loss(maxPrice); loss >= opts.Tick/2 {
			return nil, fmt.Errorf("series: float32 storage would lose %g at price %g, over half a tick (%g)", loss, maxPrice, opts.Tick)
		}
	}

	out := &Series{ampMA: make(map[int][]float64, len(AmplitudeLookbacks))}
	for _, l := range AmplitudeLookbacks {
		out.ampMA[l] = make([]float64, 0, n-firstValid)
	}
	for i := firstValid; i < n; i++ {
		b := bars[i]
		hour, minute, day := calendar(b.Timestamp)
		if opts.Session != nil {
			mod := int(hour)*60 + int(minute)
			if mod < opts.Session.Start.Minutes() || mod > opts.Session.End.Minutes() {
				continue
			}
		}
		out.ts = append(out.ts, b.Timestamp)
		out.open = append(out.open, float32(b.Open))
		out.high = append(out.high, float32(b.High))
		out.low = append(out.low, float32(b.Low))
		out.close_ = append(out.close_, float32(b.Close))
		out.volume = append(out.volume, b.Volume)
		out.atr = append(out.atr, atr[i])
		out.volMA20 = append(out.volMA20, volMA[i])
		for _, l := range AmplitudeLookbacks {
			out.ampMA[l] = append(out.ampMA[l], ampMA[l][i])
		}
		out.hour = append(out.hour, hour)
		out.minute = append(out.minute, minute)
		out.day = append(out.day, day)
		out.warmup = append(out.warmup, b.Timestamp < fromTS)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("series: no bars left after filtering")
	}
	return out, nil
}

// clipDateRange keeps [From-warmup, To). The warmup margin covers the
// longest moving-average window so the first bar at or after From has
// every indicator defined.
func clipDateRange(bars []model.Bar, from, to time.Time) []model.Bar {
	lo, hi := 0, len(bars)
	if !to.IsZero() {
		t := to.Unix()
		for hi > 0 && bars[hi-1].Timestamp >= t {
			hi--
		}
	}
	if !from.IsZero() {
		f := from.Unix()
		lo = sort.Search(hi, func(i int) bool { return bars[i].Timestamp >= f })
		lo -= firstValid + 1
		if lo < 0 {
			lo = 0
		}
	}
	return bars[lo:hi]
}

// computeATR is a single-pass rolling mean of true range over 14 bars.
// TR at row 0 falls back to high-low (no previous close).
func computeATR(bars []model.Bar) []float64 {
	n := len(bars)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	tr := make([]float64, n)
	for i, b := range bars {
		r := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			r = math.Max(r, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		tr[i] = r
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += tr[i]
		if i >= atrPeriod {
			sum -= tr[i-atrPeriod]
		}
		if i >= atrPeriod-1 {
			out[i] = sum / atrPeriod
		}
	}
	return out
}

// computeAmplitudeMA is the rolling mean of high-low over the lookback
// window, shifted by one: the value at i covers [i-lookback, i-1] and
// never sees the current bar.
func computeAmplitudeMA(bars []model.Bar, lookback int) []float64 {
	n := len(bars)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	var sum float64
	for i := 0; i < n; i++ {
		if i >= lookback {
			out[i] = sum / float64(lookback)
		}
		sum += bars[i].High - bars[i].Low
		if i >= lookback {
			sum -= bars[i-lookback].High - bars[i-lookback].Low
		}
	}
	return out
}

// computeVolumeMA mirrors computeAmplitudeMA for volume over 20 bars.
func computeVolumeMA(bars []model.Bar) []float64 {
	n := len(bars)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	var sum float64
	for i := 0; i < n; i++ {
		if i >= volMAPeriod {
			out[i] = sum / volMAPeriod
		}
		sum += float64(bars[i].Volume)
		if i >= volMAPeriod {
			sum -= float64(bars[i-volMAPeriod].Volume)
		}
	}
	return out
}

// float32Loss is the worst-case rounding error when storing v as float32.
func float32Loss(v float64) float64 {
	return math.Abs(v - float64(float32(v)))
}
