// Package series holds the immutable columnar price series shared
// read-only by every sweep worker.
package series

import (
	"fmt"
	"math"
	"time"
)

// AmplitudeLookbacks are the supported amplitude-MA windows.
var AmplitudeLookbacks = []int{5, 10, 15, 20, 25, 30}

const (
	atrPeriod   = 14
	volMAPeriod = 20
)

// Series is a struct-of-arrays view of the filtered bar history plus
// derived indicator columns. Prices are downcast to float32 after all
// indicator math (see Builder); indicators stay float64.
type Series struct {
	ts     []int64
	open   []float32
	high   []float32
	low    []float32
	close_ []float32
	volume []int64

	atr     []float64
	ampMA   map[int][]float64 // lookback → shifted rolling mean of high-low
	volMA20 []float64

	hour   []uint8
	minute []uint8
	day    []int32 // days since Unix epoch, UTC

	warmup []bool
}

func (s *Series) Len() int { return len(s.ts) }

func (s *Series) Timestamp(i int) int64 { return s.ts[i] }
func (s *Series) Open(i int) float64    { return float64(s.open[i]) }
func (s *Series) High(i int) float64    { return float64(s.high[i]) }
func (s *Series) Low(i int) float64     { return float64(s.low[i]) }
func (s *Series) Close(i int) float64   { return float64(s.close_[i]) }
func (s *Series) Volume(i int) int64    { return s.volume[i] }

func (s *Series) ATR(i int) float64       { return s.atr[i] }
func (s *Series) VolumeMA20(i int) float64 { return s.volMA20[i] }

// AmplitudeMA returns the shifted rolling amplitude mean for the given
// lookback. Panics on an unsupported lookback; the strategy schema
// restricts lookbacks to AmplitudeLookbacks.
func (s *Series) AmplitudeMA(lookback int, i int) float64 {
	col, ok := s.ampMA[lookback]
	if !ok {
		panic(fmt.Sprintf("series: no amplitude MA column for lookback %d", lookback))
	}
	return col[i]
}

func (s *Series) Hour(i int) int   { return int(s.hour[i]) }
func (s *Series) Minute(i int) int { return int(s.minute[i]) }
func (s *Series) Day(i int) int32  { return s.day[i] }

// MinuteOfDay is the bar's time of day in minutes, for session checks.
func (s *Series) MinuteOfDay(i int) int { return int(s.hour[i])*60 + int(s.minute[i]) }

// IsWarmup reports whether bar i only feeds moving averages and must
// not originate trades.
func (s *Series) IsWarmup(i int) bool { return s.warmup[i] }

// StartIndex is the first index allowed to originate trades.
func (s *Series) StartIndex() int {
	for i := range s.warmup {
		if !s.warmup[i] {
			return i
		}
	}
	return len(s.warmup)
}

// Slice returns a view of [start, end). Indicator columns are shared;
// the slice must be treated as read-only like its parent.
func (s *Series) Slice(start, end int) *Series {
	out := &Series{
		ts:      s.ts[start:end],
		open:    s.open[start:end],
		high:    s.high[start:end],
		low:     s.low[start:end],
		close_:  s.close_[start:end],
		volume:  s.volume[start:end],
		atr:     s.atr[start:end],
		volMA20: s.volMA20[start:end],
		hour:    s.hour[start:end],
		minute:  s.minute[start:end],
		day:     s.day[start:end],
		warmup:  s.warmup[start:end],
		ampMA:   make(map[int][]float64, len(s.ampMA)),
	}
	for l, col := range s.ampMA {
		out.ampMA[l] = col[start:end]
	}
	return out
}

// Validate checks the per-bar invariants the simulator relies on:
// finite OHLC, low ≤ open,close ≤ high, strictly increasing timestamps.
func (s *Series) Validate() error {
	for i := 0; i < s.Len(); i++ {
		o, h, l, c := s.Open(i), s.High(i), s.Low(i), s.Close(i)
		if hasNaN(o, h, l, c) {
			return fmt.Errorf("bar %d: NaN in OHLC", i)
		}
		if l > o || l > c || h < o || h < c {
			return fmt.Errorf("bar %d: OHLC out of range (o=%v h=%v l=%v c=%v)", i, o, h, l, c)
		}
		if i > 0 && s.ts[i] <= s.ts[i-1] {
			return fmt.Errorf("bar %d: timestamp not increasing", i)
		}
	}
	return nil
}

func hasNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func calendar(ts int64) (hour, minute uint8, day int32) {
	t := time.Unix(ts, 0).UTC()
	return uint8(t.Hour()), uint8(t.Minute()), int32(ts / 86400)
}
