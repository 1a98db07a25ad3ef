package strategy

import (
	"math"
	"testing"
	"time"

	"gridbt/internal/model"
	"gridbt/internal/series"
)

type barSpec struct {
	o, h, l, c float64
	v          int64
}

var quiet = barSpec{o: 100, h: 101, l: 99, c: 100.5, v: 100}

// buildSeries prepends 30 quiet warmup bars so spec k lands at series
// index k, timestamped 09:00 + 5k minutes.
func buildSeries(t *testing.T, specs []barSpec) *series.Series {
	t.Helper()
	start := time.Date(2024, 1, 2, 6, 30, 0, 0, time.UTC)
	bars := make([]model.Bar, 0, 30+len(specs))
	for i := 0; i < 30; i++ {
		bars = append(bars, model.Bar{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute).Unix(),
			Open:      quiet.o, High: quiet.h, Low: quiet.l, Close: quiet.c, Volume: quiet.v,
		})
	}
	for i, sp := range specs {
		bars = append(bars, model.Bar{
			Timestamp: start.Add(time.Duration(30+i) * 5 * time.Minute).Unix(),
			Open:      sp.o, High: sp.h, Low: sp.l, Close: sp.c, Volume: sp.v,
		})
	}
	s, err := series.Build(bars, series.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func quietSpecs(n int) []barSpec {
	specs := make([]barSpec, n)
	for i := range specs {
		specs[i] = quiet
	}
	return specs
}

func defaultParams() ElephantParams {
	return ElephantParams{
		MinAmplitudeMult:  2,
		MinVolumeMult:     2,
		MaxWickPct:        0.45,
		LookbackAmplitude: 5,
		SessionStart:      model.TimeOfDay{Hour: 9},
		SessionEnd:        model.TimeOfDay{Hour: 14, Minute: 55},
		FlatClose:         model.TimeOfDay{Hour: 15},
		SLATRMult:         2,
		TPATRMult:         3,
	}
}

// quiet bars have amplitude 2 and volume 100, so the anchor below is
// 3.5x the amplitude MA and 3x the volume MA with an 86% body.
var (
	bullAnchor   = barSpec{o: 100, h: 106.5, l: 99.5, c: 106, v: 300}
	bullBreakout = barSpec{o: 106, h: 107.5, l: 105, c: 107, v: 100}
	bearAnchor   = barSpec{o: 106, h: 106.5, l: 99.5, c: 100, v: 300}
	bearBreakout = barSpec{o: 100, h: 101, l: 98.5, c: 99, v: 100}
)

func countSignals(sig *Signals) int {
	n := 0
	for i := range sig.EnterLong {
		if sig.EnterLong[i] || sig.EnterShort[i] {
			n++
		}
	}
	return n
}

func TestElephantLongSignal(t *testing.T) {
	specs := quietSpecs(20)
	specs[10] = bullAnchor
	specs[11] = bullBreakout
	s := buildSeries(t, specs)

	sig := defaultParams().Strategy().Signals(s)
	if !sig.EnterLong[11] {
		t.Fatal("no long entry at the breakout bar")
	}
	if countSignals(sig) != 1 {
		t.Errorf("expected exactly one signal, got %d", countSignals(sig))
	}
	atr := s.ATR(11)
	if atr <= 0 {
		t.Fatalf("ATR at breakout = %v", atr)
	}
	entry := s.Open(11)
	if got, want := sig.SLPrice[11], entry-atr*2; math.Abs(got-want) > 1e-9 {
		t.Errorf("SL = %v, want %v", got, want)
	}
	if got, want := sig.TPPrice[11], entry+atr*3; math.Abs(got-want) > 1e-9 {
		t.Errorf("TP = %v, want %v", got, want)
	}
}

func TestElephantShortSignal(t *testing.T) {
	specs := quietSpecs(20)
	specs[10] = bearAnchor
	specs[11] = bearBreakout
	sig := defaultParams().Strategy().Signals(buildSeries(t, specs))
	if !sig.EnterShort[11] {
		t.Fatal("no short entry at the breakdown bar")
	}
	if sig.SLPrice[11] <= sig.TPPrice[11] {
		t.Errorf("short SL %v must sit above TP %v", sig.SLPrice[11], sig.TPPrice[11])
	}
}

func TestElephantAnchorRejections(t *testing.T) {
	cases := []struct {
		name   string
		anchor barSpec
	}{
		// amplitude 3 < 2x the MA of 2
		{"amplitude too small", barSpec{o: 100, h: 103, l: 100, c: 102.8, v: 300}},
		// volume 150 < 2x the MA of 100
		{"volume too small", barSpec{o: 100, h: 106.5, l: 99.5, c: 106, v: 150}},
		// body 3.5 of amplitude 7 is 50%, under the 55% floor
		{"body too small", barSpec{o: 100, h: 106.5, l: 99.5, c: 103.5, v: 300}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			specs := quietSpecs(20)
			specs[10] = tc.anchor
			specs[11] = bullBreakout
			sig := defaultParams().Strategy().Signals(buildSeries(t, specs))
			if countSignals(sig) != 0 {
				t.Error("rejected anchor still produced a signal")
			}
		})
	}
}

func TestElephantDojiRejected(t *testing.T) {
	specs := quietSpecs(20)
	specs[10] = barSpec{o: 103, h: 106.5, l: 99.5, c: 103, v: 300}
	specs[11] = bullBreakout
	p := defaultParams()
	p.MaxWickPct = 1 // wick rule passes everything, doji rule must hold
	sig := p.Strategy().Signals(buildSeries(t, specs))
	if countSignals(sig) != 0 {
		t.Error("doji anchor produced a signal")
	}
}

func TestElephantFailedBreakout(t *testing.T) {
	specs := quietSpecs(20)
	specs[10] = bullAnchor
	// next bar stays inside the anchor range; later bars break out but
	// the anchor is already spent
	specs[11] = barSpec{o: 105, h: 106, l: 104, c: 105.5, v: 100}
	specs[12] = barSpec{o: 105, h: 110, l: 104, c: 109, v: 100}
	sig := defaultParams().Strategy().Signals(buildSeries(t, specs))
	if sig.EnterLong[11] || sig.EnterLong[12] {
		t.Error("failed breakout must discard the anchor for good")
	}
}

func TestElephantSessionGate(t *testing.T) {
	specs := quietSpecs(20)
	specs[10] = bullAnchor
	specs[11] = bullBreakout
	p := defaultParams()
	// session ends before the anchor bar at 09:50
	p.SessionEnd = model.TimeOfDay{Hour: 9, Minute: 30}
	sig := p.Strategy().Signals(buildSeries(t, specs))
	if countSignals(sig) != 0 {
		t.Error("anchor outside the session produced a signal")
	}
}

func TestElephantSignalsIgnoreFutureBars(t *testing.T) {
	specs := quietSpecs(30)
	specs[10] = bullAnchor
	specs[11] = bullBreakout
	a := defaultParams().Strategy().Signals(buildSeries(t, specs))

	specs[25] = barSpec{o: 100, h: 140, l: 60, c: 101, v: 9000}
	b := defaultParams().Strategy().Signals(buildSeries(t, specs))
	for i := 0; i < 20; i++ {
		if a.EnterLong[i] != b.EnterLong[i] || a.EnterShort[i] != b.EnterShort[i] {
			t.Fatalf("signal at %d changed by a future bar", i)
		}
		// SL/TP are NaN off-signal, so only compare where a signal is set
		if a.EnterLong[i] && (a.SLPrice[i] != b.SLPrice[i] || a.TPPrice[i] != b.TPPrice[i]) {
			t.Fatalf("exit levels at %d changed by a future bar", i)
		}
	}
}

func TestElephantGridEnumeration(t *testing.T) {
	g := &ElephantGrid{
		MinAmplitudeMult:  []float64{2, 3},
		MinVolumeMult:     []float64{1.5},
		MaxWickPct:        []float64{0.3, 0.45},
		LookbackAmplitude: []int{5, 10, 20},
		SLATRMult:         []float64{1, 2},
		TPATRMult:         []float64{2},
	}
	g.applyDefaults()
	if g.Size() != 2*2*3*2 {
		t.Fatalf("grid size = %d, want 24", g.Size())
	}

	first := g.At(0).(ElephantParams)
	if first.MinAmplitudeMult != 2 || first.MaxWickPct != 0.3 || first.LookbackAmplitude != 5 || first.SLATRMult != 1 {
		t.Errorf("At(0) not the first combination: %+v", first)
	}
	// last axis with multiple values (sl_atr_mult) varies fastest
	second := g.At(1).(ElephantParams)
	if second.SLATRMult != 2 || second.MinAmplitudeMult != 2 {
		t.Errorf("At(1) should differ only in sl_atr_mult: %+v", second)
	}
	last := g.At(g.Size() - 1).(ElephantParams)
	if last.MinAmplitudeMult != 3 || last.MaxWickPct != 0.45 || last.LookbackAmplitude != 20 || last.SLATRMult != 2 {
		t.Errorf("At(size-1) not the last combination: %+v", last)
	}

	keys := make(map[string]bool, g.Size())
	for i := 0; i < g.Size(); i++ {
		k := g.At(i).Key()
		if keys[k] {
			t.Fatalf("duplicate key %q", k)
		}
		keys[k] = true
	}
}

func TestParseElephantGrid(t *testing.T) {
	doc := []byte(`
min_amplitude_mult: [2.0, 2.5]
min_volume_mult: [1.5]
max_wick_pct: [0.3]
lookback_amplitude: [10, 20]
session_start: [[9, 0], [9, 30]]
sl_atr_mult: [1.5]
tp_atr_mult: [2.0, 3.0]
`)
	grid, err := parseElephantGrid(doc)
	if err != nil {
		t.Fatal(err)
	}
	if grid.Size() != 2*2*2*2 {
		t.Errorf("size = %d, want 16", grid.Size())
	}
	p := grid.At(0).(ElephantParams)
	if p.SessionEnd != (model.TimeOfDay{Hour: 14, Minute: 55}) {
		t.Errorf("session_end default not applied: %v", p.SessionEnd)
	}
	if p.FlatClose != (model.TimeOfDay{Hour: 15}) {
		t.Errorf("flat_close default not applied: %v", p.FlatClose)
	}
	if p.SessionStart != (model.TimeOfDay{Hour: 9}) {
		t.Errorf("session_start = %v", p.SessionStart)
	}
}

func TestParseElephantGridRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty axis", "min_amplitude_mult: []\nmin_volume_mult: [1]\nmax_wick_pct: [0.3]\nlookback_amplitude: [10]\nsl_atr_mult: [1]\ntp_atr_mult: [2]"},
		{"bad lookback", "min_amplitude_mult: [2]\nmin_volume_mult: [1]\nmax_wick_pct: [0.3]\nlookback_amplitude: [7]\nsl_atr_mult: [1]\ntp_atr_mult: [2]"},
		{"wick over 1", "min_amplitude_mult: [2]\nmin_volume_mult: [1]\nmax_wick_pct: [1.5]\nlookback_amplitude: [10]\nsl_atr_mult: [1]\ntp_atr_mult: [2]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseElephantGrid([]byte(tc.doc)); err == nil {
				t.Error("invalid grid accepted")
			}
		})
	}
}

func TestParseElephantParams(t *testing.T) {
	doc := []byte(`
min_amplitude_mult: 2.0
min_volume_mult: 1.5
max_wick_pct: 0.3
lookback_amplitude: 10
session_start: [9, 0]
session_end: [14, 55]
flat_close: [15, 0]
sl_atr_mult: 1.5
tp_atr_mult: 2.5
use_trailing: true
`)
	ps, err := parseElephantParams(doc)
	if err != nil {
		t.Fatal(err)
	}
	p := ps.(ElephantParams)
	if p.LookbackAmplitude != 10 || !p.UseTrailing {
		t.Errorf("params = %+v", p)
	}
	exec := p.Exec()
	if !exec.Trailing || exec.FlatClose != (model.TimeOfDay{Hour: 15}) {
		t.Errorf("exec spec = %+v", exec)
	}

	if _, err := parseElephantParams([]byte("min_amplitude_mult: -1")); err == nil {
		t.Error("negative multiplier accepted")
	}
}

func TestRegistryLookup(t *testing.T) {
	def, err := Lookup(ElephantName)
	if err != nil {
		t.Fatal(err)
	}
	if def.Name != ElephantName {
		t.Errorf("def name = %q", def.Name)
	}
	if _, err := Lookup("no_such_strategy"); err == nil {
		t.Error("unknown strategy accepted")
	}
}
