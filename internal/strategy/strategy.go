// Package strategy turns a price series and a parameter set into
// per-bar entry signals. Strategies are pure: same series and params,
// same signals.
package strategy

import (
	"fmt"
	"math"
	"sort"

	"gridbt/internal/model"
	"gridbt/internal/series"
)

// Signals holds parallel per-bar arrays. EnterLong/EnterShort mark the
// bar a position opens on (at that bar's open); SLPrice/TPPrice carry
// the exit levels fixed at signal time, NaN where no signal.
type Signals struct {
	EnterLong  []bool
	EnterShort []bool
	SLPrice    []float64
	TPPrice    []float64

	// StartIndex is the first bar allowed to originate trades.
	StartIndex int
}

func NewSignals(n int) *Signals {
	sig := &Signals{
		EnterLong:  make([]bool, n),
		EnterShort: make([]bool, n),
		SLPrice:    make([]float64, n),
		TPPrice:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		sig.SLPrice[i] = math.NaN()
		sig.TPPrice[i] = math.NaN()
	}
	return sig
}

// Strategy computes signals for a series. Implementations carry their
// parameters and must be deterministic and side-effect free.
type Strategy interface {
	Name() string
	Signals(s *series.Series) *Signals
}

// ExecSpec is the execution-side contract a parameter set implies:
// when the simulator force-liquidates and whether the stop trails.
type ExecSpec struct {
	FlatClose    model.TimeOfDay
	Trailing     bool
	TrailATRMult float64
}

// ParamSet is one fully-bound configuration: it builds its strategy,
// identifies itself for dedupe and tie-breaking, and serializes flat.
type ParamSet interface {
	StrategyName() string
	// Key is a canonical string: equal parameter sets have equal keys.
	// Used for resume bookkeeping and ranking tie-breaks.
	Key() string
	Fields() map[string]any
	Strategy() Strategy
	Exec() ExecSpec
}

// Grid is an expandable parameter space with a stable lexicographic
// order: At(i) for i in [0, Size()) enumerates every combination.
type Grid interface {
	Size() int
	At(i int) ParamSet
}

// Definition registers a strategy by name. The core keeps a closed set
// of known strategies; no dynamic loading.
type Definition struct {
	Name        string
	ParseParams func(doc []byte) (ParamSet, error)
	ParseGrid   func(doc []byte) (Grid, error)
}

var registry = map[string]Definition{}

func Register(d Definition) { registry[d.Name] = d }

func Lookup(name string) (Definition, error) {
	d, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown strategy %q (known: %v)", name, Names())
	}
	return d, nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
