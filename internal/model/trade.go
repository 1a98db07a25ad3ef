package model

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

func (s Side) MarshalJSON() ([]byte, error) { return []byte(`"` + s.String() + `"`), nil }

// ExitReason is why a position was closed.
type ExitReason string

const (
	ExitStop          ExitReason = "stop"
	ExitTarget        ExitReason = "target"
	ExitIntradayClose ExitReason = "intraday_close"
)

// Trade is one completed round trip, emitted by the simulator and
// immutable afterwards. Volume is always one unit; PnL is in points.
type Trade struct {
	EntryBar   int        `json:"entry_bar"`
	ExitBar    int        `json:"exit_bar"`
	Side       Side       `json:"side"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	SLPrice    float64    `json:"sl_price"`
	TPPrice    float64    `json:"tp_price"`
	PnLPoints  float64    `json:"pnl_points"`
	ExitReason ExitReason `json:"exit_reason"`
}

// TimeOfDay is a minute-resolution intraday boundary (session limits,
// flat close).
type TimeOfDay struct {
	Hour   int `json:"hour" yaml:"hour" validate:"min=0,max=23"`
	Minute int `json:"minute" yaml:"minute" validate:"min=0,max=59"`
}

func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// ParseTimeOfDay parses the "HH:MM" form produced by String.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("bad time of day %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("bad time of day %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("bad time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// UnmarshalYAML accepts both the compact `[9, 0]` form used in grid
// documents and the `{hour: 9, minute: 0}` map form.
func (t *TimeOfDay) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var hm [2]int
		if err := value.Decode(&hm); err != nil {
			return err
		}
		t.Hour, t.Minute = hm[0], hm[1]
		return nil
	}
	var p struct {
		Hour   int `yaml:"hour"`
		Minute int `yaml:"minute"`
	}
	if err := value.Decode(&p); err != nil {
		return err
	}
	t.Hour, t.Minute = p.Hour, p.Minute
	return nil
}
