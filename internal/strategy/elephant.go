package strategy

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gridbt/internal/model"
	"gridbt/internal/series"
)

// ElephantName identifies the primary breakout strategy: an unusually
// large, full-bodied bar (the anchor) followed by a range break on the
// next bar.
const ElephantName = "elephant_bar"

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	Register(Definition{
		Name:        ElephantName,
		ParseParams: parseElephantParams,
		ParseGrid:   parseElephantGrid,
	})
}

// ElephantParams is the flat schema of the elephant-bar strategy.
type ElephantParams struct {
	MinAmplitudeMult  float64         `yaml:"min_amplitude_mult" validate:"gt=0"`
	MinVolumeMult     float64         `yaml:"min_volume_mult" validate:"gt=0"`
	MaxWickPct        float64         `yaml:"max_wick_pct" validate:"gte=0,lte=1"`
	LookbackAmplitude int             `yaml:"lookback_amplitude" validate:"oneof=5 10 15 20 25 30"`
	SessionStart      model.TimeOfDay `yaml:"session_start"`
	SessionEnd        model.TimeOfDay `yaml:"session_end"`
	FlatClose         model.TimeOfDay `yaml:"flat_close"`
	SLATRMult         float64         `yaml:"sl_atr_mult" validate:"gt=0"`
	TPATRMult         float64         `yaml:"tp_atr_mult" validate:"gt=0"`
	UseTrailing       bool            `yaml:"use_trailing"`
}

func (p ElephantParams) StrategyName() string { return ElephantName }

func (p ElephantParams) Key() string {
	return fmt.Sprintf("%s|amp=%g|vol=%g|wick=%g|lb=%d|ss=%s|se=%s|fc=%s|sl=%g|tp=%g|trail=%t",
		ElephantName, p.MinAmplitudeMult, p.MinVolumeMult, p.MaxWickPct, p.LookbackAmplitude,
		p.SessionStart, p.SessionEnd, p.FlatClose, p.SLATRMult, p.TPATRMult, p.UseTrailing)
}

func (p ElephantParams) Fields() map[string]any {
	return map[string]any{
		"min_amplitude_mult": p.MinAmplitudeMult,
		"min_volume_mult":    p.MinVolumeMult,
		"max_wick_pct":       p.MaxWickPct,
		"lookback_amplitude": p.LookbackAmplitude,
		"session_start":      p.SessionStart.String(),
		"session_end":        p.SessionEnd.String(),
		"flat_close":         p.FlatClose.String(),
		"sl_atr_mult":        p.SLATRMult,
		"tp_atr_mult":        p.TPATRMult,
		"use_trailing":       p.UseTrailing,
	}
}

func (p ElephantParams) Strategy() Strategy { return &elephant{p: p} }

func (p ElephantParams) Exec() ExecSpec {
	return ExecSpec{FlatClose: p.FlatClose, Trailing: p.UseTrailing, TrailATRMult: p.SLATRMult}
}

type elephant struct {
	p ElephantParams
}

func (e *elephant) Name() string { return ElephantName }

// Signals scans every bar as a potential anchor. An eligible anchor at
// bar i produces at most one signal: if bar i+1 breaks the anchor's
// range in the anchor's direction, the entry is recorded at i+1 with
// SL/TP fixed from bar i+1's open and ATR. A failed breakout discards
// the anchor for good.
func (e *elephant) Signals(s *series.Series) *Signals {
	p := e.p
	n := s.Len()
	sig := NewSignals(n)
	sig.StartIndex = s.StartIndex()

	sessStart := p.SessionStart.Minutes()
	sessEnd := p.SessionEnd.Minutes()

	for i := 0; i+1 < n; i++ {
		amp := s.High(i) - s.Low(i)
		if amp <= 0 {
			continue
		}
		if mod := s.MinuteOfDay(i); mod < sessStart || mod > sessEnd {
			continue
		}
		if s.Close(i) == s.Open(i) { // doji
			continue
		}
		ampMA := s.AmplitudeMA(p.LookbackAmplitude, i)
		if !(amp >= ampMA*p.MinAmplitudeMult) {
			continue
		}
		if !(float64(s.Volume(i)) >= s.VolumeMA20(i)*p.MinVolumeMult) {
			continue
		}
		body := math.Abs(s.Close(i) - s.Open(i))
		if body/amp < 1-p.MaxWickPct {
			continue
		}

		j := i + 1
		// entries stay gated by session_end at the breakout bar
		if mod := s.MinuteOfDay(j); mod < sessStart || mod > sessEnd {
			continue
		}
		atr := s.ATR(j)
		if math.IsNaN(atr) || atr <= 0 {
			continue
		}
		entry := s.Open(j)
		if s.Close(i) > s.Open(i) {
			if s.High(j) > s.High(i) {
				sig.EnterLong[j] = true
				sig.SLPrice[j] = entry - atr*p.SLATRMult
				sig.TPPrice[j] = entry + atr*p.TPATRMult
			}
		} else {
			if s.Low(j) < s.Low(i) {
				sig.EnterShort[j] = true
				sig.SLPrice[j] = entry + atr*p.SLATRMult
				sig.TPPrice[j] = entry - atr*p.TPATRMult
			}
		}
	}
	return sig
}

func parseElephantParams(doc []byte) (ParamSet, error) {
	var p ElephantParams
	if err := yaml.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("validate params: %w", err)
	}
	return p, nil
}
