package strategy

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"gridbt/internal/model"
)

// ElephantGrid enumerates candidate values per parameter. Axis order
// is fixed (schema order) so At walks combinations lexicographically,
// first axis slowest.
type ElephantGrid struct {
	MinAmplitudeMult  []float64         `yaml:"min_amplitude_mult" validate:"min=1,dive,gt=0"`
	MinVolumeMult     []float64         `yaml:"min_volume_mult" validate:"min=1,dive,gt=0"`
	MaxWickPct        []float64         `yaml:"max_wick_pct" validate:"min=1,dive,gte=0,lte=1"`
	LookbackAmplitude []int             `yaml:"lookback_amplitude" validate:"min=1,dive,oneof=5 10 15 20 25 30"`
	SessionStart      []model.TimeOfDay `yaml:"session_start"`
	SessionEnd        []model.TimeOfDay `yaml:"session_end"`
	FlatClose         []model.TimeOfDay `yaml:"flat_close"`
	SLATRMult         []float64         `yaml:"sl_atr_mult" validate:"min=1,dive,gt=0"`
	TPATRMult         []float64         `yaml:"tp_atr_mult" validate:"min=1,dive,gt=0"`
	UseTrailing       []bool            `yaml:"use_trailing"`
}

func (g *ElephantGrid) applyDefaults() {
	if len(g.SessionStart) == 0 {
		g.SessionStart = []model.TimeOfDay{{Hour: 9, Minute: 0}}
	}
	if len(g.SessionEnd) == 0 {
		g.SessionEnd = []model.TimeOfDay{{Hour: 14, Minute: 55}}
	}
	if len(g.FlatClose) == 0 {
		g.FlatClose = []model.TimeOfDay{{Hour: 15, Minute: 0}}
	}
	if len(g.UseTrailing) == 0 {
		g.UseTrailing = []bool{false}
	}
}

func (g *ElephantGrid) axisSizes() [10]int {
	return [10]int{
		len(g.MinAmplitudeMult),
		len(g.MinVolumeMult),
		len(g.MaxWickPct),
		len(g.LookbackAmplitude),
		len(g.SessionStart),
		len(g.SessionEnd),
		len(g.FlatClose),
		len(g.SLATRMult),
		len(g.TPATRMult),
		len(g.UseTrailing),
	}
}

func (g *ElephantGrid) Size() int {
	n := 1
	for _, s := range g.axisSizes() {
		n *= s
	}
	return n
}

// At decodes combination index i in mixed radix, last axis fastest.
func (g *ElephantGrid) At(i int) ParamSet {
	sizes := g.axisSizes()
	var idx [10]int
	for a := len(sizes) - 1; a >= 0; a-- {
		idx[a] = i % sizes[a]
		i /= sizes[a]
	}
	return ElephantParams{
		MinAmplitudeMult:  g.MinAmplitudeMult[idx[0]],
		MinVolumeMult:     g.MinVolumeMult[idx[1]],
		MaxWickPct:        g.MaxWickPct[idx[2]],
		LookbackAmplitude: g.LookbackAmplitude[idx[3]],
		SessionStart:      g.SessionStart[idx[4]],
		SessionEnd:        g.SessionEnd[idx[5]],
		FlatClose:         g.FlatClose[idx[6]],
		SLATRMult:         g.SLATRMult[idx[7]],
		TPATRMult:         g.TPATRMult[idx[8]],
		UseTrailing:       g.UseTrailing[idx[9]],
	}
}

func parseElephantGrid(doc []byte) (Grid, error) {
	var g ElephantGrid
	if err := yaml.Unmarshal(doc, &g); err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}
	g.applyDefaults()
	if err := validate.Struct(&g); err != nil {
		return nil, fmt.Errorf("validate grid: %w", err)
	}
	return &g, nil
}
