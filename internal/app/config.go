package app

import (
	"fmt"
	"time"

	"gridbt/internal/model"
	"gridbt/internal/series"
)

// Config carries everything the CLI resolved from flags. No
// environment variables are required at this layer.
type Config struct {
	Strategy string
	DataPath string

	// optimize
	GridPath   string
	RunBase    string // base directory for fresh run dirs
	RunDir     string // explicit run dir; enables resumption
	Tests      int
	TopN       int
	Workers    int
	ChunkSize  int
	BufferSize int

	// backtest
	ParamsPath string
	OutPath    string

	// series construction
	From         string // YYYY-MM-DD, optional
	To           string // YYYY-MM-DD, optional
	SessionStart string // HH:MM, optional; requires SessionEnd
	SessionEnd   string // HH:MM, optional; requires SessionStart
	Tick         float64

	LogLevel string
}

func (c *Config) DateRange() (from, to time.Time, err error) {
	if c.From != "" {
		if from, err = time.ParseInLocation("2006-01-02", c.From, time.UTC); err != nil {
			return from, to, fmt.Errorf("bad --from: %w", err)
		}
	}
	if c.To != "" {
		if to, err = time.ParseInLocation("2006-01-02", c.To, time.UTC); err != nil {
			return from, to, fmt.Errorf("bad --to: %w", err)
		}
	}
	return from, to, nil
}

// Session resolves the optional bar-level session window. Nil means no
// filtering; both bounds must be given together.
func (c *Config) Session() (*series.SessionFilter, error) {
	if c.SessionStart == "" && c.SessionEnd == "" {
		return nil, nil
	}
	if c.SessionStart == "" || c.SessionEnd == "" {
		return nil, fmt.Errorf("--session-start and --session-end must be set together")
	}
	start, err := model.ParseTimeOfDay(c.SessionStart)
	if err != nil {
		return nil, fmt.Errorf("bad --session-start: %w", err)
	}
	end, err := model.ParseTimeOfDay(c.SessionEnd)
	if err != nil {
		return nil, fmt.Errorf("bad --session-end: %w", err)
	}
	if end.Minutes() < start.Minutes() {
		return nil, fmt.Errorf("session window %s-%s ends before it starts", start, end)
	}
	return &series.SessionFilter{Start: start, End: end}, nil
}
