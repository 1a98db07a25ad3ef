// Package sweep expands a parameter grid, evaluates every combination
// on a fixed worker pool, and streams compact result records to the
// store. The price series is shared read-only across workers; each
// worker owns its buffer and shard files.
package sweep

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"gridbt/internal/metrics"
	"gridbt/internal/series"
	"gridbt/internal/sim"
	"gridbt/internal/store"
	"gridbt/internal/strategy"
)

// ErrCancelled reports a user-requested stop. Streamed shards stay
// valid; the ranking artifacts are not produced.
var ErrCancelled = errors.New("sweep cancelled")

const (
	// DefaultSeed fixes the sampling order when the grid is larger
	// than max tests.
	DefaultSeed = 42

	defaultChunkSize  = 2000
	defaultBufferSize = 20000
	heartbeatEvery    = 30 * time.Second
)

type Options struct {
	MaxTests   int // 0 = evaluate the full grid
	TopN       int
	Workers    int   // 0 = NumCPU
	ChunkSize  int   // configurations per dispatch unit
	BufferSize int   // records buffered per worker before a flush
	Seed       int64 // 0 = DefaultSeed
	Weights    metrics.Weights
	Resume     bool // skip configurations already on disk in the run dir
}

func (o *Options) defaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Weights == (metrics.Weights{}) {
		o.Weights = metrics.DefaultWeights
	}
	if o.TopN <= 0 {
		o.TopN = 10
	}
}

// Run executes the sweep and, on completion, ranks all streamed
// records and writes the run artifacts. The shutdown channel is the
// cooperative cancel flag: workers drain their current chunk, flush,
// and exit.
func Run(s *series.Series, grid strategy.Grid, run *store.Run, shutdown <-chan struct{}, opts Options) (store.Summary, error) {
	opts.defaults()
	start := time.Now()

	idxs, sampled := expand(grid.Size(), opts.MaxTests, opts.Seed)
	configs := make([]strategy.ParamSet, 0, len(idxs))
	for _, i := range idxs {
		configs = append(configs, grid.At(i))
	}
	if opts.Resume {
		done, err := run.CompletedKeys()
		if err != nil {
			return store.Summary{}, err
		}
		if len(done) > 0 {
			kept := configs[:0]
			for _, ps := range configs {
				if _, ok := done[ps.Key()]; !ok {
					kept = append(kept, ps)
				}
			}
			slog.Info("resuming run", "completed", len(configs)-len(kept), "remaining", len(kept))
			configs = kept
		}
	}

	slog.Info("sweep start",
		"grid_size", grid.Size(), "tests", len(configs), "sampled", sampled,
		"workers", opts.Workers, "chunk_size", opts.ChunkSize)

	if err := runPool(s, configs, run, shutdown, opts); err != nil {
		return store.Summary{}, err
	}

	records, err := run.Records()
	if err != nil {
		return store.Summary{}, err
	}
	failed := 0
	for _, rec := range records {
		if !rec.Success {
			failed++
		}
	}
	sum := store.Summary{
		Timestamp:  time.Now().UTC(),
		TotalTests: len(records),
		GridSize:   grid.Size(),
		Sampled:    sampled,
		Failed:     failed,
		TopN:       store.Rank(records, opts.TopN),
	}
	if len(records) > 0 {
		sum.Strategy = records[0].Strategy
	}
	if err := run.WriteArtifacts(sum); err != nil {
		return store.Summary{}, err
	}

	elapsed := time.Since(start)
	rate := float64(len(configs)) / elapsed.Seconds()
	slog.Info("sweep done",
		"tests", len(records), "failed", failed,
		"elapsed", elapsed.Round(time.Millisecond), "tests_per_sec", int(rate))
	return sum, nil
}

// expand emits the full grid in lexicographic order, or a uniform
// seeded sample of unique combinations when the grid is larger than
// maxTests.
func expand(size, maxTests int, seed int64) (idxs []int, sampled bool) {
	if maxTests <= 0 || size <= maxTests {
		idxs = make([]int, size)
		for i := range idxs {
			idxs[i] = i
		}
		return idxs, false
	}
	rng := rand.New(rand.NewSource(seed))
	seen := make(map[int]struct{}, maxTests)
	idxs = make([]int, 0, maxTests)
	for len(idxs) < maxTests {
		i := rng.Intn(size)
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		idxs = append(idxs, i)
	}
	return idxs, true
}

// runPool is the single-master, many-worker execution core. Workers
// are created once, pull chunks from the pending channel, and yield
// only when flushing their buffer to the store.
func runPool(s *series.Series, configs []strategy.ParamSet, run *store.Run, shutdown <-chan struct{}, opts Options) error {
	chunks := chunk(configs, opts.ChunkSize)
	pending := make(chan []strategy.ParamSet, len(chunks))
	for _, c := range chunks {
		pending <- c
	}
	close(pending)

	var done atomic.Int64
	var cancelled atomic.Bool
	// room for a flush error and a close error per worker
	fatal := make(chan error, 2*opts.Workers)
	ioAbort := make(chan struct{})
	var abortOnce sync.Once

	stopHeartbeat := make(chan struct{})
	go heartbeat(stopHeartbeat, &done, int64(len(configs)))

	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		go func(id int) {
			defer wg.Done()
			writer := run.Writer(id)
			ioFail := func(err error) {
				fatal <- fmt.Errorf("io failure: %w", err)
				abortOnce.Do(func() { close(ioAbort) })
			}
			// the buffered writer surfaces most disk errors only at the
			// final flush, so Close is as fatal as Append
			defer func() {
				if err := writer.Close(); err != nil {
					ioFail(err)
				}
			}()
			buf := make([]store.Record, 0, opts.BufferSize)

			flush := func() bool {
				if len(buf) == 0 {
					return true
				}
				if err := writer.Append(buf); err != nil {
					ioFail(err)
					return false
				}
				buf = buf[:0]
				return true
			}

			for {
				// cancellation is checked first at every chunk boundary:
				// drain the current chunk, flush, exit
				select {
				case <-shutdown:
					cancelled.Store(true)
					flush()
					return
				default:
				}
				select {
				case <-shutdown:
					cancelled.Store(true)
					flush()
					return
				case <-ioAbort:
					return
				case c, ok := <-pending:
					if !ok {
						flush()
						return
					}
					for _, ps := range c {
						buf = append(buf, Evaluate(s, ps, opts.Weights))
						if len(buf) >= opts.BufferSize {
							if !flush() {
								return
							}
						}
					}
					done.Add(int64(len(c)))
				}
			}
		}(w)
	}
	wg.Wait()
	close(stopHeartbeat)

	select {
	case err := <-fatal:
		return err
	default:
	}
	if cancelled.Load() {
		return ErrCancelled
	}
	return nil
}

// Evaluate runs one configuration end to end: signals → simulation →
// metrics → compact record. Per-configuration errors become failure
// records, never panics.
func Evaluate(s *series.Series, ps strategy.ParamSet, w metrics.Weights) store.Record {
	sig := ps.Strategy().Signals(s)
	trades, err := sim.Run(s, sig, ps.Exec())
	if err != nil {
		// the simulator's only local failure is malformed input;
		// store failures travel through the fatal channel instead
		return store.NewFailureRecord(ps, "invalid_input")
	}
	rep := metrics.Compute(trades)
	return store.NewRecord(ps, rep, metrics.Score(rep, w))
}

func chunk(configs []strategy.ParamSet, size int) [][]strategy.ParamSet {
	var out [][]strategy.ParamSet
	for len(configs) > size {
		out = append(out, configs[:size])
		configs = configs[size:]
	}
	if len(configs) > 0 {
		out = append(out, configs)
	}
	return out
}

func heartbeat(stop <-chan struct{}, done *atomic.Int64, total int64) {
	t := time.NewTicker(heartbeatEvery)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			d := done.Load()
			slog.Info("heartbeat", "done", d, "total", total)
		}
	}
}
