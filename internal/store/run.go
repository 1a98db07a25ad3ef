package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Run is one sweep's directory on disk: streamed shards while workers
// produce, ranked artifacts after completion.
type Run struct {
	Dir string
}

// OpenRun creates (or reuses) the run directory. An empty dir gets a
// fresh uuid-named directory under base.
func OpenRun(base, dir string) (*Run, error) {
	if dir == "" {
		dir = filepath.Join(base, "run-"+uuid.NewString())
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("run dir: %w", err)
	}
	return &Run{Dir: dir}, nil
}

// Writer hands a worker its private shard writer.
func (r *Run) Writer(worker int) *ShardWriter { return NewShardWriter(r.Dir, worker) }

// CompletedKeys scans existing shards and returns the configuration
// keys already evaluated, for resumption. Malformed trailing lines
// (lost-buffer crash leftovers) are skipped, not fatal.
func (r *Run) CompletedKeys() (map[string]struct{}, error) {
	files, err := r.shardFiles()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	for _, name := range files {
		if err := readShard(name, func(rec Record) {
			keys[rec.Key] = struct{}{}
		}); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// Records reads every shard record back, for the ranking pass.
func (r *Run) Records() ([]Record, error) {
	files, err := r.shardFiles()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, name := range files {
		if err := readShard(name, func(rec Record) {
			out = append(out, rec)
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Run) shardFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.Dir, "results-w*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func readShard(name string, fn func(Record)) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("read shard: %w", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		fn(rec)
	}
	return sc.Err()
}

// Rank sorts by composite score descending with a stable key
// tie-break, so the final ranking never depends on worker
// interleaving. Failed records sort last. Returns up to n records.
func Rank(records []Record, n int) []Record {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Success != b.Success {
			return a.Success
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Key < b.Key
	})
	if n > 0 && len(records) > n {
		records = records[:n]
	}
	return records
}
