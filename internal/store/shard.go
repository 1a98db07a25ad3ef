package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// RotateEvery bounds records per shard file.
	RotateEvery = 50000
	// writeBufSize keeps flushes at buffer boundaries, not per record.
	writeBufSize = 16 << 20
)

// ShardWriter is the append-only JSONL writer owned by exactly one
// worker. Filenames are deterministic: results-w03-000.jsonl,
// results-w03-001.jsonl, ... rotated every RotateEvery records.
type ShardWriter struct {
	dir      string
	worker   int
	fileSeq  int
	inFile   int
	f        *os.File
	w        *bufio.Writer
	enc      *json.Encoder
	rotateAt int
}

func NewShardWriter(dir string, worker int) *ShardWriter {
	return &ShardWriter{dir: dir, worker: worker, rotateAt: RotateEvery}
}

// Append writes a batch of records in one call. A partially written
// batch only happens on write failure, which is fatal to the sweep.
func (s *ShardWriter) Append(batch []Record) error {
	for i := range batch {
		if s.f == nil || s.inFile >= s.rotateAt {
			if err := s.rotate(); err != nil {
				return err
			}
		}
		if err := s.enc.Encode(&batch[i]); err != nil {
			return fmt.Errorf("shard append: %w", err)
		}
		s.inFile++
	}
	return nil
}

func (s *ShardWriter) rotate() error {
	if err := s.closeFile(); err != nil {
		return err
	}
	name := filepath.Join(s.dir, fmt.Sprintf("results-w%02d-%03d.jsonl", s.worker, s.fileSeq))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("shard open: %w", err)
	}
	s.f = f
	s.w = bufio.NewWriterSize(f, writeBufSize)
	s.enc = json.NewEncoder(s.w)
	s.fileSeq++
	s.inFile = 0
	return nil
}

func (s *ShardWriter) closeFile() error {
	if s.f == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("shard flush: %w", err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("shard close: %w", err)
	}
	s.f, s.w, s.enc = nil, nil, nil
	return nil
}

// Close flushes and closes the current file. Safe to call twice.
func (s *ShardWriter) Close() error { return s.closeFile() }
