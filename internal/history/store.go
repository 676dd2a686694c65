package history

// Package history provides the bounded, append-only record stores shared by
// the prediction engine (metrics and prediction history) and the remediation
// dispatcher (remediation history).
//
// Each store is owned by exactly one component. Appends and reads are guarded
// by a single mutex so a background loop and a status reader can share the
// store; reads return copies, never internal slices. Eviction is FIFO with a
// fixed capacity. When a file path is configured every append rewrites the
// whole file (write-through, not transactional): a crash between the in-memory
// append and the file write loses that delta.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultCapacity bounds a store when no explicit capacity is configured.
const DefaultCapacity = 1000

// Store is a bounded in-memory record log with optional file persistence.
// The timestamp extractor drives windowed queries; records are assumed to be
// appended in non-decreasing time order.
type Store[T any] struct {
	mu       sync.Mutex
	records  []T
	capacity int
	filePath string
	stampOf  func(T) time.Time
}

// New creates a store with the given capacity. A capacity of zero or less
// falls back to DefaultCapacity.
func New[T any](capacity int, stampOf func(T) time.Time) *Store[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store[T]{
		capacity: capacity,
		stampOf:  stampOf,
	}
}

// NewPersistent creates a store mirrored to filePath. Existing records are
// loaded eagerly; a missing file is a normal first-run state, any other read
// or parse failure is surfaced so misconfiguration shows up at construction.
func NewPersistent[T any](capacity int, filePath string, stampOf func(T) time.Time) (*Store[T], error) {
	s := New[T](capacity, stampOf)
	s.filePath = filePath

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading history file %s: %w", filePath, err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parsing history file %s: %w", filePath, err)
	}
	if len(s.records) > s.capacity {
		s.records = s.records[len(s.records)-s.capacity:]
	}
	return s, nil
}

// Append adds a record, evicting the oldest beyond capacity, and rewrites the
// backing file when one is configured. Persistence failures are returned but
// the in-memory append always takes effect.
func (s *Store[T]) Append(record T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	if len(s.records) > s.capacity {
		s.records = s.records[len(s.records)-s.capacity:]
	}
	return s.persistLocked()
}

// Len returns the number of stored records.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// All returns a copy of every stored record, oldest first.
func (s *Store[T]) All() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}

// Recent returns copies of the records whose timestamp falls after
// now-window, oldest first.
func (s *Store[T]) Recent(window time.Duration) []T {
	cutoff := time.Now().Add(-window)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, 0, len(s.records))
	for _, r := range s.records {
		if s.stampOf(r).After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// Latest returns the newest record, or false when the store is empty.
func (s *Store[T]) Latest() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if len(s.records) == 0 {
		return zero, false
	}
	return s.records[len(s.records)-1], true
}

// Query returns up to limit records from the past lookback window, newest
// first. It backs the history endpoints for operators and the UI.
func (s *Store[T]) Query(lookback time.Duration, limit int) []T {
	cutoff := time.Now().Add(-lookback)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, 0, limit)
	for _, r := range s.records {
		if s.stampOf(r).After(cutoff) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.stampOf(out[i]).After(s.stampOf(out[j]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// persistLocked rewrites the backing file. Caller must hold the mutex.
func (s *Store[T]) persistLocked() error {
	if s.filePath == "" {
		return nil
	}
	if dir := filepath.Dir(s.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0o600); err != nil {
		return fmt.Errorf("writing history file %s: %w", s.filePath, err)
	}
	return nil
}
