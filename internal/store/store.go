// Package store owns the single in-memory FarmState shared by the simulator,
// the broadcaster and the control surface.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
)

// ErrStoreClosed is returned by Apply once the store has been shut down.
var ErrStoreClosed = errors.New("store: closed")

// Snapshot is a read-consistent copy of the state. Callers must not modify
// its slices; every Snapshot gets its own copy so doing so never leaks back.
type Snapshot struct {
	Version uint64
	TakenAt time.Time
	State   entities.FarmState
}

// Mutation changes the state in place. Derived fields are recomputed after it returns.
type Mutation func(st *entities.FarmState) error

type Store struct {
	mu      sync.RWMutex
	state   entities.FarmState
	version uint64
	closed  bool
	now     func() time.Time
}

func New(initial entities.FarmState) *Store {
	st := initial.Clone()
	st.Recompute()
	return &Store{state: st, now: time.Now}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Apply runs fn with exclusive access. A failing or panicking mutation is rolled
// back, so readers only ever see whole mutations with derived fields in sync.
func (s *Store) Apply(fn Mutation) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Snapshot{}, ErrStoreClosed
	}

	backup := s.state.Clone()
	if err := run(fn, &s.state); err != nil {
		s.state = backup
		return Snapshot{}, err
	}
	s.state.Recompute()
	s.version++
	return s.snapshotLocked(), nil
}

// Version is the number of mutations applied so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Close makes the store unreachable for writers. Reads keep working.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version: s.version,
		TakenAt: s.now(),
		State:   s.state.Clone(),
	}
}

func run(fn Mutation, st *entities.FarmState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store: mutation panicked: %v", r)
		}
	}()
	if fn == nil {
		return errors.New("store: nil mutation")
	}
	if err := fn(st); err != nil {
		return fmt.Errorf("store: mutation failed: %w", err)
	}
	return nil
}
