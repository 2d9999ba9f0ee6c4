// Package testutil provides deterministic random sources for tests.
package testutil

import (
	"sync"
	"testing"
)

// SequenceSource returns scripted faces in order and fails the test when the
// script runs out or a face is outside the requested range.
type SequenceSource struct {
	t     testing.TB
	mu    sync.Mutex
	faces []int
	pos   int
	calls [][2]int
}

// NewSequenceSource returns a source that yields faces in order.
//
// Precondition: every face must lie in the [lo, hi] of the call that draws it.
func NewSequenceSource(t testing.TB, faces ...int) *SequenceSource {
	return &SequenceSource{t: t, faces: faces}
}

// Next returns the next scripted face.
func (s *SequenceSource) Next(lo, hi int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, [2]int{lo, hi})
	if s.pos >= len(s.faces) {
		s.t.Fatalf("sequence source exhausted after %d draws (next range [%d, %d])", len(s.faces), lo, hi)
		return lo
	}
	v := s.faces[s.pos]
	s.pos++
	if v < lo || v > hi {
		s.t.Fatalf("draw %d: scripted face %d outside [%d, %d]", s.pos, v, lo, hi)
	}
	return v
}

// Remaining returns how many scripted faces have not been drawn.
func (s *SequenceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces) - s.pos
}

// Calls returns the [lo, hi] ranges requested so far.
func (s *SequenceSource) Calls() [][2]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][2]int, len(s.calls))
	copy(out, s.calls)
	return out
}

// ConstantSource always returns Value clamped to the requested range.
type ConstantSource struct {
	Value int
}

// Next returns Value clamped to [lo, hi].
func (c ConstantSource) Next(lo, hi int) int {
	return min(max(c.Value, lo), hi)
}

// FuncSource adapts a function to the Source interface.
type FuncSource func(lo, hi int) int

// Next calls f.
func (f FuncSource) Next(lo, hi int) int { return f(lo, hi) }
