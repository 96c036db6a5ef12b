// ABOUTME: Ordered waveform samples with per-sample played flags
// ABOUTME: Mutated in place by the playback controller and read by renderers
package waveform

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIndexOutOfRange is returned when a played index is outside the store
var ErrIndexOutOfRange = errors.New("sample index out of range")

// Store holds the samples of one clip. Its length never changes after creation.
type Store struct {
	mu      sync.RWMutex
	samples []Sample
}

// NewStore creates a store from reduced samples, all marked unplayed
func NewStore(samples []Sample) *Store {
	owned := make([]Sample, len(samples))
	copy(owned, samples)
	for i := range owned {
		owned[i].Played = false
	}
	return &Store{samples: owned}
}

// Len returns the number of samples
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Reset marks every sample unplayed
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.samples {
		s.samples[i].Played = false
	}
}

// MarkPlayed flags one sample as played. Marking twice is a no-op.
func (s *Store) MarkPlayed(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.samples) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(s.samples))
	}
	s.samples[index].Played = true
	return nil
}

// MarkAll flags every sample as played
func (s *Store) MarkAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.samples {
		s.samples[i].Played = true
	}
}

// PlayedCount returns how many samples are flagged played
func (s *Store) PlayedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sample := range s.samples {
		if sample.Played {
			count++
		}
	}
	return count
}

// Snapshot returns a copy of the samples
func (s *Store) Snapshot() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}
