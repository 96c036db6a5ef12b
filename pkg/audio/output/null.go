// ABOUTME: Silent audio output
// ABOUTME: Tracks transport state without a device, for headless runs and tests
package output

import (
	"sync"
	"time"

	"github.com/harperreed/waveplay/pkg/audio"
)

// Null output discards audio but records transport calls
type Null struct {
	mu       sync.Mutex
	loaded   bool
	playing  bool
	position time.Duration
	duration time.Duration
	events   []string
}

// NewNull creates a new silent output
func NewNull() *Null {
	return &Null{}
}

func (n *Null) record(event string) {
	n.events = append(n.events, event)
}

// Load records the clip duration
func (n *Null) Load(buf *audio.Buffer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.loaded = true
	n.playing = false
	n.position = 0
	n.duration = buf.Duration()
	n.record("load")
	return nil
}

// Play marks the output as playing
func (n *Null) Play() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded {
		return ErrNotLoaded
	}
	n.playing = true
	n.record("play")
	return nil
}

// Pause marks the output as paused
func (n *Null) Pause() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded {
		return ErrNotLoaded
	}
	n.playing = false
	n.record("pause")
	return nil
}

// Seek records the new position, clamped to the clip
func (n *Null) Seek(offset time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded {
		return ErrNotLoaded
	}
	if offset < 0 {
		offset = 0
	}
	if offset > n.duration {
		offset = n.duration
	}
	n.position = offset
	n.record("seek")
	return nil
}

// Unload forgets the clip
func (n *Null) Unload() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.loaded = false
	n.playing = false
	n.position = 0
	n.duration = 0
	n.record("unload")
	return nil
}

// Close is a no-op
func (n *Null) Close() error {
	return nil
}

// Playing reports whether Play was called more recently than Pause
func (n *Null) Playing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing
}

// Loaded reports whether a clip is loaded
func (n *Null) Loaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loaded
}

// Position returns the last seek position
func (n *Null) Position() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

// Events returns the transport calls received so far
func (n *Null) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, len(n.events))
	copy(out, n.events)
	return out
}
