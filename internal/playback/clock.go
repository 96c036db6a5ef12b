// ABOUTME: Time sources for playback: wall clock abstraction and elapsed tracking
// ABOUTME: PlaybackClock accumulates elapsed playback time across pauses
package playback

import "time"

// Ticker delivers periodic ticks
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer is a pending one-shot callback
type Timer interface {
	Stop() bool
}

// Clock abstracts "now" and timers so playback timing can be driven in tests
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the real wall clock
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NewTicker wraps time.NewTicker
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{ticker: time.NewTicker(d)}
}

// AfterFunc wraps time.AfterFunc
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type systemTicker struct {
	ticker *time.Ticker
}

func (t *systemTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *systemTicker) Stop() {
	t.ticker.Stop()
}

// PlaybackClock measures elapsed playback time from a reference start
// instant plus an offset carried over from earlier playing intervals.
// It is not safe for concurrent use; the Controller guards it.
type PlaybackClock struct {
	clock  Clock
	start  *time.Time
	offset time.Duration
}

// NewPlaybackClock creates a stopped clock at zero elapsed
func NewPlaybackClock(clock Clock) *PlaybackClock {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PlaybackClock{clock: clock}
}

// Start begins measuring from now with resumeOffset already elapsed and
// returns the reference instant
func (p *PlaybackClock) Start(resumeOffset time.Duration) time.Time {
	if resumeOffset < 0 {
		resumeOffset = 0
	}
	now := p.clock.Now()
	p.start = &now
	p.offset = resumeOffset
	return now
}

// Stop ends the current interval and returns the time elapsed since Start.
// Stopping a stopped clock returns zero.
func (p *PlaybackClock) Stop() time.Duration {
	if p.start == nil {
		return 0
	}
	since := p.since()
	p.offset += since
	p.start = nil
	return since
}

// Elapsed returns the total elapsed playback time without changing state
func (p *PlaybackClock) Elapsed() time.Duration {
	if p.start == nil {
		return p.offset
	}
	return p.offset + p.since()
}

// Running reports whether the clock has been started and not stopped
func (p *PlaybackClock) Running() bool {
	return p.start != nil
}

// Reset stops the clock and clears the offset
func (p *PlaybackClock) Reset() {
	p.start = nil
	p.offset = 0
}

func (p *PlaybackClock) since() time.Duration {
	d := p.clock.Now().Sub(*p.start)
	if d < 0 {
		return 0
	}
	return d
}
