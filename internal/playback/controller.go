// ABOUTME: Playback controller driving the waveform played cursor
// ABOUTME: Owns the play/pause/seek state machine, tick loop and state notifications
package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/bits"
	"sync"
	"time"

	"github.com/harperreed/waveplay/internal/waveform"
	"github.com/harperreed/waveplay/pkg/audio/output"
)

const (
	// DefaultTickEpsilon shortens the tick period so ticks land slightly ahead of each sample boundary
	DefaultTickEpsilon = 30 * time.Millisecond

	// DefaultMinTickInterval bounds the tick rate for very short clips
	DefaultMinTickInterval = 10 * time.Millisecond

	// DefaultFinishDelay keeps the finished waveform on screen before resetting
	DefaultFinishDelay = 600 * time.Millisecond

	subscriberBuffer = 16
)

// ErrResourceUnavailable is returned by controls used before a clip has loaded
var ErrResourceUnavailable = errors.New("audio resource unavailable")

// Config holds controller configuration
type Config struct {
	// TickEpsilon is subtracted from the per-sample span to get the tick period
	TickEpsilon time.Duration

	// MinTickInterval is the shortest tick period (default: 10ms)
	MinTickInterval time.Duration

	// FinishDelay is how long the Finished state lasts; zero resets immediately
	FinishDelay time.Duration

	// Strict panics on internal index errors instead of clamping
	Strict bool

	// Clock is the time source (default: SystemClock)
	Clock Clock

	// Output plays the clip audio (default: silent output)
	Output output.Output

	// OnStateChange is called after every published snapshot
	OnStateChange func(Snapshot)

	// OnFinished is called when a clip plays to the end
	OnFinished func(clipID string)

	// OnUnload is called after a clip is unloaded
	OnUnload func(clipID string)

	// OnError is called when loading a clip fails
	OnError func(error)
}

// DefaultConfig returns the configuration used by the waveplay player
func DefaultConfig() Config {
	return Config{
		TickEpsilon:     DefaultTickEpsilon,
		MinTickInterval: DefaultMinTickInterval,
		FinishDelay:     DefaultFinishDelay,
	}
}

// Controller plays one clip at a time and keeps its waveform store in step
// with elapsed playback time.
type Controller struct {
	config Config
	clock  Clock
	out    output.Output
	loader *waveform.Loader

	mu       sync.Mutex
	clip     *waveform.Clip
	store    *waveform.Store
	loading  bool
	loadErr  error
	loadGen  uint64
	state    State
	pbClock  *PlaybackClock
	elapsed  time.Duration // elapsed before the current playing interval
	marked   int           // samples below this index are played
	tickGen  uint64
	stop     chan struct{}
	done     chan struct{}
	resetter Timer
	subs     map[int]chan Snapshot
	nextSub  int
	closed   bool
}

// NewController creates a controller that loads clips through loader
func NewController(loader *waveform.Loader, config Config) *Controller {
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}
	if config.Output == nil {
		config.Output = output.NewNull()
	}
	if config.MinTickInterval <= 0 {
		config.MinTickInterval = DefaultMinTickInterval
	}
	if loader == nil {
		loader = waveform.NewLoader(nil, 0, "")
	}

	return &Controller{
		config:  config,
		clock:   config.Clock,
		out:     config.Output,
		loader:  loader,
		pbClock: NewPlaybackClock(config.Clock),
		subs:    make(map[int]chan Snapshot),
	}
}

// Load unloads any current clip and decodes payload in the background. The
// returned channel receives the load result once and is then closed.
func (c *Controller) Load(ctx context.Context, id string, payload []byte) <-chan error {
	c.Unload()

	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.loading = true
	c.loadErr = nil
	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)

	errc := make(chan error, 1)
	results := c.loader.Load(ctx, id, payload)

	go func() {
		defer close(errc)
		result := <-results
		err := c.applyLoad(gen, result)
		errc <- err
	}()

	return errc
}

// applyLoad installs a finished load unless a newer load or unload superseded it
func (c *Controller) applyLoad(gen uint64, result waveform.Result) error {
	c.mu.Lock()

	if gen != c.loadGen || c.closed {
		c.mu.Unlock()
		if result.Clip != nil {
			if err := c.loader.Remove(result.Clip); err != nil {
				log.Printf("Failed to remove superseded clip %s: %v", result.Clip.ID, err)
			}
		}
		return context.Canceled
	}

	c.loading = false
	err := result.Err
	if err == nil {
		if outErr := c.out.Load(result.Clip.Buffer); outErr != nil {
			err = fmt.Errorf("output load failed: %w", outErr)
			if rmErr := c.loader.Remove(result.Clip); rmErr != nil {
				log.Printf("Failed to remove staged clip %s: %v", result.Clip.ID, rmErr)
			}
		}
	}

	if err != nil {
		c.loadErr = err
		c.state = Idle
		snap := c.publishLocked()
		c.mu.Unlock()

		log.Printf("Failed to load clip: %v", err)
		c.notify(snap)
		if c.config.OnError != nil {
			c.config.OnError(err)
		}
		return err
	}

	c.clip = result.Clip
	c.store = waveform.NewStore(result.Clip.Samples)
	c.state = Idle
	c.elapsed = 0
	c.marked = 0
	c.pbClock.Reset()
	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Play starts playback from the beginning when idle, resumes when paused and
// pauses when already playing.
func (c *Controller) Play() error {
	c.mu.Lock()

	if c.store == nil {
		reason := "no clip loaded"
		if c.loading {
			reason = "clip still loading"
		} else if c.loadErr != nil {
			reason = "clip failed to load"
		}
		c.mu.Unlock()
		log.Printf("Play ignored: %s", reason)
		return ErrResourceUnavailable
	}

	switch c.state {
	case Playing:
		c.mu.Unlock()
		return c.Pause()
	case Idle, Finished:
		c.cancelResetLocked()
		c.resetLocked()
	}

	c.pbClock.Start(c.elapsed)
	if err := c.out.Play(); err != nil {
		log.Printf("Output play failed: %v", err)
	}
	c.state = Playing
	c.startLoopLocked()

	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Pause stops playback keeping the position. It is a no-op unless playing.
// No tick changes state after Pause returns.
func (c *Controller) Pause() error {
	c.mu.Lock()

	if c.state != Playing {
		c.mu.Unlock()
		return nil
	}

	c.elapsed += c.pbClock.Stop()
	if c.elapsed > c.clip.Duration {
		c.elapsed = c.clip.Duration
	}
	c.stopLoopLocked()
	if err := c.out.Pause(); err != nil {
		log.Printf("Output pause failed: %v", err)
	}
	c.state = Paused

	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Toggle pauses when playing and plays otherwise
func (c *Controller) Toggle() error {
	c.mu.Lock()
	playing := c.state == Playing
	c.mu.Unlock()

	if playing {
		return c.Pause()
	}
	return c.Play()
}

// Stop returns to Idle at the start of the clip
func (c *Controller) Stop() error {
	c.mu.Lock()

	if c.store == nil {
		c.mu.Unlock()
		return nil
	}

	c.stopLoopLocked()
	c.cancelResetLocked()
	if c.state == Playing {
		if err := c.out.Pause(); err != nil {
			log.Printf("Output pause failed: %v", err)
		}
	}
	c.resetLocked()
	c.state = Idle

	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Seek moves the position while playing or paused. The offset is clamped
// to the clip and the played flags are rebuilt up to the new position.
func (c *Controller) Seek(offset time.Duration) error {
	c.mu.Lock()

	if c.store == nil {
		c.mu.Unlock()
		return ErrResourceUnavailable
	}
	if c.state != Playing && c.state != Paused {
		c.mu.Unlock()
		return nil
	}

	if offset < 0 {
		offset = 0
	}
	if offset > c.clip.Duration {
		offset = c.clip.Duration
	}

	c.elapsed = offset
	if c.state == Playing {
		c.pbClock.Start(offset)
	} else {
		c.pbClock.Reset()
	}

	c.store.Reset()
	c.marked = 0
	c.markUpToLocked(offset)

	if err := c.out.Seek(offset); err != nil {
		log.Printf("Output seek failed: %v", err)
	}

	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Unload stops playback, releases the clip and removes its staged payload
func (c *Controller) Unload() {
	c.mu.Lock()

	// Invalidate any load still in flight
	wasLoading := c.loading
	c.loadGen++
	c.loading = false
	c.loadErr = nil

	clip := c.clip
	c.stopLoopLocked()
	c.cancelResetLocked()
	c.pbClock.Reset()
	c.elapsed = 0
	c.marked = 0
	c.state = Idle
	c.clip = nil
	c.store = nil

	if clip == nil {
		var snap Snapshot
		if wasLoading {
			snap = c.publishLocked()
		}
		c.mu.Unlock()
		if wasLoading {
			c.notify(snap)
		}
		return
	}

	if err := c.out.Unload(); err != nil {
		log.Printf("Output unload failed: %v", err)
	}
	if err := c.loader.Remove(clip); err != nil {
		log.Printf("Failed to remove staged clip %s: %v", clip.ID, err)
	}

	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	if c.config.OnUnload != nil {
		c.config.OnUnload(clip.ID)
	}
}

// Close unloads the clip, waits for the tick loop to exit and closes the
// output and all subscriptions. It must not be called from a callback.
func (c *Controller) Close() error {
	c.Unload()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	done := c.done
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	return c.out.Close()
}

// Snapshot returns the current observable state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// Slow readers miss intermediate snapshots but always see the latest.
// The cancel func closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				close(sub)
				delete(c.subs, id)
			}
		})
	}
	return ch, cancel
}

// tickIntervalLocked is the per-sample span shortened by the epsilon
func (c *Controller) tickIntervalLocked() time.Duration {
	n := c.store.Len()
	if n == 0 || c.clip.Duration <= 0 {
		return c.config.MinTickInterval
	}

	interval := c.clip.Duration/time.Duration(n) - c.config.TickEpsilon
	if interval < c.config.MinTickInterval {
		interval = c.config.MinTickInterval
	}
	return interval
}

// startLoopLocked starts a tick goroutine for the current playing interval
func (c *Controller) startLoopLocked() {
	c.stopLoopLocked()

	c.tickGen++
	gen := c.tickGen
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop = stop
	c.done = done

	ticker := c.clock.NewTicker(c.tickIntervalLocked())
	go c.run(gen, ticker, stop, done)
}

// stopLoopLocked invalidates the running tick loop; a tick already waiting
// on the lock sees the new generation and does nothing
func (c *Controller) stopLoopLocked() {
	c.tickGen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// run is the tick loop for one playing interval
func (c *Controller) run(gen uint64, ticker Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if !c.tick(gen) {
				return
			}
		}
	}
}

// tick advances the played cursor and reports whether the loop should continue
func (c *Controller) tick(gen uint64) bool {
	c.mu.Lock()

	if gen != c.tickGen || c.state != Playing {
		c.mu.Unlock()
		return false
	}

	elapsed := c.pbClock.Elapsed()
	if elapsed >= c.clip.Duration {
		c.finishLocked()
		return false
	}

	c.markUpToLocked(elapsed)
	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

// finishLocked completes playback and releases the lock
func (c *Controller) finishLocked() {
	clipID := c.clip.ID

	c.pbClock.Stop()
	c.elapsed = c.clip.Duration
	c.store.MarkAll()
	c.marked = c.store.Len()
	c.stopLoopLocked()
	if err := c.out.Pause(); err != nil {
		log.Printf("Output pause failed: %v", err)
	}
	c.state = Finished
	if c.config.FinishDelay > 0 {
		gen := c.tickGen
		c.resetter = c.clock.AfterFunc(c.config.FinishDelay, func() {
			c.resetAfterFinish(gen)
		})
	}
	finished := c.publishLocked()

	snaps := []Snapshot{finished}
	if c.config.FinishDelay <= 0 {
		c.resetLocked()
		c.state = Idle
		snaps = append(snaps, c.publishLocked())
	}
	c.mu.Unlock()

	log.Printf("Clip %s finished", clipID)
	c.notify(finished)
	if c.config.OnFinished != nil {
		c.config.OnFinished(clipID)
	}
	for _, snap := range snaps[1:] {
		c.notify(snap)
	}
}

// resetAfterFinish returns a finished clip to Idle unless something else happened since
func (c *Controller) resetAfterFinish(gen uint64) {
	c.mu.Lock()

	if gen != c.tickGen || c.state != Finished {
		c.mu.Unlock()
		return
	}

	c.resetter = nil
	c.resetLocked()
	c.state = Idle
	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller) cancelResetLocked() {
	if c.resetter != nil {
		c.resetter.Stop()
		c.resetter = nil
	}
}

// resetLocked rewinds to the start with every sample unplayed
func (c *Controller) resetLocked() {
	c.pbClock.Reset()
	c.elapsed = 0
	c.marked = 0
	if c.store != nil {
		c.store.Reset()
	}
	if c.clip != nil {
		if err := c.out.Seek(0); err != nil {
			log.Printf("Output seek failed: %v", err)
		}
	}
}

// markUpToLocked marks every sample whose span starts before elapsed
func (c *Controller) markUpToLocked(elapsed time.Duration) {
	n := c.store.Len()
	if n == 0 || c.clip.Duration <= 0 {
		return
	}

	target := sampleIndex(elapsed, c.clip.Duration, n)
	if target > n {
		if c.config.Strict {
			panic(fmt.Errorf("%w: target %d (len %d)", waveform.ErrIndexOutOfRange, target, n))
		}
		log.Printf("Clamped played index %d to %d", target, n)
		target = n
	}

	for i := c.marked; i < target; i++ {
		c.markLocked(i)
	}
	if target > c.marked {
		c.marked = target
	}
}

// sampleIndex is floor(elapsed / (duration/n)) computed without truncating the
// span first. The product is taken in 128 bits so long clips with many samples
// cannot overflow; a quotient that does not fit reports n+1.
func sampleIndex(elapsed, duration time.Duration, n int) int {
	if elapsed <= 0 || duration <= 0 || n <= 0 {
		return 0
	}

	hi, lo := bits.Mul64(uint64(elapsed), uint64(n))
	if hi >= uint64(duration) {
		return n + 1
	}
	q, _ := bits.Div64(hi, lo, uint64(duration))
	if q > uint64(n) {
		return n + 1
	}
	return int(q)
}

func (c *Controller) markLocked(index int) {
	err := c.store.MarkPlayed(index)
	if err == nil {
		return
	}
	if c.config.Strict {
		panic(err)
	}
	log.Printf("Clamped played index: %v", err)
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:   c.state,
		Playing: c.state == Playing,
		Loading: c.loading,
		Elapsed: c.elapsed,
	}

	if c.clip != nil {
		snap.ClipID = c.clip.ID
		snap.Duration = c.clip.Duration
		if c.state == Playing {
			snap.Elapsed = c.pbClock.Elapsed()
		}
		if snap.Elapsed > snap.Duration {
			snap.Elapsed = snap.Duration
		}
		snap.Samples = c.store.Snapshot()
		snap.CurrentIndex = c.marked
	}

	snap.ElapsedText = FormatTime(snap.Elapsed)
	if c.state == Idle || c.state == Finished {
		snap.DisplayText = FormatTime(snap.Duration)
	} else {
		snap.DisplayText = snap.ElapsedText
	}
	return snap
}

// publishLocked sends the current snapshot to subscribers and returns it.
// Full channels drop their oldest snapshot.
func (c *Controller) publishLocked() Snapshot {
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}

// notify runs the state change callback outside the lock
func (c *Controller) notify(snap Snapshot) {
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(snap)
	}
}
