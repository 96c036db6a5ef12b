// ABOUTME: Tests for the playback controller state machine
// ABOUTME: Drives ticks with a manual clock and observes snapshots via subscriptions
package playback

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/harperreed/waveplay/internal/waveform"
	"github.com/harperreed/waveplay/pkg/audio"
	"github.com/harperreed/waveplay/pkg/audio/decode"
	"github.com/harperreed/waveplay/pkg/audio/output"
)

const testRate = 8000

type testRig struct {
	ctrl  *Controller
	clock *manualClock
	out   *output.Null
	snaps <-chan Snapshot
}

// newRig loads a silent raw PCM clip of the given length into a controller
func newRig(t *testing.T, length time.Duration, sampleCount int, config Config) *testRig {
	t.Helper()

	dec, err := decode.NewPCM(audio.Format{Codec: "pcm", SampleRate: testRate, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	clock := newManualClock()
	out := output.NewNull()
	config.Clock = clock
	config.Output = out

	ctrl := NewController(waveform.NewLoader(dec, sampleCount, t.TempDir()), config)
	t.Cleanup(func() { ctrl.Close() })

	frames := int(length * testRate / time.Second)
	if err := <-ctrl.Load(context.Background(), "clip-1", make([]byte, frames*2)); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	snaps, _ := ctrl.Subscribe()
	return &testRig{ctrl: ctrl, clock: clock, out: out, snaps: snaps}
}

func testConfig() Config {
	config := DefaultConfig()
	config.FinishDelay = 0
	config.Strict = true
	return config
}

// waitFor reads snapshots until one satisfies cond
func waitFor(t *testing.T, snaps <-chan Snapshot, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				t.Fatalf("subscription closed while waiting for %s", what)
			}
			if cond(snap) {
				return snap
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func playedIndices(samples []waveform.Sample) []int {
	var out []int
	for i, s := range samples {
		if s.Played {
			out = append(out, i)
		}
	}
	return out
}

func TestLoadPublishesIdleClip(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	snap := rig.ctrl.Snapshot()
	if snap.State != Idle || snap.Playing {
		t.Errorf("expected idle after load, got %v", snap.State)
	}
	if snap.Duration != 5*time.Second {
		t.Errorf("expected 5s duration, got %v", snap.Duration)
	}
	if len(snap.Samples) != 20 {
		t.Errorf("expected 20 samples, got %d", len(snap.Samples))
	}
	if snap.DisplayText != "00:05" {
		t.Errorf("expected idle display to show clip length, got %q", snap.DisplayText)
	}
	if snap.ClipID != "clip-1" {
		t.Errorf("expected clip id clip-1, got %q", snap.ClipID)
	}
}

func TestTickMarksSamplesByElapsedTime(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	if err := rig.ctrl.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	rig.clock.Advance(2600 * time.Millisecond)
	snap := waitFor(t, rig.snaps, "index 10", func(s Snapshot) bool { return s.CurrentIndex == 10 })

	played := playedIndices(snap.Samples)
	if len(played) != 10 || played[0] != 0 || played[9] != 9 {
		t.Errorf("expected samples 0..9 played, got %v", played)
	}
	if snap.ElapsedText != "00:02" || snap.DisplayText != "00:02" {
		t.Errorf("expected 00:02 while playing, got elapsed=%q display=%q", snap.ElapsedText, snap.DisplayText)
	}
	if !rig.out.Playing() {
		t.Error("expected output to be playing")
	}
}

func TestTickIntervalUsesEpsilon(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	rig.ctrl.mu.Lock()
	interval := rig.ctrl.tickIntervalLocked()
	rig.ctrl.mu.Unlock()

	if interval != 220*time.Millisecond {
		t.Errorf("expected 250ms span minus 30ms epsilon, got %v", interval)
	}
}

func TestPlayedSetGrowsMonotonically(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())
	rig.ctrl.Play()

	previous := 0
	for step := 1; step <= 8; step++ {
		rig.clock.Advance(300 * time.Millisecond)
		want := int(time.Duration(step) * 300 * time.Millisecond * 20 / (5 * time.Second))
		snap := waitFor(t, rig.snaps, "next index", func(s Snapshot) bool { return s.CurrentIndex == want })

		count := len(playedIndices(snap.Samples))
		if count < previous {
			t.Fatalf("played set shrank from %d to %d", previous, count)
		}
		previous = count
	}
}

func TestPauseResumeConservesElapsed(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	rig.ctrl.Play()
	rig.clock.Advance(time.Second)
	waitFor(t, rig.snaps, "index 4", func(s Snapshot) bool { return s.CurrentIndex == 4 })

	rig.ctrl.Pause()
	if snap := rig.ctrl.Snapshot(); snap.State != Paused || snap.Elapsed != time.Second {
		t.Fatalf("expected paused at 1s, got %v at %v", snap.State, snap.Elapsed)
	}

	// Time spent paused does not count
	rig.clock.Advance(30 * time.Second)

	rig.ctrl.Play()
	rig.clock.Advance(time.Second)
	snap := waitFor(t, rig.snaps, "index 8", func(s Snapshot) bool { return s.CurrentIndex == 8 })
	if snap.Elapsed != 2*time.Second {
		t.Errorf("expected 2s elapsed after resume, got %v", snap.Elapsed)
	}

	rig.ctrl.Pause()
	if got := rig.ctrl.Snapshot().Elapsed; got != 2*time.Second {
		t.Errorf("expected elapsed to equal the two playing intervals, got %v", got)
	}
}

func TestNoTickAfterPause(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	rig.ctrl.Play()
	// Deliver a tick and pause without waiting for it to be handled
	rig.clock.Advance(time.Second)
	rig.ctrl.Pause()

	before := rig.ctrl.Snapshot()

	rig.clock.Advance(3 * time.Second)
	time.Sleep(20 * time.Millisecond)

	after := rig.ctrl.Snapshot()
	if after.State != Paused {
		t.Fatalf("expected paused, got %v", after.State)
	}
	if after.CurrentIndex != before.CurrentIndex || after.Elapsed != before.Elapsed {
		t.Errorf("state changed after pause: index %d -> %d, elapsed %v -> %v",
			before.CurrentIndex, after.CurrentIndex, before.Elapsed, after.Elapsed)
	}
	if len(playedIndices(after.Samples)) != len(playedIndices(before.Samples)) {
		t.Error("samples were marked after pause returned")
	}
}

func TestCompletionResetsToIdle(t *testing.T) {
	finished := make(chan string, 4)
	config := testConfig()
	config.OnFinished = func(clipID string) { finished <- clipID }
	rig := newRig(t, 2*time.Second, 10, config)

	rig.ctrl.Play()
	rig.clock.Advance(3 * time.Second)

	done := waitFor(t, rig.snaps, "finished", func(s Snapshot) bool { return s.State == Finished })
	if len(playedIndices(done.Samples)) != 10 {
		t.Errorf("expected all samples played on finish, got %v", playedIndices(done.Samples))
	}
	if done.Elapsed != 2*time.Second {
		t.Errorf("expected elapsed clamped to duration, got %v", done.Elapsed)
	}

	idle := waitFor(t, rig.snaps, "idle", func(s Snapshot) bool { return s.State == Idle })
	if len(playedIndices(idle.Samples)) != 0 || idle.Elapsed != 0 {
		t.Errorf("expected reset after finish, got %d played at %v", len(playedIndices(idle.Samples)), idle.Elapsed)
	}

	select {
	case id := <-finished:
		if id != "clip-1" {
			t.Errorf("expected finished notification for clip-1, got %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected finished notification")
	}
	if len(finished) != 0 {
		t.Errorf("expected exactly one finished notification, got %d more", len(finished))
	}
}

func TestFinishDelay(t *testing.T) {
	config := testConfig()
	config.FinishDelay = 600 * time.Millisecond
	rig := newRig(t, time.Second, 4, config)

	rig.ctrl.Play()
	rig.clock.Advance(time.Second)
	waitFor(t, rig.snaps, "finished", func(s Snapshot) bool { return s.State == Finished })

	if snap := rig.ctrl.Snapshot(); snap.State != Finished || snap.DisplayText != "00:01" {
		t.Errorf("expected finished display before the delay, got %v %q", snap.State, snap.DisplayText)
	}

	rig.clock.Advance(600 * time.Millisecond)
	idle := waitFor(t, rig.snaps, "idle", func(s Snapshot) bool { return s.State == Idle })
	if len(playedIndices(idle.Samples)) != 0 {
		t.Error("expected samples reset after finish delay")
	}
}

func TestPlayWhilePlayingPauses(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	rig.ctrl.Play()
	rig.ctrl.Play()
	if state := rig.ctrl.Snapshot().State; state != Paused {
		t.Errorf("expected second play to pause, got %v", state)
	}

	rig.ctrl.Toggle()
	if state := rig.ctrl.Snapshot().State; state != Playing {
		t.Errorf("expected toggle to resume, got %v", state)
	}
}

func TestPauseWhileIdleIsNoop(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	if err := rig.ctrl.Pause(); err != nil {
		t.Errorf("expected nil from pause while idle, got %v", err)
	}
	if state := rig.ctrl.Snapshot().State; state != Idle {
		t.Errorf("expected idle, got %v", state)
	}
}

func TestPlayWithoutClip(t *testing.T) {
	ctrl := NewController(nil, Config{Clock: newManualClock()})
	defer ctrl.Close()

	if err := ctrl.Play(); !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("expected ErrResourceUnavailable, got %v", err)
	}
	if err := ctrl.Seek(time.Second); !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("expected ErrResourceUnavailable from seek, got %v", err)
	}
}

func TestPlayAfterDecodeFailure(t *testing.T) {
	dec, _ := decode.NewPCM(audio.Format{Codec: "pcm", SampleRate: testRate, Channels: 2, BitDepth: 16})

	var reported error
	ctrl := NewController(waveform.NewLoader(dec, 20, t.TempDir()), Config{
		Clock:   newManualClock(),
		OnError: func(err error) { reported = err },
	})
	defer ctrl.Close()

	// Three bytes is not a whole 4-byte stereo frame
	err := <-ctrl.Load(context.Background(), "bad", []byte{1, 2, 3})

	var decErr *decode.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *decode.DecodeError, got %v", err)
	}
	if reported == nil {
		t.Error("expected OnError to be called")
	}

	snap := ctrl.Snapshot()
	if snap.State != Idle || len(snap.Samples) != 0 {
		t.Errorf("expected idle with no samples, got %v with %d samples", snap.State, len(snap.Samples))
	}

	if err := ctrl.Play(); !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("expected ErrResourceUnavailable, got %v", err)
	}
}

func TestSeek(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	// Seeking while idle does nothing
	rig.ctrl.Seek(2 * time.Second)
	if idx := rig.ctrl.Snapshot().CurrentIndex; idx != 0 {
		t.Fatalf("expected idle seek to be ignored, got index %d", idx)
	}

	rig.ctrl.Play()
	rig.ctrl.Pause()

	rig.ctrl.Seek(3 * time.Second)
	snap := rig.ctrl.Snapshot()
	if snap.CurrentIndex != 12 || len(playedIndices(snap.Samples)) != 12 {
		t.Errorf("expected 12 samples played after seek to 3s, got index %d", snap.CurrentIndex)
	}
	if rig.out.Position() != 3*time.Second {
		t.Errorf("expected output seek to 3s, got %v", rig.out.Position())
	}

	// Seeking back clears flags beyond the new position
	rig.ctrl.Seek(-time.Second)
	snap = rig.ctrl.Snapshot()
	if snap.Elapsed != 0 || len(playedIndices(snap.Samples)) != 0 {
		t.Errorf("expected seek clamped to start, got %v with %d played", snap.Elapsed, len(playedIndices(snap.Samples)))
	}

	rig.ctrl.Seek(time.Second)
	rig.ctrl.Play()
	rig.clock.Advance(500 * time.Millisecond)
	snap = waitFor(t, rig.snaps, "index 6", func(s Snapshot) bool { return s.CurrentIndex == 6 })
	if snap.Elapsed != 1500*time.Millisecond {
		t.Errorf("expected playback to resume from the seek position, got %v", snap.Elapsed)
	}
}

func TestSeekWhilePlaying(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	rig.ctrl.Play()
	rig.clock.Advance(time.Second)
	waitFor(t, rig.snaps, "index 4", func(s Snapshot) bool { return s.CurrentIndex == 4 })

	if err := rig.ctrl.Seek(3 * time.Second); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	snap := rig.ctrl.Snapshot()
	if snap.State != Playing || snap.CurrentIndex != 12 {
		t.Errorf("expected playing at index 12 after seek, got %v at %d", snap.State, snap.CurrentIndex)
	}
	if rig.out.Position() != 3*time.Second || !rig.out.Playing() {
		t.Errorf("expected output playing from 3s, got %v playing=%v", rig.out.Position(), rig.out.Playing())
	}

	// The clock restarts at the seek offset
	rig.clock.Advance(500 * time.Millisecond)
	snap = waitFor(t, rig.snaps, "index 14", func(s Snapshot) bool { return s.CurrentIndex == 14 })
	if snap.Elapsed != 3500*time.Millisecond {
		t.Errorf("expected elapsed to continue from 3s, got %v", snap.Elapsed)
	}
	played := playedIndices(snap.Samples)
	if len(played) != 14 || played[0] != 0 || played[13] != 13 {
		t.Errorf("expected samples 0..13 played, got %v", played)
	}
}

func TestPlayFromFinishedCancelsReset(t *testing.T) {
	config := testConfig()
	config.FinishDelay = 600 * time.Millisecond
	rig := newRig(t, 2*time.Second, 8, config)

	rig.ctrl.Play()
	rig.clock.Advance(2 * time.Second)
	waitFor(t, rig.snaps, "finished", func(s Snapshot) bool { return s.State == Finished })

	if err := rig.ctrl.Play(); err != nil {
		t.Fatalf("play from finished failed: %v", err)
	}
	snap := rig.ctrl.Snapshot()
	if snap.State != Playing || snap.Elapsed != 0 || len(playedIndices(snap.Samples)) != 0 {
		t.Errorf("expected replay from the start, got %v at %v with %d played",
			snap.State, snap.Elapsed, len(playedIndices(snap.Samples)))
	}

	// The pending reset would have been due here
	rig.clock.Advance(600 * time.Millisecond)
	snap = waitFor(t, rig.snaps, "index 2", func(s Snapshot) bool { return s.CurrentIndex == 2 })
	if snap.State != Playing {
		t.Errorf("expected to keep playing past the finish delay, got %v", snap.State)
	}

	rig.ctrl.mu.Lock()
	resetter := rig.ctrl.resetter
	rig.ctrl.mu.Unlock()
	if resetter != nil {
		t.Error("expected the finish reset to be cancelled")
	}
	if state := rig.ctrl.Snapshot().State; state != Playing {
		t.Errorf("expected playing, got %v", state)
	}
}

func TestStop(t *testing.T) {
	rig := newRig(t, 5*time.Second, 20, testConfig())

	rig.ctrl.Play()
	rig.clock.Advance(2 * time.Second)
	waitFor(t, rig.snaps, "index 8", func(s Snapshot) bool { return s.CurrentIndex == 8 })

	rig.ctrl.Stop()
	snap := rig.ctrl.Snapshot()
	if snap.State != Idle || snap.Elapsed != 0 || len(playedIndices(snap.Samples)) != 0 {
		t.Errorf("expected stop to reset, got %v at %v with %d played",
			snap.State, snap.Elapsed, len(playedIndices(snap.Samples)))
	}
	if rig.out.Playing() {
		t.Error("expected output paused after stop")
	}
}

func TestUnloadRemovesClip(t *testing.T) {
	var unloaded string
	config := testConfig()
	config.OnUnload = func(clipID string) { unloaded = clipID }
	rig := newRig(t, 5*time.Second, 20, config)

	rig.ctrl.mu.Lock()
	staged := rig.ctrl.clip.Path
	rig.ctrl.mu.Unlock()

	rig.ctrl.Play()
	rig.ctrl.Unload()

	if unloaded != "clip-1" {
		t.Errorf("expected unload notification for clip-1, got %q", unloaded)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Errorf("expected staged payload removed, got %v", err)
	}
	if rig.out.Loaded() {
		t.Error("expected output to be unloaded")
	}
	if err := rig.ctrl.Play(); !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("expected ErrResourceUnavailable after unload, got %v", err)
	}

	snap := rig.ctrl.Snapshot()
	if snap.ClipID != "" || len(snap.Samples) != 0 {
		t.Errorf("expected empty snapshot after unload, got %+v", snap)
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	rig := newRig(t, time.Second, 4, testConfig())
	rig.ctrl.Play()

	if err := rig.ctrl.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-rig.snaps:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("expected subscription to be closed")
		}
	}
}

func TestStateString(t *testing.T) {
	if Playing.String() != "playing" || Finished.String() != "finished" {
		t.Errorf("unexpected state names: %s %s", Playing, Finished)
	}
}

func TestMarkBeyondEndPanicsInStrictMode(t *testing.T) {
	rig := newRig(t, time.Second, 10, testConfig())

	defer func() {
		r := recover()
		rig.ctrl.mu.Unlock()
		err, ok := r.(error)
		if !ok || !errors.Is(err, waveform.ErrIndexOutOfRange) {
			t.Fatalf("expected ErrIndexOutOfRange panic, got %v", r)
		}
	}()

	rig.ctrl.mu.Lock()
	rig.ctrl.markUpToLocked(3 * time.Second)
}

func TestMarkBeyondEndClampsWhenNotStrict(t *testing.T) {
	config := testConfig()
	config.Strict = false
	rig := newRig(t, time.Second, 10, config)

	rig.ctrl.mu.Lock()
	rig.ctrl.markUpToLocked(3 * time.Second)
	marked := rig.ctrl.marked
	rig.ctrl.mu.Unlock()

	if marked != 10 {
		t.Errorf("expected cursor clamped to 10, got %d", marked)
	}
	if got := len(playedIndices(rig.ctrl.Snapshot().Samples)); got != 10 {
		t.Errorf("expected all 10 samples played, got %d", got)
	}
}

// gatedDecoder blocks its first Decode until the gate is closed
type gatedDecoder struct {
	inner   decode.Decoder
	gate    chan struct{}
	entered chan struct{}

	mu    sync.Mutex
	calls int
}

func (d *gatedDecoder) Decode(data []byte) (*audio.Buffer, error) {
	d.mu.Lock()
	d.calls++
	first := d.calls == 1
	d.mu.Unlock()

	if first {
		close(d.entered)
		<-d.gate
	}
	return d.inner.Decode(data)
}

func (d *gatedDecoder) Close() error {
	return nil
}

func TestSupersededLoadWithSameIDKeepsLiveClip(t *testing.T) {
	pcm, err := decode.NewPCM(audio.Format{Codec: "pcm", SampleRate: testRate, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	dec := &gatedDecoder{inner: pcm, gate: make(chan struct{}), entered: make(chan struct{})}

	dir := t.TempDir()
	config := testConfig()
	config.Clock = newManualClock()
	config.Output = output.NewNull()
	ctrl := NewController(waveform.NewLoader(dec, 10, dir), config)
	t.Cleanup(func() { ctrl.Close() })

	stale := ctrl.Load(context.Background(), "voice-note", make([]byte, testRate*2))
	<-dec.entered

	if err := <-ctrl.Load(context.Background(), "voice-note", make([]byte, 2*testRate*2)); err != nil {
		t.Fatalf("second load failed: %v", err)
	}

	ctrl.mu.Lock()
	live := ctrl.clip.Path
	ctrl.mu.Unlock()

	close(dec.gate)
	if err := <-stale; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected superseded load to report context.Canceled, got %v", err)
	}

	if _, err := os.Stat(live); err != nil {
		t.Errorf("live clip's staged payload is missing: %v", err)
	}
	if snap := ctrl.Snapshot(); snap.Duration != 2*time.Second {
		t.Errorf("expected the newer 2s clip to stay loaded, got %v", snap.Duration)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the live staged payload, found %d files", len(entries))
	}
}

func TestSampleIndex(t *testing.T) {
	tests := []struct {
		elapsed  time.Duration
		duration time.Duration
		n        int
		expected int
	}{
		{2600 * time.Millisecond, 5 * time.Second, 20, 10},
		{2500 * time.Millisecond, 5 * time.Second, 20, 10},
		{0, 5 * time.Second, 20, 0},
		{-time.Second, 5 * time.Second, 20, 0},
		{5 * time.Second, 5 * time.Second, 20, 20},
		{7 * time.Second, 5 * time.Second, 20, 21},
		// elapsed-ns times n exceeds int64 here
		{9 * time.Minute, 10 * time.Minute, 30000000, 27000000},
	}

	for _, tt := range tests {
		if got := sampleIndex(tt.elapsed, tt.duration, tt.n); got != tt.expected {
			t.Errorf("sampleIndex(%v, %v, %d) = %d, expected %d", tt.elapsed, tt.duration, tt.n, got, tt.expected)
		}
	}
}
