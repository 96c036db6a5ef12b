// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for clip playback backends plus shared sample preparation
package output

import (
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/waveplay/pkg/audio"
	"github.com/harperreed/waveplay/pkg/audio/resample"
)

// DefaultSampleRate is the device rate used when none is configured
const DefaultSampleRate = 48000

// deviceChannels is the channel count every backend opens the device with
const deviceChannels = 2

// ErrNotLoaded is returned by transport calls made before a clip is loaded
var ErrNotLoaded = errors.New("no clip loaded")

// Output plays one decoded clip at a time
type Output interface {
	// Load prepares a clip for playback, replacing any previous clip
	Load(buf *audio.Buffer) error

	// Play starts or resumes playback from the current position
	Play() error

	// Pause halts playback, keeping the current position
	Pause() error

	// Seek moves the playback position relative to the start of the clip
	Seek(offset time.Duration) error

	// Unload stops playback and releases the clip
	Unload() error

	// Close releases output resources
	Close() error
}

// New creates an output for the named backend
func New(backend string, sampleRate int) (Output, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	switch backend {
	case "oto", "":
		return NewOto(sampleRate), nil
	case "portaudio":
		return NewPortAudio(sampleRate), nil
	case "null":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %s", backend)
	}
}

// prepare converts a clip to interleaved stereo at the device rate
func prepare(buf *audio.Buffer, sampleRate int) ([]float32, error) {
	if buf == nil || buf.Format.Channels < 1 {
		return nil, fmt.Errorf("invalid clip buffer")
	}

	converted := resample.Buffer(buf, sampleRate)
	channels := converted.Format.Channels
	frames := converted.Frames()

	out := make([]float32, frames*deviceChannels)
	for i := 0; i < frames; i++ {
		left := converted.Samples[i*channels]
		right := left
		if channels > 1 {
			right = converted.Samples[i*channels+1]
		}
		out[i*deviceChannels] = left
		out[i*deviceChannels+1] = right
	}
	return out, nil
}

// frameOffset converts a time offset to a frame index clamped to the clip
func frameOffset(offset time.Duration, sampleRate, frames int) int {
	if offset <= 0 {
		return 0
	}
	frame := int(offset * time.Duration(sampleRate) / time.Second)
	if frame > frames {
		return frames
	}
	return frame
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return float64(volume) / 100.0
}
