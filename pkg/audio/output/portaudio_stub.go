//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
	"time"

	"github.com/harperreed/waveplay/pkg/audio"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(sampleRate int) Output {
	return &PortAudio{}
}

// Load prepares a clip for playback
func (p *PortAudio) Load(buf *audio.Buffer) error {
	return errPortAudioDisabled
}

// Play starts or resumes playback
func (p *PortAudio) Play() error {
	return errPortAudioDisabled
}

// Pause halts playback
func (p *PortAudio) Pause() error {
	return errPortAudioDisabled
}

// Seek moves the playback position
func (p *PortAudio) Seek(offset time.Duration) error {
	return errPortAudioDisabled
}

// Unload releases the clip
func (p *PortAudio) Unload() error {
	return nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
