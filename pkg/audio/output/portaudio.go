//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform clip playback using a PortAudio callback stream
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/harperreed/waveplay/pkg/audio"
)

// PortAudio output implementation
type PortAudio struct {
	mu         sync.Mutex
	stream     *portaudio.Stream
	sampleRate int
	samples    []float32
	position   int // in samples, always frame aligned
	playing    bool
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(sampleRate int) Output {
	return &PortAudio{sampleRate: sampleRate}
}

// open initializes PortAudio and starts the callback stream
func (p *PortAudio) open() error {
	if p.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, deviceChannels, float64(p.sampleRate), 0, p.fill)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	log.Printf("PortAudio output initialized: %dHz, %d channels", p.sampleRate, deviceChannels)
	return nil
}

// fill is the stream callback; it writes silence while paused or past the end
func (p *PortAudio) fill(out []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	if p.playing {
		n = copy(out, p.samples[p.position:])
		p.position += n
		if p.position >= len(p.samples) {
			p.playing = false
		}
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
}

// Load prepares a clip for playback
func (p *PortAudio) Load(buf *audio.Buffer) error {
	samples, err := prepare(buf, p.sampleRate)
	if err != nil {
		return err
	}

	if err := p.open(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples = samples
	p.position = 0
	p.playing = false
	return nil
}

// Play starts or resumes playback
func (p *PortAudio) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.samples == nil {
		return ErrNotLoaded
	}
	p.playing = true
	return nil
}

// Pause halts playback
func (p *PortAudio) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.samples == nil {
		return ErrNotLoaded
	}
	p.playing = false
	return nil
}

// Seek moves the playback position
func (p *PortAudio) Seek(offset time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.samples == nil {
		return ErrNotLoaded
	}
	p.position = frameOffset(offset, p.sampleRate, len(p.samples)/deviceChannels) * deviceChannels
	return nil
}

// Unload stops playback and releases the clip
func (p *PortAudio) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples = nil
	p.position = 0
	p.playing = false
	return nil
}

// Close releases resources
func (p *PortAudio) Close() error {
	p.Unload()

	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	return portaudio.Terminate()
}
