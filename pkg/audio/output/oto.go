// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays a loaded clip through an oto player with seek and volume control
package output

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/waveplay/pkg/audio"
	"github.com/harperreed/waveplay/pkg/audio/encode"
)

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	encoder    encode.Encoder
	otoCtx     *oto.Context
	player     *oto.Player
	sampleRate int
	frames     int
	volume     int
	muted      bool
}

// NewOto creates a new Oto output. The device is opened on the first Load.
func NewOto(sampleRate int) Output {
	// 16-bit PCM is always a supported encoder format
	encoder, _ := encode.NewPCM(audio.Format{
		Codec:      "pcm",
		SampleRate: sampleRate,
		Channels:   deviceChannels,
		BitDepth:   16,
	})

	return &Oto{
		encoder:    encoder,
		sampleRate: sampleRate,
		volume:     100,
	}
}

// open initializes the oto context once; oto allows one context per process
func (o *Oto) open() error {
	if o.otoCtx != nil {
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   o.sampleRate,
		ChannelCount: deviceChannels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	log.Printf("Audio output initialized: %dHz, %d channels", o.sampleRate, deviceChannels)
	return nil
}

// Load prepares a clip for playback
func (o *Oto) Load(buf *audio.Buffer) error {
	samples, err := prepare(buf, o.sampleRate)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.open(); err != nil {
		return err
	}

	o.closePlayer()
	pcm, err := o.encoder.Encode(samples)
	if err != nil {
		return fmt.Errorf("failed to encode clip: %w", err)
	}
	o.player = o.otoCtx.NewPlayer(bytes.NewReader(pcm))
	o.player.SetVolume(getVolumeMultiplier(o.volume, o.muted))
	o.frames = len(samples) / deviceChannels
	return nil
}

// Play starts or resumes playback
func (o *Oto) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotLoaded
	}
	o.player.Play()
	return nil
}

// Pause halts playback
func (o *Oto) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotLoaded
	}
	o.player.Pause()
	return nil
}

// Seek moves the playback position
func (o *Oto) Seek(offset time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotLoaded
	}

	frame := frameOffset(offset, o.sampleRate, o.frames)
	// Byte offsets must stay aligned to whole 16-bit stereo frames
	if _, err := o.player.Seek(int64(frame*deviceChannels*2), io.SeekStart); err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}
	return nil
}

// Unload stops playback and releases the clip
func (o *Oto) Unload() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closePlayer()
	return nil
}

func (o *Oto) closePlayer() {
	if o.player == nil {
		return
	}
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		log.Printf("Failed to close oto player: %v", err)
	}
	o.player = nil
	o.frames = 0
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closePlayer()
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.volume = volume
	if o.player != nil {
		o.player.SetVolume(getVolumeMultiplier(o.volume, o.muted))
	}
	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.muted = muted
	if o.player != nil {
		o.player.SetVolume(getVolumeMultiplier(o.volume, o.muted))
	}
	log.Printf("Muted: %v", muted)
}

// GetVolume returns current volume
func (o *Oto) GetVolume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}
