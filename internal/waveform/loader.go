// ABOUTME: Background clip loading: staging, decoding and waveform reduction
// ABOUTME: Delivers a decoded clip or decode error over a channel
package waveform

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/waveplay/pkg/audio"
	"github.com/harperreed/waveplay/pkg/audio/decode"
)

// DefaultSampleCount is the number of waveform bars per clip
const DefaultSampleCount = 20

// Clip is a decoded payload ready for playback
type Clip struct {
	ID       string
	Buffer   *audio.Buffer
	Samples  []Sample
	Duration time.Duration
	// Path is the staged copy of the payload, removed by Loader.Remove
	Path string
}

// Result is delivered once per load attempt
type Result struct {
	Clip *Clip
	Err  error
}

// Loader decodes payloads off the caller's goroutine
type Loader struct {
	decoder     decode.Decoder
	sampleCount int
	tempDir     string
}

// NewLoader creates a loader. A zero sampleCount uses DefaultSampleCount and
// an empty tempDir uses the OS temp directory.
func NewLoader(decoder decode.Decoder, sampleCount int, tempDir string) *Loader {
	if decoder == nil {
		decoder = decode.NewAuto()
	}
	if sampleCount <= 0 {
		sampleCount = DefaultSampleCount
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Loader{
		decoder:     decoder,
		sampleCount: sampleCount,
		tempDir:     tempDir,
	}
}

// SampleCount returns the number of samples each clip is reduced to
func (l *Loader) SampleCount() int {
	return l.sampleCount
}

// Load decodes the payload in the background. The channel receives exactly
// one Result and is then closed.
func (l *Loader) Load(ctx context.Context, id string, payload []byte) <-chan Result {
	results := make(chan Result, 1)

	go func() {
		defer close(results)
		clip, err := l.LoadSync(ctx, id, payload)
		results <- Result{Clip: clip, Err: err}
	}()

	return results
}

// LoadSync stages, decodes and reduces the payload on the calling goroutine
func (l *Loader) LoadSync(ctx context.Context, id string, payload []byte) (*Clip, error) {
	if id == "" {
		id = uuid.New().String()
	}

	path, err := l.stage(id, payload)
	if err != nil {
		return nil, err
	}

	clip, err := l.decode(ctx, id, path, payload)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("Failed to remove staged payload %s: %v", path, rmErr)
		}
		return nil, err
	}

	return clip, nil
}

// decode reduces the in-memory payload; path is the staged copy owned by the clip
func (l *Loader) decode(ctx context.Context, id, path string, payload []byte) (*Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf, err := l.decoder.Decode(payload)
	if err != nil {
		return nil, err
	}

	mono, err := buf.Channel(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read first channel: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clip := &Clip{
		ID:       id,
		Buffer:   buf,
		Samples:  Reduce(mono, l.sampleCount),
		Duration: buf.Duration(),
		Path:     path,
	}

	log.Printf("Loaded clip %s: %s %dHz %dch, %v, %d samples",
		id, buf.Format.Codec, buf.Format.SampleRate, buf.Format.Channels, clip.Duration, len(clip.Samples))

	return clip, nil
}

// stage writes the payload to a file of its own, <tempDir>/<id>-<random>.<ext>,
// so loads sharing an id never touch each other's copy
func (l *Loader) stage(id string, payload []byte) (string, error) {
	name := sanitizeID(id)
	if name == "" {
		return "", fmt.Errorf("invalid clip id: %q", id)
	}

	ext := decode.Detect(payload)
	if ext == "" {
		ext = "bin"
	}

	if err := os.MkdirAll(l.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	f, err := os.CreateTemp(l.tempDir, name+"-*."+ext)
	if err != nil {
		return "", fmt.Errorf("failed to stage payload: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to stage payload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to stage payload: %w", err)
	}
	return path, nil
}

// Remove deletes the clip's staged payload. Missing files are not an error.
func (l *Loader) Remove(clip *Clip) error {
	if clip == nil || clip.Path == "" {
		return nil
	}

	if err := os.Remove(clip.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged payload: %w", err)
	}
	clip.Path = ""
	return nil
}

// sanitizeID keeps an id usable as a single file name component
func sanitizeID(id string) string {
	name := filepath.Base(strings.TrimSpace(id))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
