// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Ogg Opus voice notes to float samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/waveplay/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// Opus always decodes at 48kHz regardless of the input rate hint
const opusSampleRate = 48000

// maxOpusFrame is the largest Opus frame (120ms at 48kHz) per channel
const maxOpusFrame = 5760

// OpusDecoder decodes Ogg Opus audio
type OpusDecoder struct{}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}
	return &OpusDecoder{}, nil
}

// Decode converts Ogg Opus bytes to a PCM buffer
func (d *OpusDecoder) Decode(data []byte) (*audio.Buffer, error) {
	if len(data) == 0 {
		return nil, newDecodeError("opus", ErrEmptyPayload)
	}

	channels, err := opusChannels(data)
	if err != nil {
		return nil, newDecodeError("opus", err)
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, newDecodeError("opus", err)
	}
	defer stream.Close()

	var samples []float32
	pcm := make([]float32, maxOpusFrame*channels)
	for {
		n, err := stream.ReadFloat32(pcm)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newDecodeError("opus", err)
		}
		if n == 0 {
			break
		}
		samples = append(samples, pcm[:n*channels]...)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "opus",
			SampleRate: opusSampleRate,
			Channels:   channels,
			BitDepth:   16,
		},
	}, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

// opusChannels reads the output channel count from the OpusHead packet
func opusChannels(data []byte) (int, error) {
	idx := opusHeadIndex(data)
	if idx < 0 {
		return 0, errors.New("missing OpusHead header")
	}

	// "OpusHead" (8 bytes), version (1 byte), channel count (1 byte)
	if idx+9 >= len(data) {
		return 0, errors.New("truncated OpusHead header")
	}

	channels := int(data[idx+9])
	if channels < 1 || channels > 2 {
		return 0, fmt.Errorf("%w: %d opus channels", ErrUnsupportedFormat, channels)
	}
	return channels, nil
}
