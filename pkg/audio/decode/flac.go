// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC audio frame by frame to float samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/waveplay/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC(format audio.Format) (Decoder, error) {
	if format.Codec != "flac" {
		return nil, fmt.Errorf("invalid codec for FLAC decoder: %s", format.Codec)
	}
	return &FLACDecoder{}, nil
}

// Decode converts FLAC bytes to a PCM buffer
func (d *FLACDecoder) Decode(data []byte) (*audio.Buffer, error) {
	if len(data) == 0 {
		return nil, newDecodeError("flac", ErrEmptyPayload)
	}

	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, newDecodeError("flac", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bitDepth := int(stream.Info.BitsPerSample)
	if channels == 0 {
		return nil, newDecodeError("flac", errors.New("stream info reports zero channels"))
	}

	// NSamples is 0 when unknown; ignore implausible values from corrupt headers
	capacity := 0
	if n := stream.Info.NSamples; n > 0 && n < 1<<26 {
		capacity = int(n) * channels
	}
	samples := make([]float32, 0, capacity)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newDecodeError("flac", err)
		}

		// Interleave the subframes
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, audio.SampleFromSigned(frame.Subframes[ch].Samples[i], bitDepth))
			}
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "flac",
			SampleRate: int(stream.Info.SampleRate),
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	}, nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return nil
}
