// ABOUTME: PCM audio decoder
// ABOUTME: Decodes headerless 16-bit and 24-bit little-endian PCM to float samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/waveplay/pkg/audio"
)

// PCMDecoder decodes raw PCM audio
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	if format.Channels < 1 || format.SampleRate < 1 {
		return nil, fmt.Errorf("raw PCM needs channels and sample rate (got %d channels, %dHz)",
			format.Channels, format.SampleRate)
	}

	return &PCMDecoder{
		format: format,
	}, nil
}

// Decode converts PCM bytes to a PCM buffer
func (d *PCMDecoder) Decode(data []byte) (*audio.Buffer, error) {
	bytesPerSample := d.format.BitDepth / 8
	frameSize := bytesPerSample * d.format.Channels
	if len(data)%frameSize != 0 {
		return nil, newDecodeError("pcm", fmt.Errorf("payload of %d bytes is not a whole number of %d-byte frames", len(data), frameSize))
	}

	numSamples := len(data) / bytesPerSample
	samples := make([]float32, numSamples)
	if d.format.BitDepth == 24 {
		// 24-bit PCM: 3 bytes per sample
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFrom24Bit(b)
		}
	} else {
		// 16-bit PCM: 2 bytes per sample
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	}

	return &audio.Buffer{
		Samples: samples,
		Format:  d.format,
	}, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
