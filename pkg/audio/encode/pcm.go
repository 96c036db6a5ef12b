// ABOUTME: PCM audio encoder
// ABOUTME: Encodes float samples to 16-bit or 24-bit little-endian PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/waveplay/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &PCMEncoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Encode converts float samples to PCM bytes, clipping values outside [-1, 1]
func (e *PCMEncoder) Encode(samples []float32) ([]byte, error) {
	if e.bitDepth == 24 {
		return int24LE(samples), nil
	}
	return int16LE(samples), nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}

// int16LE encodes samples as signed 16-bit little-endian PCM
func int16LE(samples []float32) []byte {
	output := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(sample)))
	}
	return output
}

// int24LE encodes samples as packed signed 24-bit little-endian PCM
func int24LE(samples []float32) []byte {
	output := make([]byte, len(samples)*3)
	for i, sample := range samples {
		b := audio.SampleTo24Bit(sample)
		copy(output[i*3:], b[:])
	}
	return output
}
