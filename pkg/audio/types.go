// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, decoded clip buffers and sample conversions
package audio

import (
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a decoded audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Buffer holds a fully decoded clip as interleaved float PCM in [-1, 1]
type Buffer struct {
	Samples []float32
	Format  Format
}

// Frames returns the number of sample frames (one sample per channel)
func (b *Buffer) Frames() int {
	if b == nil || b.Format.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

// Duration returns the playback length of the buffer
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.Format.SampleRate <= 0 {
		return 0
	}
	frames := b.Frames()
	return time.Duration(frames) * time.Second / time.Duration(b.Format.SampleRate)
}

// Channel returns a copy of one de-interleaved channel
func (b *Buffer) Channel(ch int) ([]float32, error) {
	if b == nil {
		return nil, fmt.Errorf("nil buffer")
	}
	if ch < 0 || ch >= b.Format.Channels {
		return nil, fmt.Errorf("channel %d out of range (channels: %d)", ch, b.Format.Channels)
	}

	frames := b.Frames()
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		out[i] = b.Samples[i*b.Format.Channels+ch]
	}
	return out, nil
}

// SampleFromInt16 converts a signed 16-bit sample to float
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleToInt16 converts a float sample to signed 16-bit, clipping out-of-range values
func SampleToInt16(sample float32) int16 {
	if sample >= 1 {
		return 32767
	}
	if sample <= -1 {
		return -32768
	}
	return int16(sample * 32768.0)
}

// SampleFromInt converts an integer sample of the given bit depth to float
func SampleFromInt(sample int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return float32(sample-128) / 128.0
	case 16:
		return float32(sample) / 32768.0
	case 24:
		return float32(sample) / 8388608.0
	case 32:
		return float32(float64(sample) / 2147483648.0)
	default:
		return float32(sample) / 32768.0
	}
}

// SampleFromSigned converts a signed integer sample of any bit depth to float
func SampleFromSigned(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}
	return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}

// SampleFrom24Bit converts 24-bit packed bytes (little-endian) to float
func SampleFrom24Bit(b [3]byte) float32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return float32(val) / 8388608.0
}

// SampleTo24Bit converts a float sample to 24-bit packed bytes (little-endian), clipping out-of-range values
func SampleTo24Bit(sample float32) [3]byte {
	var val int32
	switch {
	case sample >= 1:
		val = Max24Bit
	case sample <= -1:
		val = Min24Bit
	default:
		val = int32(sample * 8388608.0)
	}
	return [3]byte{byte(val), byte(val >> 8), byte(val >> 16)}
}
