// ABOUTME: Reduces decoded PCM to a fixed number of waveform magnitudes
// ABOUTME: Each sample is the mean power of one contiguous chunk, in decibels
package waveform

import "math"

// Reduce partitions buffer into sampleCount contiguous chunks of
// floor(len(buffer)/sampleCount) values and returns one unplayed Sample per
// chunk. Trailing values that do not fill a chunk are dropped. When
// sampleCount exceeds len(buffer) every value becomes its own chunk.
func Reduce(buffer []float32, sampleCount int) []Sample {
	if len(buffer) == 0 || sampleCount <= 0 {
		return []Sample{}
	}

	chunkSize := len(buffer) / sampleCount
	count := sampleCount
	if chunkSize == 0 {
		chunkSize = 1
		count = len(buffer)
	}

	samples := make([]Sample, count)
	for i := 0; i < count; i++ {
		chunk := buffer[i*chunkSize : (i+1)*chunkSize]
		samples[i] = Sample{Magnitude: magnitude(chunk)}
	}
	return samples
}

// magnitude returns the mean power of a chunk in decibels
func magnitude(chunk []float32) float32 {
	var sum float64
	for _, v := range chunk {
		sum += float64(v) * float64(v)
	}
	power := sum / float64(len(chunk))
	// log10(0) is -Inf, which the renderer clamps
	return float32(10 * math.Log10(power))
}
