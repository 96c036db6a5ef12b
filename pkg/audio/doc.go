// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the fundamental audio types shared by the decoders,
// the waveform reducer and the output backends.
//
//   - Format: describes a decoded stream (codec, sample rate, channels, bit depth)
//   - Buffer: a fully decoded clip as interleaved float PCM in [-1, 1]
//
// Integer samples from the codecs are converted to float with
// SampleFromInt16, SampleFromInt, SampleFromSigned and SampleFrom24Bit.
//
// Example:
//
//	buf := &audio.Buffer{
//	    Samples: pcm,
//	    Format:  audio.Format{Codec: "wav", SampleRate: 44100, Channels: 1, BitDepth: 16},
//	}
//	left, err := buf.Channel(0)
package audio
