// ABOUTME: Audio encoder package for writing float samples as PCM
// ABOUTME: Provides the Encoder interface and the 16/24-bit PCM implementation
// Package encode converts float samples to raw PCM bytes.
//
// Supports: PCM (16-bit and 24-bit, little-endian)
//
// Output backends use it to feed devices that take integer PCM, and tests
// use it to build decoder fixtures.
//
// Example:
//
//	encoder, err := encode.NewPCM(format)
//	data, err := encoder.Encode(buf.Samples)
package encode
