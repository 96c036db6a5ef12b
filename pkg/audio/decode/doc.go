// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides Decoder interface and implementations for WAV, MP3, FLAC, Opus, PCM
// Package decode turns a complete audio payload into a PCM audio.Buffer.
//
// Supports: WAV (integer PCM), MP3, FLAC, Ogg Opus and raw PCM (16-bit and 24-bit).
//
// All decoders implement the Decoder interface and output interleaved float
// samples in [-1, 1]. Malformed or unsupported payloads are reported as a
// *DecodeError so callers can tell them apart from I/O failures.
//
// Example:
//
//	decoder := decode.NewAuto()
//	buf, err := decoder.Decode(payload)
//	var decErr *decode.DecodeError
//	if errors.As(err, &decErr) {
//	    log.Printf("bad %s payload: %v", decErr.Codec, decErr.Err)
//	}
package decode
