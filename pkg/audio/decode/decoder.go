// ABOUTME: Decoder interface definition
// ABOUTME: Common interface, error type and codec factory for all audio decoders
package decode

import (
	"errors"
	"fmt"

	"github.com/harperreed/waveplay/pkg/audio"
)

var (
	// ErrUnsupportedFormat is wrapped when a payload uses a codec or layout we cannot decode
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrEmptyPayload is wrapped when the payload has no bytes at all
	ErrEmptyPayload = errors.New("empty audio payload")
)

// Decoder decodes a complete audio payload to PCM
type Decoder interface {
	// Decode converts encoded audio data to a PCM buffer
	Decode(data []byte) (*audio.Buffer, error)

	// Close releases decoder resources
	Close() error
}

// DecodeError reports a payload that could not be parsed as audio
type DecodeError struct {
	Codec string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode failed: %v", e.Codec, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(codec string, err error) *DecodeError {
	return &DecodeError{Codec: codec, Err: err}
}

// New creates a decoder for the given format's codec
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "wav":
		return NewWAV(format)
	case "mp3":
		return NewMP3(format)
	case "flac":
		return NewFLAC(format)
	case "opus":
		return NewOpus(format)
	case "pcm":
		return NewPCM(format)
	case "", "auto":
		return NewAuto(), nil
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
