// ABOUTME: Codec detection from payload magic bytes
// ABOUTME: Auto decoder that sniffs the container and delegates to the codec decoder
package decode

import (
	"bytes"

	"github.com/harperreed/waveplay/pkg/audio"
)

// Detect returns the codec name for a payload, or "" when unknown
func Detect(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 4 && string(data[:4]) == "fLaC":
		return "flac"
	case len(data) >= 4 && string(data[:4]) == "OggS":
		// Only Opus is supported inside Ogg; Vorbis falls through as unknown
		if opusHeadIndex(data) >= 0 {
			return "opus"
		}
		return ""
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && (data[1]&0xE0) == 0xE0:
		return "mp3"
	default:
		return ""
	}
}

// opusHeadIndex locates the OpusHead identification header in the first Ogg page
func opusHeadIndex(data []byte) int {
	limit := len(data)
	if limit > 512 {
		limit = 512
	}
	return bytes.Index(data[:limit], []byte("OpusHead"))
}

// AutoDecoder picks the codec decoder from the payload's magic bytes
type AutoDecoder struct{}

// NewAuto creates a decoder that detects the codec per payload
func NewAuto() Decoder {
	return &AutoDecoder{}
}

// Decode sniffs the payload and decodes it with the matching codec decoder
func (d *AutoDecoder) Decode(data []byte) (*audio.Buffer, error) {
	if len(data) == 0 {
		return nil, newDecodeError("auto", ErrEmptyPayload)
	}

	codec := Detect(data)
	if codec == "" {
		return nil, newDecodeError("auto", ErrUnsupportedFormat)
	}

	dec, err := New(audio.Format{Codec: codec})
	if err != nil {
		return nil, newDecodeError(codec, err)
	}
	defer dec.Close()

	return dec.Decode(data)
}

// Close releases decoder resources
func (d *AutoDecoder) Close() error {
	return nil
}
