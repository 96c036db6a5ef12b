// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE integer PCM payloads to float samples using go-audio/wav
package decode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/harperreed/waveplay/pkg/audio"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag; float and compressed WAVs are rejected
const wavFormatPCM = 1

// WAVDecoder decodes WAV audio
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV(format audio.Format) (Decoder, error) {
	if format.Codec != "wav" {
		return nil, fmt.Errorf("invalid codec for WAV decoder: %s", format.Codec)
	}
	return &WAVDecoder{}, nil
}

// Decode converts WAV bytes to a PCM buffer
func (d *WAVDecoder) Decode(data []byte) (*audio.Buffer, error) {
	if len(data) == 0 {
		return nil, newDecodeError("wav", ErrEmptyPayload)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, newDecodeError("wav", errors.New("invalid WAV file"))
	}

	if dec.WavAudioFormat != wavFormatPCM {
		return nil, newDecodeError("wav", fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat))
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 {
		return nil, newDecodeError("wav", errors.New("missing channel count or sample rate"))
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, newDecodeError("wav", err)
	}

	bitDepth := int(dec.BitDepth)
	samples := make([]float32, len(pcm.Data))
	for i, s := range pcm.Data {
		samples[i] = audio.SampleFromInt(s, bitDepth)
	}

	return &audio.Buffer{
		Samples: samples,
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
			BitDepth:   bitDepth,
		},
	}, nil
}

// Close releases decoder resources
func (d *WAVDecoder) Close() error {
	return nil
}
