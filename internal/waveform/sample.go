// ABOUTME: Waveform sample type and its JSON form
// ABOUTME: Non-finite magnitudes travel as null since JSON has no -Inf
package waveform

import (
	"encoding/json"
	"math"
)

// Sample is one bar of the waveform display
type Sample struct {
	// Magnitude is 10*log10(mean power) of the chunk. Silent chunks are -Inf.
	Magnitude float32
	Played    bool
}

// Silent reports whether the sample has no finite level
func (s Sample) Silent() bool {
	m := float64(s.Magnitude)
	return math.IsInf(m, 0) || math.IsNaN(m)
}

type sampleJSON struct {
	Magnitude *float32 `json:"magnitude"`
	Played    bool     `json:"played"`
}

// MarshalJSON encodes silent magnitudes as null
func (s Sample) MarshalJSON() ([]byte, error) {
	out := sampleJSON{Played: s.Played}
	if !s.Silent() {
		m := s.Magnitude
		out.Magnitude = &m
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null magnitude as silence
func (s *Sample) UnmarshalJSON(data []byte) error {
	var in sampleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	s.Played = in.Played
	if in.Magnitude == nil {
		s.Magnitude = float32(math.Inf(-1))
	} else {
		s.Magnitude = *in.Magnitude
	}
	return nil
}
