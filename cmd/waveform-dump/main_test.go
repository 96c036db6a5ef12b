// ABOUTME: Tests for the waveform dump tool
// ABOUTME: Covers bar scaling, output formatting and PCM export
package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harperreed/waveplay/internal/ui"
	"github.com/harperreed/waveplay/internal/waveform"
	"github.com/harperreed/waveplay/pkg/audio"
	"github.com/harperreed/waveplay/pkg/audio/decode"
)

func TestBarWidth(t *testing.T) {
	if got := barWidth(ui.MaxLevel, 40); got != 40 {
		t.Errorf("expected full bar of 40, got %d", got)
	}
	if got := barWidth(ui.MaxLevel*2, 40); got != 40 {
		t.Errorf("expected bar clamped to 40, got %d", got)
	}
	if got := barWidth(ui.MaxLevel, -5); got != 0 {
		t.Errorf("expected empty bar for negative width, got %d", got)
	}
	if got := barWidth(-1, 40); got != 0 {
		t.Errorf("expected empty bar for negative level, got %d", got)
	}
}

func TestPrintBars(t *testing.T) {
	samples := []waveform.Sample{
		{Magnitude: float32(math.Inf(-1))},
		{Magnitude: 0},
	}

	var out bytes.Buffer
	printBars(&out, samples, 10)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "-inf") {
		t.Errorf("expected silent sample to show -inf, got %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], strings.Repeat("█", 10)) {
		t.Errorf("expected full-scale sample to fill the bar, got %q", lines[1])
	}
}

func TestWritePCM(t *testing.T) {
	buf := &audio.Buffer{
		Samples: []float32{0, 0.5, -0.5, 0.25},
		Format:  audio.Format{Codec: "wav", SampleRate: 8000, Channels: 2, BitDepth: 16},
	}

	for _, bits := range []int{16, 24} {
		path := filepath.Join(t.TempDir(), "clip.pcm")
		if err := writePCM(path, buf, bits); err != nil {
			t.Fatalf("%d-bit: writePCM failed: %v", bits, err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read pcm: %v", err)
		}
		if len(data) != len(buf.Samples)*bits/8 {
			t.Errorf("%d-bit: expected %d bytes, got %d", bits, len(buf.Samples)*bits/8, len(data))
		}

		dec, _ := decode.NewPCM(audio.Format{Codec: "pcm", SampleRate: 8000, Channels: 2, BitDepth: bits})
		decoded, err := dec.Decode(data)
		if err != nil {
			t.Fatalf("%d-bit: decode failed: %v", bits, err)
		}
		if decoded.Samples[1] != 0.5 || decoded.Samples[2] != -0.5 {
			t.Errorf("%d-bit: unexpected samples %v", bits, decoded.Samples)
		}
	}

	if err := writePCM(filepath.Join(t.TempDir(), "bad.pcm"), buf, 12); err == nil {
		t.Error("expected error for unsupported bit depth")
	}
}
