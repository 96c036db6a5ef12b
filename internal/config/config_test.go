// ABOUTME: Tests for YAML configuration parsing
// ABOUTME: Verifies defaults, file overlays and validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Playback.SampleCount != 20 {
		t.Errorf("expected 20 samples, got %d", cfg.Playback.SampleCount)
	}
	if cfg.Playback.FinishDelay() != 600*time.Millisecond {
		t.Errorf("expected 600ms finish delay, got %v", cfg.Playback.FinishDelay())
	}
	if cfg.Playback.TickEpsilon() != 30*time.Millisecond {
		t.Errorf("expected 30ms tick epsilon, got %v", cfg.Playback.TickEpsilon())
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
playback:
  sample_count: 40
  finish_delay_ms: 0
  strict: true

output:
  backend: "null"

remote:
  enabled: true
  listen: "127.0.0.1:9000"
  advertise: true
`

	cfg, err := Load(writeConfig(t, yamlContent))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Playback.SampleCount != 40 {
		t.Errorf("expected sample count 40, got %d", cfg.Playback.SampleCount)
	}
	if cfg.Playback.FinishDelay() != 0 {
		t.Errorf("expected finish delay 0, got %v", cfg.Playback.FinishDelay())
	}
	if !cfg.Playback.Strict {
		t.Error("expected strict mode")
	}
	if cfg.Output.Backend != "null" {
		t.Errorf("expected backend null, got %s", cfg.Output.Backend)
	}
	if cfg.Remote.Listen != "127.0.0.1:9000" || !cfg.Remote.Advertise {
		t.Errorf("unexpected remote config: %+v", cfg.Remote)
	}

	// Keys absent from the file keep their defaults
	if cfg.Playback.TickEpsilonMs != 30 {
		t.Errorf("expected default tick epsilon 30, got %d", cfg.Playback.TickEpsilonMs)
	}
	if cfg.Output.SampleRate != 48000 {
		t.Errorf("expected default sample rate 48000, got %d", cfg.Output.SampleRate)
	}
	if cfg.Remote.Name != "waveplay" {
		t.Errorf("expected default remote name, got %s", cfg.Remote.Name)
	}
}

func TestLoadInvalid(t *testing.T) {
	yamlContent := `
playback:
  sample_count: 0
output:
  backend: alsa
  volume: 140
`

	_, err := Load(writeConfig(t, yamlContent))
	if err == nil {
		t.Fatal("expected validation error")
	}

	for _, want := range []string{"sample_count", "output.backend", "output.volume"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "playback: [not, a, map"))
	if err == nil || !strings.Contains(err.Error(), "parse yaml") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestValidateSampleCountUpperBound(t *testing.T) {
	cfg := Default()
	cfg.Playback.SampleCount = MaxSampleCount + 1
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "sample_count") {
		t.Errorf("expected sample_count error, got %v", err)
	}

	cfg.Playback.SampleCount = MaxSampleCount
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected max sample count to be valid, got %v", err)
	}
}
