// ABOUTME: Waveform bar rendering for the terminal
// ABOUTME: Normalizes decibel levels to bar heights and draws played/unplayed columns
package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/waveplay/internal/waveform"
)

// MaxLevel is NormalizeLevel of a full-scale (0 dB) sample
const MaxLevel = 70.0 / 2 * 40 / 35

var (
	playedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	unplayedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// NormalizeLevel maps a magnitude in dB to a display level. Quiet and
// silent samples bottom out at a small visible floor.
func NormalizeLevel(magnitude float32) float64 {
	level := float64(magnitude)
	if math.IsNaN(level) || math.IsInf(level, -1) {
		level = -70
	}
	return math.Max(0.2, level+70) / 2 * (40.0 / 35.0)
}

// barHeights converts samples to bar heights between 1 and rows
func barHeights(samples []waveform.Sample, rows int) []int {
	heights := make([]int, len(samples))
	for i, s := range samples {
		h := int(math.Round(NormalizeLevel(s.Magnitude) / MaxLevel * float64(rows)))
		if h < 1 {
			h = 1
		}
		if h > rows {
			h = rows
		}
		heights[i] = h
	}
	return heights
}

// renderWaveform draws one column per sample, bottom aligned
func renderWaveform(samples []waveform.Sample, rows int) string {
	if len(samples) == 0 {
		return strings.Repeat("\n", rows-1)
	}

	heights := barHeights(samples, rows)

	var b strings.Builder
	for row := rows; row >= 1; row-- {
		for i, s := range samples {
			if i > 0 {
				b.WriteString(" ")
			}
			cell := " "
			if heights[i] >= row {
				cell = "█"
			}
			if s.Played {
				b.WriteString(playedStyle.Render(cell))
			} else {
				b.WriteString(unplayedStyle.Render(cell))
			}
		}
		if row > 1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
