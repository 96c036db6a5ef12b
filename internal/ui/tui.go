// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program and feeds it playback snapshots
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/waveplay/internal/playback"
)

// Run creates the TUI program and forwards snapshots to it until snaps is
// closed. The caller runs the returned program.
func Run(model Model, snaps <-chan playback.Snapshot) *tea.Program {
	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		for snap := range snaps {
			p.Send(SnapshotMsg(snap))
		}
	}()

	return p
}
