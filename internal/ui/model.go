// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state, key handling and the waveform view
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/waveplay/internal/playback"
)

// seekStep is how far the arrow keys move the position
const seekStep = 5 * time.Second

// waveformRows is the height of the waveform in terminal rows
const waveformRows = 8

// Controls is the subset of the playback controller the TUI drives
type Controls interface {
	Toggle() error
	Stop() error
	Seek(offset time.Duration) error
}

// Model represents the TUI state
type Model struct {
	controls Controls
	title    string

	snapshot playback.Snapshot

	// Remote feed
	remoteAddr string
	clients    int

	lastErr string

	quitChan chan struct{}

	width  int
	height int
}

// SnapshotMsg carries a new playback snapshot
type SnapshotMsg playback.Snapshot

// StatusMsg updates TUI status lines
type StatusMsg struct {
	RemoteAddr string
	Clients    *int
	Error      string
}

// NewModel creates a new TUI model. controls may be nil for a read-only view.
func NewModel(controls Controls, title string) Model {
	return Model{
		controls: controls,
		title:    title,
		quitChan: make(chan struct{}, 1),
	}
}

// Quit is signalled when the user quits
func (m Model) Quit() <-chan struct{} {
	return m.quitChan
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case SnapshotMsg:
		m.snapshot = playback.Snapshot(msg)
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	timeStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	var b strings.Builder

	title := m.title
	if title == "" {
		title = "waveplay"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	switch {
	case m.snapshot.Loading:
		b.WriteString(valueStyle.Render("Loading..."))
		b.WriteString("\n")
	case m.snapshot.ClipID == "":
		b.WriteString(valueStyle.Render("No clip loaded"))
		b.WriteString("\n")
	default:
		b.WriteString(renderWaveform(m.snapshot.Samples, waveformRows))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("%s %s  %s\n",
			stateIcon(m.snapshot.State),
			timeStyle.Render(m.snapshot.DisplayText),
			valueStyle.Render(m.snapshot.State.String())))
	}

	if m.remoteAddr != "" {
		b.WriteString(valueStyle.Render(fmt.Sprintf("Remote: %s (%d clients)", m.remoteAddr, m.clients)))
		b.WriteString("\n")
	}

	if m.lastErr != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("Error: " + m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("space:Play/Pause  s:Stop  ←/→:Seek  q:Quit"))
	b.WriteString("\n")

	return b.String()
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		select {
		case m.quitChan <- struct{}{}:
		default:
		}
		return m, tea.Quit
	}

	if m.controls == nil {
		return m, nil
	}

	var err error
	switch msg.String() {
	case " ":
		err = m.controls.Toggle()
	case "s":
		err = m.controls.Stop()
	case "left":
		err = m.controls.Seek(m.snapshot.Elapsed - seekStep)
	case "right":
		err = m.controls.Seek(m.snapshot.Elapsed + seekStep)
	}

	if err != nil {
		m.lastErr = err.Error()
	} else {
		m.lastErr = ""
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.RemoteAddr != "" {
		m.remoteAddr = msg.RemoteAddr
	}
	if msg.Clients != nil {
		m.clients = *msg.Clients
	}
	if msg.Error != "" {
		m.lastErr = msg.Error
	}
}

func stateIcon(state playback.State) string {
	switch state {
	case playback.Playing:
		return "▶"
	case playback.Paused:
		return "⏸"
	case playback.Finished:
		return "✓"
	default:
		return "■"
	}
}
