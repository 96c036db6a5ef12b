// ABOUTME: Remote feed message type definitions
// ABOUTME: JSON envelopes for hello, state, command and error messages
package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/waveplay/internal/playback"
	"github.com/harperreed/waveplay/internal/waveform"
)

// ProtocolVersion is the version of the remote feed protocol
const ProtocolVersion = 1

// Message types
const (
	TypeHello   = "hello"
	TypeState   = "state"
	TypeCommand = "command"
	TypeError   = "error"
)

// Commands accepted from clients
const (
	CommandPlay   = "play"
	CommandPause  = "pause"
	CommandToggle = "toggle"
	CommandStop   = "stop"
	CommandSeek   = "seek"
)

// Message is the top-level wrapper for all feed messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hello is sent by the server when a client connects
type Hello struct {
	ClientID   string `json:"client_id"`
	ServerName string `json:"server_name"`
	Version    int    `json:"version"`
	Software   string `json:"software"`
}

// State mirrors a playback snapshot on the wire
type State struct {
	ClipID       string            `json:"clip_id"`
	State        string            `json:"state"`
	Playing      bool              `json:"playing"`
	Loading      bool              `json:"loading"`
	ElapsedMs    int64             `json:"elapsed_ms"`
	DurationMs   int64             `json:"duration_ms"`
	ElapsedText  string            `json:"elapsed_text"`
	DisplayText  string            `json:"display_text"`
	CurrentIndex int               `json:"current_index"`
	Samples      []waveform.Sample `json:"samples"`
}

// Command is sent by clients to control playback
type Command struct {
	Command    string `json:"command"`
	PositionMs int64  `json:"position_ms,omitempty"`
}

// ErrorPayload reports a rejected command
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewState converts a snapshot to its wire form
func NewState(snap playback.Snapshot) State {
	samples := snap.Samples
	if samples == nil {
		samples = []waveform.Sample{}
	}

	return State{
		ClipID:       snap.ClipID,
		State:        snap.State.String(),
		Playing:      snap.Playing,
		Loading:      snap.Loading,
		ElapsedMs:    snap.Elapsed.Milliseconds(),
		DurationMs:   snap.Duration.Milliseconds(),
		ElapsedText:  snap.ElapsedText,
		DisplayText:  snap.DisplayText,
		CurrentIndex: snap.CurrentIndex,
		Samples:      samples,
	}
}

// Position returns the seek target of a command
func (c Command) Position() time.Duration {
	return time.Duration(c.PositionMs) * time.Millisecond
}

// decodePayload re-marshals a generic payload into a typed struct
func decodePayload(payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
