// ABOUTME: Playback state machine states and the published snapshot
// ABOUTME: Snapshots are immutable copies handed to renderers and remote clients
package playback

import (
	"time"

	"github.com/harperreed/waveplay/internal/waveform"
)

// State is the controller's playback state
type State int

const (
	Idle State = iota
	Playing
	Paused
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Snapshot is the observable state of a controller at one instant
type Snapshot struct {
	ClipID   string
	State    State
	Playing  bool
	Loading  bool
	Elapsed  time.Duration
	Duration time.Duration
	// ElapsedText is Elapsed as mm:ss
	ElapsedText string
	// DisplayText is the time a player shows: the clip length while idle or
	// finished, the elapsed time otherwise
	DisplayText  string
	Samples      []waveform.Sample
	CurrentIndex int
}
