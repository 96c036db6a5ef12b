// ABOUTME: Display formatting for playback times
// ABOUTME: Renders durations as mm:ss with seconds rounded down
package playback

import (
	"fmt"
	"time"
)

// FormatTime renders d as mm:ss. Minutes keep counting past 59.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
