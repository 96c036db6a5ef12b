// ABOUTME: Audio output package for playing decoded clips
// ABOUTME: Provides the Output interface with oto, PortAudio and silent backends
// Package output provides audio playback interfaces.
//
// Oto is the default backend. PortAudio is available when built with
// -tags portaudio. Null plays nothing and is used for headless runs.
//
// Example:
//
//	out, err := output.New("oto", 48000)
//	err = out.Load(buf)
//	err = out.Play()
package output
