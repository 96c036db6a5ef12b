// ABOUTME: Prints the reduced waveform of an audio clip
// ABOUTME: Decodes a file or URL and shows per-bar magnitudes and normalized levels
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/harperreed/waveplay/internal/fetch"
	"github.com/harperreed/waveplay/internal/playback"
	"github.com/harperreed/waveplay/internal/ui"
	"github.com/harperreed/waveplay/internal/waveform"
	"github.com/harperreed/waveplay/pkg/audio"
	"github.com/harperreed/waveplay/pkg/audio/encode"
)

var (
	samples = flag.Int("samples", waveform.DefaultSampleCount, "Number of waveform samples")
	asJSON  = flag.Bool("json", false, "Print samples as JSON")
	width   = flag.Int("width", 40, "Bar width in characters")
	pcmOut  = flag.String("pcm", "", "Also write the decoded clip as raw little-endian PCM to this file")
	pcmBits = flag.Int("bits", 16, "Bit depth for -pcm output (16 or 24)")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: waveform-dump [flags] <file|url>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *width < 1 {
		fmt.Fprintf(os.Stderr, "-width must be positive, got %d\n", *width)
		os.Exit(2)
	}

	if err := run(context.Background(), flag.Arg(0)); err != nil {
		log.Fatalf("%v", err)
	}
}

// run dumps one clip; the staged payload is removed before it returns
func run(ctx context.Context, source string) error {
	payload, err := fetch.NewFetcher(30*time.Second, 0).Fetch(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to fetch clip: %w", err)
	}

	loader := waveform.NewLoader(nil, *samples, "")
	clip, err := loader.LoadSync(ctx, "", payload)
	if err != nil {
		return fmt.Errorf("failed to decode clip: %w", err)
	}
	defer func() {
		if err := loader.Remove(clip); err != nil {
			log.Printf("Failed to remove staged clip: %v", err)
		}
	}()

	if *pcmOut != "" {
		if err := writePCM(*pcmOut, clip.Buffer, *pcmBits); err != nil {
			return err
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(clip.Samples); err != nil {
			return fmt.Errorf("failed to encode samples: %w", err)
		}
		return nil
	}

	fmt.Printf("%s  %s  %d Hz  %d ch  %d samples\n",
		fetch.Name(source),
		playback.FormatTime(clip.Duration),
		clip.Buffer.Format.SampleRate,
		clip.Buffer.Format.Channels,
		len(clip.Samples))

	printBars(os.Stdout, clip.Samples, *width)
	return nil
}

// printBars writes one line per sample with its dB level and a bar
func printBars(w io.Writer, samples []waveform.Sample, width int) {
	for i, s := range samples {
		level := ui.NormalizeLevel(s.Magnitude)
		db := "   -inf"
		if !math.IsInf(float64(s.Magnitude), -1) {
			db = fmt.Sprintf("%7.1f", s.Magnitude)
		}
		fmt.Fprintf(w, "%3d %s dB %5.1f %s\n", i, db, level, strings.Repeat("█", barWidth(level, width)))
	}
}

// barWidth scales a normalized level to [0, width]
func barWidth(level float64, width int) int {
	if width <= 0 {
		return 0
	}
	bar := int(math.Round(level / ui.MaxLevel * float64(width)))
	if bar < 0 {
		return 0
	}
	if bar > width {
		return width
	}
	return bar
}

// writePCM encodes the decoded clip with the PCM encoder
func writePCM(path string, buf *audio.Buffer, bitDepth int) error {
	encoder, err := encode.NewPCM(audio.Format{
		Codec:      "pcm",
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.Channels,
		BitDepth:   bitDepth,
	})
	if err != nil {
		return err
	}
	defer encoder.Close()

	data, err := encoder.Encode(buf.Samples)
	if err != nil {
		return fmt.Errorf("failed to encode pcm: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pcm: %w", err)
	}

	log.Printf("Wrote %d bytes of %d-bit PCM (%d Hz, %d ch) to %s",
		len(data), bitDepth, buf.Format.SampleRate, buf.Format.Channels, path)
	return nil
}
