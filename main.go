// ABOUTME: Entry point for the waveplay clip player
// ABOUTME: Parses CLI flags, loads a clip and drives the TUI, remote feed and discovery
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/waveplay/internal/config"
	"github.com/harperreed/waveplay/internal/discovery"
	"github.com/harperreed/waveplay/internal/fetch"
	"github.com/harperreed/waveplay/internal/playback"
	"github.com/harperreed/waveplay/internal/remote"
	"github.com/harperreed/waveplay/internal/ui"
	"github.com/harperreed/waveplay/internal/version"
	"github.com/harperreed/waveplay/internal/waveform"
	"github.com/harperreed/waveplay/pkg/audio/output"
)

var (
	configPath  = flag.String("config", "", "YAML config file")
	logFile     = flag.String("log-file", "", "Log file path (default from config)")
	backend     = flag.String("backend", "", "Audio output: oto, portaudio or null")
	samples     = flag.Int("samples", 0, "Number of waveform samples")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, play once and log progress")
	remoteFeed  = flag.Bool("remote", false, "Serve the playback state over websocket")
	listen      = flag.String("listen", "", "Remote feed listen address")
	advertise   = flag.Bool("advertise", false, "Announce the remote feed via mDNS")
	discover    = flag.Bool("discover", false, "Browse for remote feeds and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: waveplay [flags] <file|url>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	useTUI := !*noTUI && !*discover

	f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if *discover {
		runDiscovery()
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	source := flag.Arg(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload, err := fetch.NewFetcher(30*time.Second, 0).Fetch(ctx, source)
	if err != nil {
		log.Fatalf("Failed to fetch clip: %v", err)
	}

	out, err := output.New(cfg.Output.Backend, cfg.Output.SampleRate)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	if v, ok := out.(interface{ SetVolume(int) }); ok {
		v.SetVolume(cfg.Output.Volume)
	}

	var tuiProg *tea.Program
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	finished := make(chan struct{}, 1)

	pbConfig := playback.Config{
		TickEpsilon:     cfg.Playback.TickEpsilon(),
		MinTickInterval: cfg.Playback.MinTickInterval(),
		FinishDelay:     cfg.Playback.FinishDelay(),
		Strict:          cfg.Playback.Strict,
		Output:          out,
		OnFinished: func(clipID string) {
			log.Printf("Clip finished: %s", clipID)
			select {
			case finished <- struct{}{}:
			default:
			}
		},
		OnUnload: func(clipID string) {
			log.Printf("Clip unloaded: %s", clipID)
		},
		OnError: func(err error) {
			log.Printf("Playback error: %v", err)
			updateTUI(ui.StatusMsg{Error: err.Error()})
		},
	}

	loader := waveform.NewLoader(nil, cfg.Playback.SampleCount, cfg.Playback.TempDir)
	ctrl := playback.NewController(loader, pbConfig)

	var quit <-chan struct{}
	if useTUI {
		snaps, _ := ctrl.Subscribe()
		model := ui.NewModel(ctrl, fetch.Name(source))
		quit = model.Quit()
		tuiProg = ui.Run(model, snaps)
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	} else {
		go logProgress(ctrl)
	}

	var feed *remote.Server
	var disc *discovery.Manager
	if cfg.Remote.Enabled {
		feed, err = remote.NewServer(ctrl, remote.Config{
			Listen: cfg.Remote.Listen,
			Name:   cfg.Remote.Name,
			OnClientsChange: func(count int) {
				updateTUI(ui.StatusMsg{Clients: &count})
			},
		})
		if err != nil {
			log.Fatalf("Failed to create remote feed: %v", err)
		}
		if err := feed.Start(); err != nil {
			log.Fatalf("Failed to start remote feed: %v", err)
		}
		updateTUI(ui.StatusMsg{RemoteAddr: feed.Addr().String()})

		if cfg.Remote.Advertise {
			disc = discovery.NewManager(discovery.Config{
				ServiceName: cfg.Remote.Name,
				Port:        feed.Port(),
				Path:        feed.Path(),
			})
			if err := disc.Advertise(); err != nil {
				log.Printf("mDNS advertisement failed: %v", err)
			}
		}
	}

	log.Printf("Starting %s: %s", version.String(), source)

	loadErr := <-ctrl.Load(ctx, "", payload)
	if loadErr != nil {
		log.Printf("Failed to load clip: %v", loadErr)
		if !useTUI {
			shutdown(ctrl, feed, disc)
			os.Exit(1)
		}
	} else if !useTUI {
		if err := ctrl.Play(); err != nil {
			log.Printf("Play failed: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var done <-chan struct{}
	if !useTUI && !cfg.Remote.Enabled {
		// play once and exit
		done = finished
	}

	select {
	case <-quit:
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
	case <-done:
	}

	shutdown(ctrl, feed, disc)
	if tuiProg != nil {
		tuiProg.Quit()
	}

	log.Printf("Player stopped")
}

// loadConfig builds the configuration from defaults, the config file and flags
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if *logFile != "" {
		cfg.Logging.File = *logFile
	}
	if *backend != "" {
		cfg.Output.Backend = *backend
	}
	if *samples > 0 {
		cfg.Playback.SampleCount = *samples
	}
	if *remoteFeed {
		cfg.Remote.Enabled = true
	}
	if *listen != "" {
		cfg.Remote.Listen = *listen
	}
	if *advertise {
		cfg.Remote.Enabled = true
		cfg.Remote.Advertise = true
	}

	return cfg, cfg.Validate()
}

// logProgress logs state changes and newly played samples
func logProgress(ctrl *playback.Controller) {
	snaps, cancel := ctrl.Subscribe()
	defer cancel()

	lastState := playback.Idle
	lastIndex := -1
	for snap := range snaps {
		if snap.State != lastState {
			log.Printf("State: %s (%s)", snap.State, snap.DisplayText)
			lastState = snap.State
		}
		if snap.State == playback.Playing && snap.CurrentIndex != lastIndex {
			log.Printf("Progress: %s sample %d/%d", snap.ElapsedText, snap.CurrentIndex, len(snap.Samples))
			lastIndex = snap.CurrentIndex
		}
	}
}

// runDiscovery prints remote feeds found on the network
func runDiscovery() {
	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		log.Fatalf("mDNS browse failed: %v", err)
	}

	log.Printf("Browsing for %s feeds...", discovery.ServiceType)

	seen := make(map[string]bool)
	timeout := time.After(5 * time.Second)
	for {
		select {
		case feed := <-disc.Feeds():
			url := fmt.Sprintf("ws://%s%s", feed.Addr(), feed.Path)
			if seen[url] {
				continue
			}
			seen[url] = true
			fmt.Printf("%s\t%s\t%s\n", feed.Name, url, probeFeed(feed))
		case <-timeout:
			if len(seen) == 0 {
				log.Printf("No feeds found")
			}
			return
		}
	}
}

// probeFeed connects to a feed and describes its current state
func probeFeed(feed *discovery.FeedInfo) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := remote.Dial(ctx, feed.Addr(), feed.Path)
	if err != nil {
		log.Printf("Failed to connect to %s: %v", feed.Name, err)
		return "unreachable"
	}
	defer client.Close()

	select {
	case state, ok := <-client.States():
		if !ok {
			return client.Software()
		}
		if state.ClipID == "" {
			return fmt.Sprintf("%s, no clip", client.Software())
		}
		return fmt.Sprintf("%s, %s %s", client.Software(), state.State, state.DisplayText)
	case <-ctx.Done():
		return client.Software()
	}
}

func shutdown(ctrl *playback.Controller, feed *remote.Server, disc *discovery.Manager) {
	if disc != nil {
		disc.Stop()
	}
	if feed != nil {
		feed.Stop()
	}
	if err := ctrl.Close(); err != nil {
		log.Printf("Error closing player: %v", err)
	}
}
