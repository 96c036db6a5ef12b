// ABOUTME: mDNS service discovery for the remote playback feed
// ABOUTME: Handles both advertisement of a local feed and browsing for feeds on the network
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type of a waveplay feed
const ServiceType = "_waveplay._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	// Path is advertised in the TXT record (default: /waveplay)
	Path string
	// BrowseTimeout bounds each browse query (default: 3s)
	BrowseTimeout time.Duration
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
	feeds  chan *FeedInfo
}

// FeedInfo describes a discovered feed
type FeedInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// Addr returns host:port of the feed
func (f *FeedInfo) Addr() string {
	return net.JoinHostPort(f.Host, fmt.Sprintf("%d", f.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/waveplay"
	}
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		feeds:  make(chan *FeedInfo, 10),
	}
}

// Advertise announces the local feed via mDNS until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=" + m.config.Path},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for feeds until Stop is called
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop continuously browses for feeds
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				feed := feedFromEntry(entry)
				if feed == nil {
					continue
				}

				log.Printf("Discovered feed: %s at %s", feed.Name, feed.Addr())

				select {
				case m.feeds <- feed:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Entries = entries
		params.Timeout = m.config.BrowseTimeout
		params.DisableIPv6 = true

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
	}
}

// Feeds returns the channel of discovered feeds
func (m *Manager) Feeds() <-chan *FeedInfo {
	return m.feeds
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// feedFromEntry converts a service entry, ignoring entries without an IPv4 address
func feedFromEntry(entry *mdns.ServiceEntry) *FeedInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}

	feed := &FeedInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: "/waveplay",
	}

	for _, field := range entry.InfoFields {
		if path, ok := strings.CutPrefix(field, "path="); ok && path != "" {
			feed.Path = path
		}
	}

	return feed
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
