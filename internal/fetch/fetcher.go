// ABOUTME: Payload fetcher for audio clips given as local paths or http(s) URLs
// ABOUTME: Downloads remote payloads with a size limit and reads local files directly
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxBytes caps a downloaded payload
const DefaultMaxBytes = 64 << 20

// ErrTooLarge is returned when a payload exceeds the fetcher's limit
var ErrTooLarge = errors.New("payload too large")

// Fetcher retrieves clip payloads
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a fetcher. A maxBytes of 0 uses DefaultMaxBytes.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// IsURL reports whether source names an http(s) resource
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch returns the payload for source, which is either a file path or an http(s) URL
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("empty source")
	}

	if !IsURL(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		return data, nil
	}

	log.Printf("Downloading payload: %s", source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payload download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}

	log.Printf("Payload downloaded: %d bytes", len(data))
	return data, nil
}

// Name returns a display name for source
func Name(source string) string {
	source = strings.Split(source, "?")[0]
	name := filepath.Base(source)
	if name == "." || name == "/" || name == "" {
		return source
	}
	return name
}
