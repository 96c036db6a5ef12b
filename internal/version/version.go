// ABOUTME: Version information for waveplay
// ABOUTME: Product identity reported by the CLI and the remote feed
package version

const (
	// Version is the waveplay release
	Version = "0.1.0"
	// Product is the product name
	Product = "waveplay"
	// Manufacturer identifies the publisher
	Manufacturer = "harperreed"
)

// String returns the product and version, e.g. "waveplay 0.1.0"
func String() string {
	return Product + " " + Version
}
