// ABOUTME: Version and product identification
// ABOUTME: Reported in remote hello messages and the TUI header
package version

const (
	// Version is the release version
	Version = "0.3.0"

	// Product is the product name
	Product = "Cassette Player"

	// Manufacturer identifies the maker
	Manufacturer = "Cassette Audio"
)
