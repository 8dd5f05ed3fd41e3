// Package build holds build-time information.
package build

// Set by linker flags; the defaults describe a local development build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
