// Package version carries build identification for the traffic.report
// binaries, populated via -ldflags at release time.
package version

var (
	// Version is the release version, "dev" for local builds
	Version = "dev"
	// GitSHA is the git commit the binary was built from
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
