package version

import (
	"fmt"
)

var version string

// GetVersionString returns a standard version header
func GetVersionString() string {
	return fmt.Sprintf("merge-rpd, version %v", GetVersion())
}

// GetVersion returns the version set at build time, or "unknown" for
// builds without ldflags.
func GetVersion() string {
	if version == "" {
		return "unknown"
	}
	return version
}
