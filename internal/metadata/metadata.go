package metadata

import "fmt"

// Set at build time via -ldflags "-X".
var (
	Version    = "freshest"
	CommitHash = "n/a"
	BuildTime  = "n/a"
)

func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitHash, BuildTime)
}
