package version

import "fmt"

// Version/Commit are injected at build time via -ldflags; the defaults are
// development placeholders.
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// Full returns the complete version string for CLI output.
func Full() string {
	return fmt.Sprintf("intraweb %s (%s)", Version, Commit)
}
