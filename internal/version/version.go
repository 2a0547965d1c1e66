// Package version reports a build identifier for the running binary,
// falling back to the module's reported version when no VCS stamp is
// available (e.g. a plain `go build` outside a checkout).
package version

import (
	"fmt"
	"runtime/debug"
)

// Print renders a "<name> version <version> (<revision>)" string for name,
// the way the teacher's command-line tools report their own version.
func Print(name string) string {
	rev, ver := "unknown", "unknown"

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" {
			ver = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				rev = s.Value
			}
		}
	}

	return fmt.Sprintf("%s version %s (%s)", name, ver, rev)
}
