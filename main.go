package main

import (
	"runtime/debug"

	"github.com/marcus/trail/cmd"
)

// Version may be set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// effectiveVersion falls back to Go build info when no version was
// injected: the module version for `go install trail@vX.Y.Z` builds, or
// the VCS revision for local builds.
func effectiveVersion(v string) string {
	if v != "" && v != "dev" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return v
	}
	if mv := info.Main.Version; mv != "" && mv != "(devel)" {
		return mv
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			rev := s.Value
			if len(rev) > 12 {
				rev = rev[:12]
			}
			return "devel+" + rev
		}
	}
	return v
}

func main() {
	cmd.SetVersion(effectiveVersion(Version))
	cmd.Execute()
}
