package main

import (
	"runtime/debug"

	"github.com/myles/perch/cmd"
)

// Version is stamped by releases via -ldflags "-X main.Version=...".
var Version = "dev"

// resolveVersion falls back to Go build info when no version was stamped:
// the module version for `go install perch@vX.Y.Z` builds, else the VCS
// revision with a dirty marker.
func resolveVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var rev string
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return Version
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	v := "devel+" + rev
	if dirty {
		v += "+dirty"
	}
	return v
}

func main() {
	cmd.SetVersion(resolveVersion())
	cmd.Execute()
}
