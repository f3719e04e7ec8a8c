package version

import (
	"runtime/debug"
	"strings"
)

// Version is the current application version.
// This is a var (not const) so it can be overridden at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/taxview/pkg/version.Version=v1.2.3"
var Version = "v0.1.0"

// String returns "taxview <version>" with the VCS revision appended when
// the binary carries build info.
func String() string {
	s := "taxview " + Version
	if rev := revision(); rev != "" {
		s += " (" + rev + ")"
	}
	return s
}

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return strings.TrimSpace(rev)
}
