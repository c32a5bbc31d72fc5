package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/vanderheijden86/graphcanvas/pkg/version.Version=v1.2.3"
var Version = "v0.1.0-dev"

// String returns "name version (revision, go)" for -version output.
func String(name string) string {
	rev := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				rev = s.Value[:7]
			}
		}
	}
	return fmt.Sprintf("%s %s (%s, %s)", name, Version, rev, runtime.Version())
}
