// Package version exposes build metadata for the depfence binary.
package version

import (
	"runtime/debug"
)

// Set at build time via -ldflags; plain `go build` falls back to the
// module build info embedded by the toolchain.
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the VCS revision the binary was built from.
	Commit = "none"

	// Date is the UTC build timestamp.
	Date = "unknown"
)

// InitBinaryVersion fills in version metadata from the embedded module
// build info when the linker did not set it.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}
