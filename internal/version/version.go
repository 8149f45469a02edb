// Package version exposes the build version stamped into the binary.
package version

import "runtime/debug"

// Version is overridable at link time, e.g.
// go build -ldflags "-X github.com/MEKXH/mason/internal/version.Version=v1.2.3".
// When left unset, the module version recorded by go install is used.
var Version = "dev"

func init() {
	if Version != "dev" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
	}
}
