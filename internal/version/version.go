// Package version reports the build that is running, for the User-Agent
// sent to WHOOP and for startup logs.
package version

import (
	"runtime/debug"
	"sync"
)

const devel = "devel"

// version is set with -ldflags "-X .../internal/version.version=v1.2.3".
var version = devel

type buildInfo struct {
	version  string
	revision string
	dirty    bool
}

var read = sync.OnceValue(func() buildInfo {
	b := buildInfo{version: version}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	// go install pins a module version; local builds report (devel).
	if b.version == devel && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.revision = s.Value
		case "vcs.modified":
			b.dirty = s.Value == "true"
		}
	}
	return b
})

func Get() string { return read().version }

// Revision is the short VCS revision, suffixed with "-dirty" for builds from
// a modified tree. It is empty when the binary carries no VCS stamp.
func Revision() string {
	b := read()
	rev := b.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && b.dirty {
		rev += "-dirty"
	}
	return rev
}
