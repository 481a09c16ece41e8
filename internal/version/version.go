// Package version reports the build identity of the wemo binaries.
//
// Release builds stamp Version and Commit with ldflags, for example
//
//	go build -ldflags "-X github.com/muurk/wemo/internal/version.Version=v0.3.0 \
//	    -X github.com/muurk/wemo/internal/version.Commit=abc1234" ./cmd/wemo-discover
//
// Local builds derive both from the VCS stamp the go command embeds.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Version is the release tag, or dev-YYYYMMDD for untagged builds
	Version = ""
	// Commit is the short revision the binary was built from
	Commit = ""
)

// shortRevisionLen matches git's default abbreviation
const shortRevisionLen = 7

func init() {
	if Version == "" || Commit == "" {
		populateFromBuildInfo(debug.ReadBuildInfo)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

type buildInfoFunc func() (*debug.BuildInfo, bool)

// vcsStamp is the subset of debug.BuildInfo settings used here
type vcsStamp struct {
	revision string
	modified bool
	time     string
}

func readVCSStamp(settings []debug.BuildSetting) vcsStamp {
	var stamp vcsStamp
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			stamp.revision = s.Value
		case "vcs.modified":
			stamp.modified = s.Value == "true"
		case "vcs.time":
			stamp.time = s.Value
		}
	}
	return stamp
}

// commit renders the stamp as an abbreviated revision, "" without one
func (v vcsStamp) commit() string {
	if v.revision == "" {
		return ""
	}
	rev := v.revision
	if len(rev) > shortRevisionLen {
		rev = rev[:shortRevisionLen]
	}
	if v.modified {
		rev += "-dirty"
	}
	return rev
}

// devVersion names an untagged build after its commit date
func (v vcsStamp) devVersion() string {
	t, err := time.Parse(time.RFC3339, v.time)
	if err != nil {
		return ""
	}
	return "dev-" + t.Format("20060102")
}

// populateFromBuildInfo fills whichever of Version and Commit ldflags left
// empty.
func populateFromBuildInfo(read buildInfoFunc) {
	info, ok := read()
	if !ok || info == nil {
		return
	}

	stamp := readVCSStamp(info.Settings)
	if Commit == "" {
		Commit = stamp.commit()
	}
	if Version == "" {
		Version = stamp.devVersion()
	}
}

// Full is what the version commands print
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent identifies description fetches to devices and proxies
func UserAgent() string {
	return "wemo-discover/" + Version
}
