package build

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	// AppMajor is the major version.
	AppMajor uint = 0

	// AppMinor is the minor version.
	AppMinor uint = 3

	// AppPatch is the patch version.
	AppPatch uint = 0

	// AppPreRelease is appended to the version when non-empty.
	AppPreRelease = "beta"
)

var (
	// Commit is set at link time with
	// -ldflags "-X github.com/roasbeef/lexdesk/internal/build.Commit=...".
	Commit string

	// CommitHash is the VCS revision recorded by the Go toolchain. It is
	// used when Commit was not set at link time.
	CommitHash string

	// GoVersion is the Go version the binary was built with.
	GoVersion string

	// RawTags is the comma separated list of build tags.
	RawTags string
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	GoVersion = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			CommitHash = s.Value
		case "-tags":
			RawTags = s.Value
		}
	}
}

// Version returns the semantic version string.
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", AppMajor, AppMinor, AppPatch)
	if AppPreRelease != "" {
		v += "-" + AppPreRelease
	}

	return v
}

// Tags returns the build tags the binary was compiled with.
func Tags() []string {
	if RawTags == "" {
		return nil
	}

	return strings.Split(RawTags, ",")
}
