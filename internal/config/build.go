package config

// Release metadata for the didbase binary. `didbase version` prints it, and
// the fetcher appends the version to its User-Agent so the index service can
// tell releases apart. Release builds stamp it with -ldflags:
//
//	go build -ldflags "-X didbase/internal/config.version=1.2.3 \
//	    -X didbase/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X didbase/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/didbase
//
// A plain `go build` leaves the dev placeholders below.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the metadata stamped into this binary.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// String renders the build info on one line.
func (b BuildInfo) String() string {
	return "didbase " + b.Version + " (commit " + b.Commit + ", built " + b.BuildTime + ")"
}
