// Package buildinfo carries version metadata stamped at link time:
//
//	go build -ldflags "-X github.com/m3rciful/notesbot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/notesbot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/notesbot/core/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
	// Date is an RFC3339 timestamp; empty for local builds.
	Date = ""
)
