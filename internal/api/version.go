package api

// Version information, set at build time via ldflags:
//
//	-X github.com/MJE43/pf-blackjack/internal/api.EngineVersion=v1.2.0
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)

// versionHeader is attached to every response so clients can pin the
// shuffle implementation they verified against.
const versionHeader = "X-Engine-Version"

// GetVersionInfo returns the current version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
	}
}
