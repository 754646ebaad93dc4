package buildinfo

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'elpbot/core/buildinfo.Version=v1.2.3'
//	-X 'elpbot/core/buildinfo.Commit=abcdef0'
//	-X 'elpbot/core/buildinfo.Date=2026-10-14T12:00:00Z'
//
// Default values are useful for local dev.
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// Summary renders a one-line build description for health probes and startup logs.
func Summary() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
