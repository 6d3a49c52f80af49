// Package buildinfo carries version metadata stamped at link time
// with -ldflags "-X github.com/MatheusssGM/Grafos/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the metadata for JSON surfaces such as /debug/env.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}

// String renders a one-line summary for startup logs.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
