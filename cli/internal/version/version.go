// Package version holds the bot's version string. Default is "dev"; release
// builds set it via:
// go build -ldflags "-X github.com/haiku/haiku-format-bot/cli/internal/version.Version=v1.0.0"
// Commit is the short (7-char) git commit hash for dev builds.
package version

// Version is the haiku-format-bot version. Set at build time for releases.
var Version = "dev"

// Commit is the short git commit hash. Set at build time for dev builds via ldflags.
var Commit = ""

// String returns the version string for display (e.g. --version).
// For dev builds with Commit set, returns "dev (abc1234)"; otherwise returns Version.
func String() string {
	if Version != "dev" || Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
