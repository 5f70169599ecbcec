package auraclient

// Version is the library semantic version (injected at build time optionally).
var Version = "dev"

// GitCommit is the git SHA (inject via -ldflags at build time).
var GitCommit = ""

// UserAgent identifies this client to the backend.
func UserAgent() string {
	if GitCommit != "" {
		return "auraclient/" + Version + " (" + GitCommit + ")"
	}
	return "auraclient/" + Version
}
