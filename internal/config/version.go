package config

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// SetBuildFlags is called from main with ldflags-injected values.
func SetBuildFlags(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
}
