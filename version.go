package wordpop

// Version information for wordpop.
// These values can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/ZaguanLabs/wordpop.GitCommit=abc1234"
const (
	// Name is the application name.
	Name = "wordpop"

	// Description is a short description of the application.
	Description = "Select-to-translate dispatcher: dictionary lookups, sentence translation and toast scheduling"

	// Version is the semantic version of the application.
	Version = "0.3.0"

	// Repository is the source code repository URL.
	Repository = "https://github.com/ZaguanLabs/wordpop"

	// License is the software license.
	License = "MIT"
)

// BuildInfo contains build-time information.
// These are typically set via ldflags during build.
var (
	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// FullVersion returns the version string with optional build info.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns a user agent string for upstream HTTP requests.
func UserAgent() string {
	return "Mozilla/5.0 (compatible; " + Name + "/" + Version + ")"
}
