// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded into the binary at compile
// time via linker flags: the application name, build timestamp, Git
// commit hash, and semantic version. The values default to "dev" so
// plain `go build` and `go test` binaries work without ldflags.
package build

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "hearaid",
		Description: "Multiband hearing-aid compressor",
		Time:        "dev",
		Commit:      "dev",
		Version:     "dev",
	}
)

// Initialize copies build information from the ldflags variables into
// the buildFlags struct. Values not set at link time keep their "dev"
// defaults. Call early in program startup.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
