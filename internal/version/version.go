// Package version holds the build version, set with
// -ldflags "-X github.com/bnema/mycelium-pulse/internal/version.Version=...".
package version

var Version = "dev"
