// Package version holds the application version, set at build time with
//
//	go build -ldflags "-X github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/version.Version=1.2.3"
package version

// Version is the application version. It is "dev" for untagged builds.
var Version = "dev"
