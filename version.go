package main

import (
	"fmt"

	"github.com/oszuidwest/cranecheck/internal/util"
)

// Build metadata, set via ldflags at build time:
//
//	go build -ldflags "-X main.Version=1.2.0 -X main.Commit=$(git rev-parse --short HEAD)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// userAgent identifies cranecheck in outgoing HTTP requests.
func userAgent() string {
	return "cranecheck/" + Version
}

// versionLine returns the one-line build summary.
func versionLine() string {
	return fmt.Sprintf("cranecheck %s (commit %s, built %s)", Version, Commit, util.FormatHumanTime(BuildTime))
}
