// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package version provides build version information for apledger binaries.
// Values are injected at build time via -ldflags.
package version

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// AppName is reported by the device on GET_VERSION.
const AppName = "Pocket"

// These variables are set at build time via -ldflags.
// Example: go build -ldflags "-X github.com/aplane-algo/apledger/internal/version.Version=1.2.3"
var (
	// Version is the semantic version of the emulated app (e.g., "0.1.0")
	Version = "0.1.0"

	// GitCommit is the git commit hash (short form)
	GitCommit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format
	BuildTime = "unknown"
)

// String returns a formatted version string suitable for --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s/%s)",
		Version, GitCommit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// Triple returns major, minor and patch parsed from Version.
// Pre-release suffixes ("-dev") are ignored and unparseable parts read as 0.
func Triple() (major, minor, patch uint8) {
	return parseTriple(Version)
}

func parseTriple(v string) (major, minor, patch uint8) {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.SplitN(v, ".", 3)
	var out [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			continue
		}
		out[i] = uint8(n)
	}
	return out[0], out[1], out[2]
}

// Label is the human-readable app identifier, e.g. "Pocket 0.1.0".
func Label() string {
	return AppName + " " + Version
}
