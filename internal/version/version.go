// SPDX-License-Identifier: Apache-2.0

// Package version carries build-time version information.
package version

// Build-time variables set via ldflags.
var (
	// Version is the dbuild version.
	Version = "v0.0.0-dev"

	// Commit is the git commit hash.
	Commit = "unknown"
)
