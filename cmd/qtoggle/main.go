// Package main provides the entry point for the qtoggle CLI tool.
package main

import (
	"github.com/rajtan/qtoggleserver/cmd/qtoggle/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cmd.Execute(version, commit, date, builtBy)
}
