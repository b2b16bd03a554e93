// Command portprowler scans hosts for open TCP ports.
package main

import (
	"github.com/anstrom/portprowler/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
