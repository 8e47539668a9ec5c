// Command apiserver serves the canonical species dataset and observation
// intake over HTTP.  It accepts the flags of "fishlwr serve".
package main

import (
	"os"

	"github.com/turtacn/fishlwr/internal/interfaces/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version, cli.GitCommit, cli.BuildDate = version, commit, buildDate
	if err := cli.ExecuteCommand("serve"); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
