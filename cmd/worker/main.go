// Command worker applies observations queued on kafka to the accumulator
// and publishes the refitted species.  It accepts the flags of
// "fishlwr worker".
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
	if err := cli.ExecuteCommand("worker"); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
