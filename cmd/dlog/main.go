// Command dlog runs and queries a universe ledger.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dlog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dlog:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
