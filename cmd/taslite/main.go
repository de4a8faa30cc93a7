// Command taslite is a thin Cobra wrapper over package db and package
// mapping: argument parsing and file I/O only, no business logic.
package main

import (
	"fmt"
	"os"

	"github.com/jmatsushita/taslite/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
