// Command moxie runs the job scheduler CLI.
package main

import (
	"fmt"
	"os"

	"github.com/russellklenk/moxie/internal/cli"
)

func main() {
	if err := cli.BuildCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
