// Command ihop drives JSON Schema implementations over the ihop protocol.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ihop/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.NewRootCommand()
	err := cmd.Execute()
	if err == nil {
		return cli.ExitSuccess
	}
	fmt.Fprintln(os.Stderr, "ihop:", err)
	return cli.GetExitCode(err)
}
