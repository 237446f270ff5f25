// consteval evaluates compile-time constant expressions of a program.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/consteval/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
