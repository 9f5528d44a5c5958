package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jhsmit/hal/internal/cli"
	"github.com/pkg/errors"
)

var version = "0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := cli.NewRootCommand(version)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
