package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"semgraph/internal/ui/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s", r, debug.Stack())
			os.Exit(cli.ExitError)
		}
	}()
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
