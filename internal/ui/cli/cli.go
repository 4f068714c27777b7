// Package cli implements the semgraph command line.
package cli

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"semgraph/internal/shared/version"
)

const defaultConfigName = "semgraph.toml"

// Exit codes.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitDiagnostics = 3
)

type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	manifest   string
	crateName  string
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// Run executes the CLI and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if stderrors.As(err, &ee) {
		if ee.code != ExitDiagnostics {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "semgraph",
		Short: "Semantic graph builder for Rust crates",
		Long: `semgraph resolves the module tree, imports, re-exports and call sites of a
Rust crate into a queryable declaration graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default ./"+defaultConfigName+" when present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&opts.manifest, "manifest", "", "Read the module forest from a YAML manifest instead of parsing sources")
	flags.StringVar(&opts.crateName, "crate-name", "", "Override the crate name")

	cmd.AddCommand(
		newBuildCmd(opts, stdout, stderr),
		newQueryCmd(opts, stdout, stderr),
		newWatchCmd(opts, stdout, stderr),
		newManifestCmd(opts, stdout, stderr),
		newConfigCmd(opts, stdout, stderr),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(stdout, "semgraph version %s (commit %s)\n", version.Version, version.Commit)
			},
		},
	)
	return cmd
}
