package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dorcha-inc/tug/internal/compose"
	"github.com/dorcha-inc/tug/internal/core"
)

var (
	version = "dev"
	// build time date
	buildDate = "unknown"
)

func main() {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		var exitErr *core.ExitStatusError
		if errors.As(err, &exitErr) {
			// A child process failed and has already reported itself;
			// carry its status without adding noise.
			os.Exit(exitErr.Status)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root passthrough command
func newRootCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "tug [flags] [--] ARGS...",
		Short: "Compose wrapper with layered env files and lifecycle hooks",
		Long: `Tug wraps a compose binary: it merges layered env files into the
environment, resolves the first usable delegate binary, runs any lifecycle
hooks found in the working directory, and forwards its arguments to the
delegate verbatim.

The first positional argument stops option parsing, so delegate flags pass
through untouched: "tug up -d" forwards "up -d" as-is. Use "--" before
arguments that collide with tug's own subcommand names, e.g. "tug -- version".`,
		Version:       fmt.Sprintf("%s (built: %s)", version, buildDate),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelegate(cmd.Context(), opts, args, compose.PassthroughSteps(), false)
		},
	}

	opts.registerRunFlags(cmd)
	cmd.Flags().SetInterspersed(false)

	// Add subcommands
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newEnvCmd())
	cmd.AddCommand(newHooksCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newVersionCmd creates the version command. The delegate's own version verb
// is still reachable as "tug -- version".
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tug version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tug %s (built: %s)\n", version, buildDate)
		},
	}
}
