package main

import (
	"github.com/spf13/cobra"

	"github.com/dorcha-inc/tug/internal/compose"
)

// newCleanCmd creates the clean command
func newCleanCmd() *cobra.Command {
	opts := &runOptions{}
	var removeImages bool

	cmd := &cobra.Command{
		Use:   "clean [flags] [--] ARGS...",
		Short: "Tear the project down and clear its stored state",
		Long: `Clean runs a fixed delegate sequence: a forced stop-and-remove of the
project's containers, then a tear-down that also removes named volumes
(and locally-built images with --images). After the whole sequence
succeeds, the store directory's contents are deleted; a failed delete is
logged and does not change the exit status.

Passthrough arguments are inserted before each step's own arguments, so
they must be options the delegate accepts on every step.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelegate(cmd.Context(), opts, args, compose.CleanSteps(removeImages), true)
		},
	}

	opts.registerRunFlags(cmd)
	cmd.Flags().BoolVar(&removeImages, "images", false, "Also remove locally-built images during tear-down")
	cmd.Flags().SetInterspersed(false)

	return cmd
}
