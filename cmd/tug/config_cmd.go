package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dorcha-inc/tug/internal/config"
)

// newConfigCmd creates the config command group
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit tug settings",
		Long: `Inspect and edit tug's settings. Values are resolved from the
environment, the project tug.yaml, and the user ~/.tug/config.yaml, in that
order of precedence. Set writes to the project file when one exists,
otherwise to the user file.`,
	}

	// Add subcommands
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

// newConfigGetCmd creates the config get command
func newConfigGetCmd() *cobra.Command {
	var envPrefix string

	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one settings value and where it came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := config.GetConfigValue(args[0], envPrefix)
			if err != nil {
				return err
			}
			fmt.Printf("%v (%s)\n", value.Value, value.Source)
			return nil
		},
	}

	cmd.Flags().StringVar(&envPrefix, "env-prefix", "", "Environment key prefix for derived variables (default TUG_)")

	return cmd
}

// newConfigSetCmd creates the config set command
func newConfigSetCmd() *cobra.Command {
	var envPrefix string

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Persist one settings value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetConfigValue(args[0], args[1], envPrefix); err != nil {
				return err
			}
			fmt.Printf("Set %s = %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&envPrefix, "env-prefix", "", "Environment key prefix for derived variables (default TUG_)")

	return cmd
}

// newConfigListCmd creates the config list command
func newConfigListCmd() *cobra.Command {
	var envPrefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every settings value and its source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := config.ListConfig(envPrefix)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(values))
			for key := range values {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			_, errWriteHeader := fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
			if errWriteHeader != nil {
				return fmt.Errorf("failed to write header: %w", errWriteHeader)
			}

			_, errWriteSeparator := fmt.Fprintln(w, "---\t-----\t------")
			if errWriteSeparator != nil {
				return fmt.Errorf("failed to write separator: %w", errWriteSeparator)
			}

			for _, key := range keys {
				_, errWriteRow := fmt.Fprintf(w, "%s\t%v\t%s\n", key, values[key].Value, values[key].Source)
				if errWriteRow != nil {
					return fmt.Errorf("failed to write row: %w", errWriteRow)
				}
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&envPrefix, "env-prefix", "", "Environment key prefix for derived variables (default TUG_)")

	return cmd
}
