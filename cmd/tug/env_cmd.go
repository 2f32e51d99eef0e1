package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// envReport is the YAML shape of the env command's output.
type envReport struct {
	Profiles []string          `yaml:"profiles,omitempty"`
	Files    []string          `yaml:"files,omitempty"`
	Values   map[string]string `yaml:"values"`
}

// newEnvCmd creates the env command
func newEnvCmd() *cobra.Command {
	opts := &runOptions{}
	var format string

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the merged env layer values",
		Long: `Env merges the configured layer files exactly like a delegating command
would and prints the result without running anything. Text output is sorted
KEY=VALUE lines; YAML output also lists the merged files and the active
profiles.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnv(opts, format)
		},
	}

	opts.registerRunFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or yaml")

	return cmd
}

// runEnv prints the merge result in the requested format.
func runEnv(opts *runOptions, format string) error {
	_, merged, err := prepare(opts)
	if err != nil {
		return err
	}

	switch format {
	case "text":
		keys := make([]string, 0, len(merged.Values))
		for key := range merged.Values {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			fmt.Printf("%s=%s\n", key, merged.Values[key])
		}
		return nil

	case "yaml":
		report := envReport{
			Profiles: merged.Profiles,
			Files:    merged.Files,
			Values:   merged.Values,
		}
		out, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to render environment: %w", err)
		}
		fmt.Print(string(out))
		return nil

	default:
		return fmt.Errorf("format must be text or yaml, got '%s'", format)
	}
}
