package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"github.com/dorcha-inc/tug/internal/core"
	"github.com/dorcha-inc/tug/internal/hook"
	"github.com/dorcha-inc/tug/internal/tui"
)

// newHooksCmd creates the hooks command
func newHooksCmd() *cobra.Command {
	opts := &runOptions{}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "List the lifecycle hooks in the working directory",
		Long: `Hooks lists every lifecycle script discovered in the working directory
with its stage, command-scope, and platform or interpreter constraints.
Files that carry the hook marker but do not parse are pointed out, as are
directly-invoked hooks that are not executable.

With --hook, each activated name is checked against the command-scopes that
actually exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHooks(opts, jsonOutput)
		},
	}

	opts.registerRunFlags(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

// runHooks lists the hooks in the configured base directory, then reports
// likely mistakes: marker files that do not parse, direct hooks without an
// execute bit, and activated hook names with no matching scope.
func runHooks(opts *runOptions, jsonOutput bool) error {
	cfg, _, err := prepare(opts)
	if err != nil {
		return err
	}

	hooks, nearMisses, err := hook.List(cfg.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to list hooks: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(hooks)
	}

	if len(hooks) == 0 {
		fmt.Println("No hooks found.")
		fmt.Printf("Hook files are named %s.<stage>[.<scope>][.<platform>[+<binary>]].<ext>, e.g. %s.before.sh\n",
			hook.Marker, hook.Marker)
	} else if err := printHookTable(hooks); err != nil {
		return err
	}

	warnNearMisses(nearMisses)
	warnNotExecutable(hooks)
	warnUnmatchedScopes(hooks, opts.hookNames)

	return nil
}

// printHookTable renders the discovered hooks as an aligned table.
func printHookTable(hooks []hook.Hook) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, errWriteHeader := fmt.Fprintln(w, "NAME\tSTAGE\tSCOPE\tPLATFORM\tBINARY")
	if errWriteHeader != nil {
		return fmt.Errorf("failed to write header: %w", errWriteHeader)
	}

	_, errWriteSeparator := fmt.Fprintln(w, "----\t-----\t-----\t--------\t------")
	if errWriteSeparator != nil {
		return fmt.Errorf("failed to write separator: %w", errWriteSeparator)
	}

	for _, h := range hooks {
		_, errWriteRow := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			h.Name, h.Stage, orDash(h.Scope), orDash(h.Platform), orDash(h.Binary))
		if errWriteRow != nil {
			return fmt.Errorf("failed to write row: %w", errWriteRow)
		}
	}

	return w.Flush()
}

// orDash substitutes a dash for an empty table cell.
func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// warnNearMisses points out files that carry the hook marker but do not
// parse, suggesting a stage when the stage token looks like a typo.
func warnNearMisses(names []string) {
	for _, name := range names {
		token := ""
		if parts := strings.Split(name, "."); len(parts) > 1 {
			token = parts[1]
		}

		if suggestion := hook.Suggest(token, hook.StageNames()); suggestion != "" && suggestion != token {
			tui.Warnf("%s: unknown stage '%s'. Did you mean: %s?\n", name, token, suggestion)
			continue
		}
		tui.Warnf("%s looks like a hook but does not parse\n", name)
	}
}

// warnNotExecutable flags directly-invoked hooks whose file mode lacks an
// execute bit. Hooks with a declared interpreter do not need one.
func warnNotExecutable(hooks []hook.Hook) {
	for _, h := range hooks {
		if h.Binary != "" {
			continue
		}

		info, err := os.Stat(h.Path)
		if err != nil || core.IsExecutable(info) {
			continue
		}
		tui.Warnf("%s is not executable and declares no interpreter\n", h.Name)
	}
}

// warnUnmatchedScopes checks each activated hook name against the scopes
// that actually exist, suggesting the closest one for likely typos.
func warnUnmatchedScopes(hooks []hook.Hook, names []string) {
	seen := mapset.NewThreadUnsafeSet[string]()
	var scopes []string
	for _, h := range hooks {
		if h.Scope != "" && seen.Add(h.Scope) {
			scopes = append(scopes, h.Scope)
		}
	}

	for _, name := range names {
		if seen.Contains(name) {
			continue
		}

		if suggestion := hook.Suggest(name, scopes); suggestion != "" {
			tui.Warnf("no hooks scoped '%s'. Did you mean: %s?\n", name, suggestion)
			continue
		}
		tui.Warnf("no hooks scoped '%s'\n", name)
	}
}
