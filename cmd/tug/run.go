package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dorcha-inc/tug/internal/compose"
	"github.com/dorcha-inc/tug/internal/config"
	"github.com/dorcha-inc/tug/internal/core"
	"github.com/dorcha-inc/tug/internal/envfile"
	"github.com/dorcha-inc/tug/internal/orchestrate"
)

// runOptions holds the option set shared by the root command and every
// subcommand that merges settings before acting.
type runOptions struct {
	configPath   string
	envPrefix    string
	envName      string
	project      string
	profiles     []string
	composeBin   []string
	hookNames    []string
	noProfileEnv bool
	verbose      bool
	logFormat    string
}

// registerRunFlags declares the shared option set on a command. The root
// command and the composite subcommands recognize these identically.
func (o *runOptions) registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", "", "Path to a tug.yaml settings file")
	cmd.Flags().StringVar(&o.envPrefix, "env-prefix", "", "Environment key prefix for derived variables (default TUG_)")
	cmd.Flags().StringVar(&o.envName, "env-name", "", "Env layer file name (default .env)")
	cmd.Flags().StringVarP(&o.project, "project", "p", "", "Project name passed to the delegate")
	cmd.Flags().StringSliceVarP(&o.profiles, "profile", "e", nil, "Profile to activate (repeatable or comma-separated)")
	cmd.Flags().StringArrayVar(&o.composeBin, "compose-bin", nil, "Delegate binary candidate in priority order (repeatable)")
	cmd.Flags().StringArrayVar(&o.hookNames, "hook", nil, "Hook name to activate (repeatable)")
	cmd.Flags().BoolVar(&o.noProfileEnv, "no-profile-env", false, "Do not merge per-profile env layer files")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().StringVar(&o.logFormat, "log-format", "", "Log output format: pretty or json")
}

// prepare loads the settings, applies flag overrides, initializes logging,
// and merges the env layer files. Values the layer files contribute to the
// project and candidate keys take effect here, after the merge.
func prepare(opts *runOptions) (*config.TugConfig, *envfile.Merged, error) {
	cfg, err := config.LoadConfig(opts.configPath, opts.envPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := applyFlagOverrides(cfg, opts); err != nil {
		return nil, nil, err
	}

	if err := core.Init(cfg.LogFormat == config.TugLogFormatPretty, cfg.Verbose); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	merged, err := envfile.Merge(envfile.Options{
		Dir:              cfg.BaseDir,
		BaseName:         cfg.EnvName,
		Profiles:         opts.profiles,
		KeyPrefix:        cfg.KeyPrefix,
		SkipProfileFiles: opts.noProfileEnv,
	})
	if err != nil {
		return nil, nil, err
	}

	applyEffectiveEnv(cfg, opts)

	return cfg, merged, nil
}

// applyFlagOverrides layers explicit flag values over the loaded settings.
// Unset flags leave the settings untouched.
func applyFlagOverrides(cfg *config.TugConfig, opts *runOptions) error {
	if opts.project != "" {
		cfg.Project = opts.project
	}
	if opts.envName != "" {
		cfg.EnvName = opts.envName
	}
	if opts.logFormat != "" {
		format := config.TugLogFormat(opts.logFormat)
		if !config.IsValidLogFormat(format) {
			return fmt.Errorf("log-format must be one of: %s, got '%s'",
				core.JoinMapKeys(config.ValidLogFormats()), opts.logFormat)
		}
		cfg.LogFormat = format
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	return nil
}

// applyEffectiveEnv re-reads the project and candidate keys from the process
// environment after the layer merge, so values a layer file contributed are
// honored. Explicit flags still win.
func applyEffectiveEnv(cfg *config.TugConfig, opts *runOptions) {
	if opts.project == "" {
		if project := os.Getenv(cfg.KeyPrefix + "PROJECT"); project != "" {
			cfg.Project = project
		}
	}
	if len(opts.composeBin) == 0 {
		if candidates := os.Getenv(cfg.KeyPrefix + "COMPOSE_BIN"); candidates != "" {
			cfg.ComposeBin = candidates
		}
	}
}

// resolveBinary picks the first usable delegate candidate and exports the
// detected-binary key for hooks and child processes.
func resolveBinary(ctx context.Context, cfg *config.TugConfig, override []string) (compose.Candidate, error) {
	candidates := compose.EffectiveCandidates(override, cfg.CandidateList())

	binary, err := compose.NewResolver().Resolve(ctx, candidates)
	if err != nil {
		return compose.Candidate{}, err
	}

	if err := compose.ExportDetected(cfg.KeyPrefix, binary); err != nil {
		return compose.Candidate{}, err
	}

	return binary, nil
}

// runDelegate is the pipeline behind the root command and every composite
// subcommand: settings, env layers, data directories, binary resolution,
// then the orchestrated hook and delegate sequence. A nonzero sequence
// status is returned as an ExitStatusError so main can carry it through.
func runDelegate(ctx context.Context, opts *runOptions, passthrough []string, steps []compose.Step, cleanStore bool) error {
	cfg, merged, err := prepare(opts)
	if err != nil {
		return err
	}
	defer zap.L().Sync() //nolint:errcheck // Sync errors on stderr are expected and harmless

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	cfg.ExportEnv()

	binary, err := resolveBinary(ctx, cfg, opts.composeBin)
	if err != nil {
		return err
	}

	plan := &compose.Plan{
		Binary: binary,
		Common: compose.CommonArgs(cfg.Project, merged.Profiles, merged.Files, passthrough),
		Steps:  steps,
		Dir:    cfg.BaseDir,
	}

	storeDir := ""
	if cleanStore {
		storeDir = cfg.StoreDir
	}

	if status := orchestrate.New(cfg.KeyPrefix, opts.hookNames).Run(ctx, plan, storeDir); status != 0 {
		return core.NewExitStatusError(status)
	}
	return nil
}
