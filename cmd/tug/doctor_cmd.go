package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/dorcha-inc/tug/internal/compose"
	"github.com/dorcha-inc/tug/internal/tui"
)

// minComposeVersion is the oldest delegate version tug is known to work
// with; older ones still run but are flagged.
const minComposeVersion = "v2.0.0"

// newDoctorCmd creates the doctor command
func newDoctorCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Probe delegate candidates and report which are usable",
		Long: `Doctor probes every configured delegate candidate the same way a normal
invocation would, reports which ones respond, and shows the version each
one reports. The command fails when no candidate is usable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), opts)
		},
	}

	opts.registerRunFlags(cmd)

	return cmd
}

// runDoctor probes all candidates and prints one result line per candidate.
func runDoctor(ctx context.Context, opts *runOptions) error {
	cfg, merged, err := prepare(opts)
	if err != nil {
		return err
	}
	defer zap.L().Sync() //nolint:errcheck // Sync errors on stderr are expected and harmless

	candidates := compose.EffectiveCandidates(opts.composeBin, cfg.CandidateList())

	tui.Progress("Probing delegate candidates")
	diagnoses := compose.NewResolver().Diagnose(ctx, candidates)

	usable := 0
	for _, diagnosis := range diagnoses {
		if diagnosis.Usable {
			usable++
		}
	}
	if usable > 0 {
		tui.ProgressSuccess(fmt.Sprintf("%d of %d candidates usable", usable, len(diagnoses)))
	} else {
		tui.ProgressFail("no usable candidate")
	}

	for _, diagnosis := range diagnoses {
		switch {
		case !diagnosis.Usable:
			tui.Failuref("%s: not usable\n", diagnosis.Candidate)
		case diagnosis.Version == "":
			tui.Successf("%s: usable\n", diagnosis.Candidate)
		case belowMinVersion(diagnosis.Version):
			tui.Warnf("%s: version %s is older than %s\n", diagnosis.Candidate, diagnosis.Version, minComposeVersion)
		default:
			tui.Successf("%s: version %s\n", diagnosis.Candidate, diagnosis.Version)
		}
	}

	if len(merged.Profiles) > 0 {
		tui.Mutedf("profiles: %s\n", strings.Join(merged.Profiles, ", "))
	}
	if len(merged.Files) > 0 {
		tui.Mutedf("env layers: %s\n", strings.Join(merged.Files, ", "))
	}

	if usable == 0 {
		return compose.NewNoUsableBinaryError(candidates)
	}
	return nil
}

// belowMinVersion reports whether a probed short version string is older
// than minComposeVersion. Strings that do not parse as a version are not
// flagged.
func belowMinVersion(reported string) bool {
	token := strings.TrimSpace(reported)
	if token == "" {
		return false
	}
	if !strings.HasPrefix(token, "v") {
		token = "v" + token
	}
	if !semver.IsValid(token) {
		return false
	}
	return semver.Compare(token, minComposeVersion) < 0
}
