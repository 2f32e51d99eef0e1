// Package compose resolves which delegate binary serves an invocation and
// builds the argument vectors handed to it.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"mvdan.cc/sh/v3/shell"

	"github.com/dorcha-inc/tug/internal/core"
)

const (
	// ProbeTimeout bounds each candidate liveness probe.
	ProbeTimeout = 2 * time.Second

	// ProbeArg is the no-op argument a usable candidate must exit zero on.
	ProbeArg = "version"

	// detectedBinSuffix names the derived key recording the selected candidate.
	detectedBinSuffix = "DETECTED_BIN"
)

// DefaultCandidates returns the built-in candidate invocation strings, in
// priority order: the compose plugin form first, the standalone binary second.
func DefaultCandidates() []string {
	return []string{"docker compose", "docker-compose"}
}

// Candidate is one delegate invocation: the raw string as supplied and its
// shell-split argument vector (program plus fixed leading arguments).
type Candidate struct {
	Raw  string
	Argv []string
}

// ParseCandidate splits an invocation string into its argument vector using
// shell word-splitting rules, so quoted program paths containing spaces
// survive intact.
func ParseCandidate(raw string) (Candidate, error) {
	fields, err := shell.Fields(raw, nil)
	if err != nil {
		return Candidate{}, fmt.Errorf("failed to split candidate %q: %w", raw, err)
	}
	if len(fields) == 0 {
		return Candidate{}, fmt.Errorf("empty candidate")
	}
	return Candidate{Raw: raw, Argv: fields}, nil
}

// EffectiveCandidates returns the candidate strings to try, in priority
// order. A non-empty override replaces everything else; otherwise a non-empty
// declared list replaces the built-in defaults.
func EffectiveCandidates(override, declared []string) []string {
	if len(override) > 0 {
		return override
	}
	if len(declared) > 0 {
		return declared
	}
	return DefaultCandidates()
}

// NoUsableBinaryError reports that every candidate failed its liveness probe.
type NoUsableBinaryError struct {
	Attempted []string
}

// Error returns the error message for the NoUsableBinaryError
func (e *NoUsableBinaryError) Error() string {
	return fmt.Sprintf("no usable delegate binary found, tried: %s", strings.Join(e.Attempted, ", "))
}

// NewNoUsableBinaryError creates a new NoUsableBinaryError
func NewNoUsableBinaryError(attempted []string) *NoUsableBinaryError {
	return &NoUsableBinaryError{Attempted: attempted}
}

// Interface guard for NoUsableBinaryError
var _ error = &NoUsableBinaryError{}

// Resolver probes candidate invocations and selects the first usable one.
type Resolver struct {
	clock  clockwork.Clock
	runner core.CommandRunner
}

// NewResolver creates a new resolver with a real clock
func NewResolver() *Resolver {
	return NewResolverWithClock(clockwork.NewRealClock())
}

// NewResolverWithClock creates a new resolver with a custom clock
// This is useful for testing with a fake clock
func NewResolverWithClock(clock clockwork.Clock) *Resolver {
	return NewResolverWithClockAndRunner(clock, core.NewCommandRunner())
}

// NewResolverWithClockAndRunner creates a new resolver with a custom clock and
// command runner. This is useful for testing with a fake clock and mocked
// command execution
func NewResolverWithClockAndRunner(clock clockwork.Clock, runner core.CommandRunner) *Resolver {
	return &Resolver{
		clock:  clock,
		runner: runner,
	}
}

// Resolve returns the first candidate whose liveness probe succeeds. Given
// identical probe outcomes, the selection is deterministic: strictly the
// first success in candidate order. When no candidate succeeds it returns a
// NoUsableBinaryError listing everything attempted.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) (Candidate, error) {
	attempted := make([]string, 0, len(candidates))

	for _, raw := range candidates {
		attempted = append(attempted, raw)

		candidate, err := ParseCandidate(raw)
		if err != nil {
			zap.L().Warn("Skipping malformed candidate", zap.String("candidate", raw), zap.Error(err))
			continue
		}

		if r.probe(ctx, candidate) {
			zap.L().Debug("Selected delegate binary", zap.String("candidate", candidate.Raw))
			return candidate, nil
		}
	}

	return Candidate{}, NewNoUsableBinaryError(attempted)
}

// probe runs the candidate with the probe argument under the probe timeout.
// Success is solely a zero exit status; output is discarded. Timeouts and
// spawn failures count as probe failure, not as fatal errors.
func (r *Resolver) probe(ctx context.Context, candidate Candidate) bool {
	probeCtx, cancel := clockwork.WithTimeout(ctx, r.clock, ProbeTimeout)
	defer cancel()

	args := append(slices.Clone(candidate.Argv[1:]), ProbeArg)
	cmd := r.runner.CommandContext(probeCtx, candidate.Argv[0], args...)
	cmd.DiscardOutput()

	if err := cmd.Run(); err != nil {
		zap.L().Debug("Candidate probe failed", zap.String("candidate", candidate.Raw), zap.Error(err))
		return false
	}

	return true
}

// Diagnosis is the result of probing one candidate for reporting purposes.
type Diagnosis struct {
	Candidate string
	Usable    bool
	Version   string
}

// Diagnose probes every candidate and, for the usable ones, captures the
// delegate's short version string.
func (r *Resolver) Diagnose(ctx context.Context, candidates []string) []Diagnosis {
	diagnoses := make([]Diagnosis, 0, len(candidates))

	for _, raw := range candidates {
		diagnosis := Diagnosis{Candidate: raw}

		candidate, err := ParseCandidate(raw)
		if err == nil && r.probe(ctx, candidate) {
			diagnosis.Usable = true
			diagnosis.Version = r.probeVersion(ctx, candidate)
		}

		diagnoses = append(diagnoses, diagnosis)
	}

	return diagnoses
}

// probeVersion asks a usable candidate for its short version string. An
// empty string means the candidate did not cooperate, which is not an error.
func (r *Resolver) probeVersion(ctx context.Context, candidate Candidate) string {
	probeCtx, cancel := clockwork.WithTimeout(ctx, r.clock, ProbeTimeout)
	defer cancel()

	var stdout bytes.Buffer
	args := append(slices.Clone(candidate.Argv[1:]), ProbeArg, "--short")
	cmd := r.runner.CommandContext(probeCtx, candidate.Argv[0], args...)
	cmd.DiscardOutput()
	cmd.SetStdout(&stdout)

	if err := cmd.Run(); err != nil {
		return ""
	}

	return strings.TrimSpace(stdout.String())
}

// DetectedBinKey returns the derived key recording the selected candidate.
func DetectedBinKey(prefix string) string {
	return prefix + detectedBinSuffix
}

// ExportDetected writes the selected candidate into the process environment
// for the delegate and hooks to observe.
func ExportDetected(prefix string, candidate Candidate) error {
	key := DetectedBinKey(prefix)
	if err := os.Setenv(key, candidate.Raw); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
