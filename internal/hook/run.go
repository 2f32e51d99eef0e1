package hook

import (
	"context"
	"os"

	"github.com/dorcha-inc/tug/internal/core"
)

// Suffixes of the context variables every hook child receives, appended to
// the configured key prefix. They exist only in the hook's environment,
// never in the parent's.
const (
	stageSuffix    = "HOOK_STAGE"
	scopeSuffix    = "HOOK_SCOPE"
	platformSuffix = "HOOK_PLATFORM"
	binarySuffix   = "HOOK_BINARY"
	fileSuffix     = "HOOK_FILE"
)

// Runner executes hooks as child processes with the parent's standard
// streams attached.
type Runner struct {
	runner    core.CommandRunner
	keyPrefix string
}

// NewRunner creates a hook runner backed by os/exec.
func NewRunner(keyPrefix string) *Runner {
	return NewRunnerWithCommandRunner(keyPrefix, core.NewCommandRunner())
}

// NewRunnerWithCommandRunner creates a hook runner with a custom command
// runner. This is useful for testing with mocked command execution.
func NewRunnerWithCommandRunner(keyPrefix string, runner core.CommandRunner) *Runner {
	return &Runner{
		runner:    runner,
		keyPrefix: keyPrefix,
	}
}

// Run executes one hook in dir and returns its exit status. The hook
// inherits the parent's environment plus the hook context variables, and the
// parent's stdin/stdout/stderr so it can interact with the terminal. A hook
// killed by a signal reports a nonzero status, never success.
func (r *Runner) Run(ctx context.Context, h Hook, dir string) int {
	name, args := h.Invocation()

	cmd := r.runner.CommandContext(ctx, name, args...)
	cmd.SetDir(dir)
	cmd.SetEnv(append(os.Environ(), r.contextEnv(h)...))
	cmd.InheritStdio()

	status := core.ExitStatus(cmd.Run())
	core.LogStepResult("hook", h.Name, status)
	return status
}

// contextEnv builds the hook context variables describing what matched.
func (r *Runner) contextEnv(h Hook) []string {
	return []string{
		r.keyPrefix + stageSuffix + "=" + string(h.Stage),
		r.keyPrefix + scopeSuffix + "=" + h.Scope,
		r.keyPrefix + platformSuffix + "=" + h.Platform,
		r.keyPrefix + binarySuffix + "=" + h.Binary,
		r.keyPrefix + fileSuffix + "=" + h.Path,
	}
}
