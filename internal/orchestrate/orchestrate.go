// Package orchestrate sequences the hooks and delegate steps of one logical
// command and aggregates their exit statuses.
//
// The stages run strictly in order: global before-hooks, scoped
// before-hooks, the delegate steps, scoped after-hooks, global after-hooks.
// A failing before-hook aborts everything that follows, because no delegate
// has run yet. Once the delegate sequence has started, the global
// after-hooks always run, whatever the delegate's outcome, so cleanup and
// notification hooks are never skipped. Scoped after-hooks and the store
// cleanup are tied to delegate success.
package orchestrate

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/dorcha-inc/tug/internal/compose"
	"github.com/dorcha-inc/tug/internal/core"
	"github.com/dorcha-inc/tug/internal/hook"
)

// Orchestrator drives one logical command to completion.
type Orchestrator struct {
	runner    core.CommandRunner
	hooks     *hook.Runner
	hookNames []string
	goos      string
}

// New creates an orchestrator backed by os/exec. hookNames are the
// caller-declared hook names, in the order their scoped hooks run.
func New(keyPrefix string, hookNames []string) *Orchestrator {
	return NewWithRunner(keyPrefix, hookNames, core.NewCommandRunner())
}

// NewWithRunner creates an orchestrator with a custom command runner, used
// for both delegate steps and hooks. This is useful for testing with mocked
// command execution.
func NewWithRunner(keyPrefix string, hookNames []string, runner core.CommandRunner) *Orchestrator {
	return &Orchestrator{
		runner:    runner,
		hooks:     hook.NewRunnerWithCommandRunner(keyPrefix, runner),
		hookNames: hookNames,
		goos:      runtime.GOOS,
	}
}

// Run executes the plan and returns the command's final exit status. A
// non-empty storeDir is cleaned out after the whole delegate sequence
// succeeds; a cleanup failure is logged and never changes the status.
//
// The final status is the first nonzero among the delegate steps if any,
// otherwise the first nonzero scoped after-hook, otherwise the first nonzero
// global after-hook. A failing before-hook returns its status directly.
func (o *Orchestrator) Run(ctx context.Context, plan *compose.Plan, storeDir string) int {
	if status := o.runBeforeHooks(ctx, plan.Dir); status != 0 {
		return status
	}

	delegateStatus := o.runSteps(ctx, plan)

	if delegateStatus == 0 && storeDir != "" {
		if err := core.RemoveDirContents(storeDir); err != nil {
			zap.L().Warn("Failed to clean store directory", zap.String("dir", storeDir), zap.Error(err))
		} else {
			zap.L().Debug("Cleaned store directory", zap.String("dir", storeDir))
		}
	}

	scopedStatus := 0
	if delegateStatus == 0 {
		scopedStatus = o.runScopedAfterHooks(ctx, plan.Dir)
	}

	globalStatus := o.runGlobalAfterHooks(ctx, plan.Dir)

	switch {
	case delegateStatus != 0:
		return delegateStatus
	case scopedStatus != 0:
		return scopedStatus
	default:
		return globalStatus
	}
}

// runBeforeHooks runs the global before-hooks, then each declared hook
// name's scoped before-hooks in caller order. The first failure aborts the
// stage.
func (o *Orchestrator) runBeforeHooks(ctx context.Context, dir string) int {
	for _, h := range hook.Discover(dir, hook.StageBefore, "", o.goos) {
		if status := o.hooks.Run(ctx, h, dir); status != 0 {
			return status
		}
	}

	for _, scope := range o.hookNames {
		for _, h := range hook.Discover(dir, hook.StageBefore, scope, o.goos) {
			if status := o.hooks.Run(ctx, h, dir); status != 0 {
				return status
			}
		}
	}

	return 0
}

// runSteps runs the plan's delegate steps in order, stopping at the first
// failure. Each step inherits the parent's standard streams and the process
// environment the merger prepared.
func (o *Orchestrator) runSteps(ctx context.Context, plan *compose.Plan) int {
	for _, step := range plan.Steps {
		zap.L().Debug("Running delegate step",
			zap.String("step", step.Name),
			zap.String("command", plan.Render(step)))

		cmd := o.runner.CommandContext(ctx, plan.Binary.Argv[0], plan.StepArgs(step)...)
		cmd.SetDir(plan.Dir)
		cmd.InheritStdio()

		status := core.ExitStatus(cmd.Run())
		core.LogStepResult("step", step.Name, status)
		if status != 0 {
			return status
		}
	}

	return 0
}

// runScopedAfterHooks runs each declared hook name's scoped after-hooks in
// caller order. The first failure stops the remaining scoped hooks but is
// not allowed to prevent the global after-hooks.
func (o *Orchestrator) runScopedAfterHooks(ctx context.Context, dir string) int {
	for _, scope := range o.hookNames {
		for _, h := range hook.Discover(dir, hook.StageAfter, scope, o.goos) {
			if status := o.hooks.Run(ctx, h, dir); status != 0 {
				return status
			}
		}
	}

	return 0
}

// runGlobalAfterHooks runs every global after-hook regardless of individual
// failures, and reports the first nonzero status it saw.
func (o *Orchestrator) runGlobalAfterHooks(ctx context.Context, dir string) int {
	final := 0
	for _, h := range hook.Discover(dir, hook.StageAfter, "", o.goos) {
		if status := o.hooks.Run(ctx, h, dir); status != 0 && final == 0 {
			final = status
		}
	}

	return final
}
