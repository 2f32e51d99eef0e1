package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorcha-inc/tug/internal/compose"
	"github.com/dorcha-inc/tug/internal/core"
)

// writeHook drops an executable hook file into dir. Nothing actually runs
// it; these tests mock all command execution.
func writeHook(t *testing.T, dir, name string) {
	t.Helper()
	// #nosec G306 -- test file permissions are acceptable for temporary test files
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\nexit 0\n"), 0755))
}

// testPlan builds a plan around a fake delegate binary.
func testPlan(dir string, steps []compose.Step) *compose.Plan {
	return &compose.Plan{
		Binary: compose.Candidate{Raw: "compose-mock", Argv: []string{"compose-mock"}},
		Common: []string{"--env-file", ".env"},
		Steps:  steps,
		Dir:    dir,
	}
}

// calledNames projects the recorded calls onto their base names, which for
// hooks is the hook file name and for the delegate is the binary name.
func calledNames(calls []core.MockCall) []string {
	names := make([]string, 0, len(calls))
	for _, call := range calls {
		names = append(names, filepath.Base(call.Name))
	}
	return names
}

// failByName builds a RunFunc failing the given base names with the given
// statuses.
func failByName(failures map[string]int) func(context.Context, core.MockCall) error {
	return func(ctx context.Context, call core.MockCall) error {
		if status, ok := failures[filepath.Base(call.Name)]; ok {
			return core.NewExitStatusError(status)
		}
		return nil
	}
}

// TestRun_FullSequence checks the stage order of a fully successful command:
// global befores, scoped befores, delegate, scoped afters, global afters.
func TestRun_FullSequence(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.before.sh")
	writeHook(t, dir, "tug.before.db.sh")
	writeHook(t, dir, "tug.after.db.sh")
	writeHook(t, dir, "tug.after.sh")

	mock := &core.MockCommandRunner{}
	orch := NewWithRunner("TUG_", []string{"db"}, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.PassthroughSteps()), "")
	assert.Equal(t, 0, status)

	assert.Equal(t, []string{
		"tug.before.sh",
		"tug.before.db.sh",
		"compose-mock",
		"tug.after.db.sh",
		"tug.after.sh",
	}, calledNames(mock.Calls))
}

// TestRun_GlobalBeforeHookFailureAbortsAll checks that a failing global
// before-hook prevents every later stage, including global after-hooks,
// because no delegate ever ran.
func TestRun_GlobalBeforeHookFailureAbortsAll(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.before.sh")
	writeHook(t, dir, "tug.after.sh")

	mock := &core.MockCommandRunner{RunFunc: failByName(map[string]int{"tug.before.sh": 3})}
	orch := NewWithRunner("TUG_", nil, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.PassthroughSteps()), "")
	assert.Equal(t, 3, status)
	assert.Equal(t, []string{"tug.before.sh"}, calledNames(mock.Calls))
}

// TestRun_ScopedBeforeHookFailure checks that a failing scoped before-hook
// aborts before the delegate.
func TestRun_ScopedBeforeHookFailure(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.before.sh")
	writeHook(t, dir, "tug.before.db.sh")

	mock := &core.MockCommandRunner{RunFunc: failByName(map[string]int{"tug.before.db.sh": 4})}
	orch := NewWithRunner("TUG_", []string{"db"}, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.PassthroughSteps()), "")
	assert.Equal(t, 4, status)
	assert.Equal(t, []string{"tug.before.sh", "tug.before.db.sh"}, calledNames(mock.Calls))
}

// TestRun_DelegateFailureRunsGlobalAfters checks the asymmetry: a failing
// delegate skips scoped after-hooks but global after-hooks still run.
func TestRun_DelegateFailureRunsGlobalAfters(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.after.db.sh")
	writeHook(t, dir, "tug.after.sh")

	mock := &core.MockCommandRunner{RunFunc: failByName(map[string]int{"compose-mock": 2})}
	orch := NewWithRunner("TUG_", []string{"db"}, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.PassthroughSteps()), "")
	assert.Equal(t, 2, status)
	assert.Equal(t, []string{"compose-mock", "tug.after.sh"}, calledNames(mock.Calls))
}

// TestRun_CompositeSecondStepFailure walks the canonical clean-with-images
// failure: the remove step succeeds, the tear-down step fails with status 2,
// the store directory survives, and global after-hooks still run.
func TestRun_CompositeSecondStepFailure(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.after.sh")

	storeDir := t.TempDir()
	// #nosec G306 -- test file permissions are acceptable for temporary test files
	require.NoError(t, os.WriteFile(filepath.Join(storeDir, "state.json"), []byte("{}"), 0644))

	mock := &core.MockCommandRunner{
		RunFunc: func(ctx context.Context, call core.MockCall) error {
			if call.Name == "compose-mock" && slices.Contains(call.Args, "down") {
				return core.NewExitStatusError(2)
			}
			return nil
		},
	}
	orch := NewWithRunner("TUG_", nil, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.CleanSteps(true)), storeDir)
	assert.Equal(t, 2, status)

	assert.Equal(t, []string{"compose-mock", "compose-mock", "tug.after.sh"}, calledNames(mock.Calls))
	assert.Contains(t, mock.Calls[0].Args, "rm")
	assert.Contains(t, mock.Calls[1].Args, "down")

	// The store cleanup was skipped.
	assert.FileExists(t, filepath.Join(storeDir, "state.json"))
}

// TestRun_CompositeFirstStepFailureSkipsSecond checks that a failing first
// delegate step prevents the second step entirely.
func TestRun_CompositeFirstStepFailureSkipsSecond(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.after.sh")

	mock := &core.MockCommandRunner{
		RunFunc: func(ctx context.Context, call core.MockCall) error {
			if slices.Contains(call.Args, "rm") {
				return core.NewExitStatusError(7)
			}
			return nil
		},
	}
	orch := NewWithRunner("TUG_", nil, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.CleanSteps(false)), "")
	assert.Equal(t, 7, status)

	assert.Equal(t, []string{"compose-mock", "tug.after.sh"}, calledNames(mock.Calls))
	for _, call := range mock.Calls {
		assert.NotContains(t, call.Args, "down")
	}
}

// TestRun_StoreCleanedAfterSuccess checks that the store directory is
// emptied, not deleted, once every delegate step succeeds.
func TestRun_StoreCleanedAfterSuccess(t *testing.T) {
	dir := t.TempDir()

	storeDir := t.TempDir()
	// #nosec G306 -- test file permissions are acceptable for temporary test files
	require.NoError(t, os.WriteFile(filepath.Join(storeDir, "state.json"), []byte("{}"), 0644))
	// #nosec G301 -- test directory permissions are acceptable for temporary test files
	require.NoError(t, os.MkdirAll(filepath.Join(storeDir, "volumes", "db"), 0755))

	mock := &core.MockCommandRunner{}
	orch := NewWithRunner("TUG_", nil, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.CleanSteps(false)), storeDir)
	assert.Equal(t, 0, status)

	entries, err := os.ReadDir(storeDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestRun_ScopedAfterFailure checks that a failing scoped after-hook stops
// the remaining scoped hooks but the global after-hooks still run, and its
// status becomes the command status.
func TestRun_ScopedAfterFailure(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.after.db.sh")
	writeHook(t, dir, "tug.after.web.sh")
	writeHook(t, dir, "tug.after.sh")

	mock := &core.MockCommandRunner{RunFunc: failByName(map[string]int{"tug.after.db.sh": 4})}
	orch := NewWithRunner("TUG_", []string{"db", "web"}, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.PassthroughSteps()), "")
	assert.Equal(t, 4, status)

	assert.Equal(t, []string{"compose-mock", "tug.after.db.sh", "tug.after.sh"}, calledNames(mock.Calls))
}

// TestRun_GlobalAfterHooksAllRun checks that global after-hooks keep running
// past a failure, reporting the first nonzero status.
func TestRun_GlobalAfterHooksAllRun(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.after.sh")
	writeHook(t, dir, "tug.after.+bash.sh")

	mock := &core.MockCommandRunner{RunFunc: failByName(map[string]int{"tug.after.sh": 6})}
	orch := NewWithRunner("TUG_", nil, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.PassthroughSteps()), "")
	assert.Equal(t, 6, status)

	// The unconstrained hook fails first, the interpreter-constrained one
	// still runs (through its interpreter).
	assert.Equal(t, []string{"compose-mock", "tug.after.sh", "bash"}, calledNames(mock.Calls))
}

// TestRun_DelegateStatusTakesPrecedence checks that when both the delegate
// and an after-hook fail, the delegate's status wins.
func TestRun_DelegateStatusTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "tug.after.sh")

	mock := &core.MockCommandRunner{RunFunc: failByName(map[string]int{
		"compose-mock": 2,
		"tug.after.sh": 6,
	})}
	orch := NewWithRunner("TUG_", nil, mock)

	status := orch.Run(context.Background(), testPlan(dir, compose.PassthroughSteps()), "")
	assert.Equal(t, 2, status)
}

// TestRun_DelegateCallShape checks the delegate invocation itself: working
// directory, argument vector, and inherited environment.
func TestRun_DelegateCallShape(t *testing.T) {
	dir := t.TempDir()

	mock := &core.MockCommandRunner{}
	orch := NewWithRunner("TUG_", nil, mock)

	plan := testPlan(dir, compose.PassthroughSteps())
	plan.Common = []string{"--project-name", "web", "up", "-d"}

	status := orch.Run(context.Background(), plan, "")
	assert.Equal(t, 0, status)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Equal(t, "compose-mock", call.Name)
	assert.Equal(t, []string{"--project-name", "web", "up", "-d"}, call.Args)
	assert.Equal(t, dir, call.Dir)
	// A nil env means the child inherits the merged process environment.
	assert.Nil(t, call.Env)
}
