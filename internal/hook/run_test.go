package hook

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorcha-inc/tug/internal/core"
)

// TestRunner_InterpreterInvocation checks that a binary-constrained hook runs
// through its interpreter with the context variables set.
func TestRunner_InterpreterInvocation(t *testing.T) {
	mock := &core.MockCommandRunner{}
	runner := NewRunnerWithCommandRunner("TUG_", mock)

	h := Hook{
		Name:     "tug.before.db.linux+bash.sh",
		Path:     "/work/tug.before.db.linux+bash.sh",
		Stage:    StageBefore,
		Scope:    "db",
		Platform: "linux",
		Binary:   "bash",
	}

	status := runner.Run(context.Background(), h, "/work")
	assert.Equal(t, 0, status)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Equal(t, "bash", call.Name)
	assert.Equal(t, []string{"/work/tug.before.db.linux+bash.sh"}, call.Args)
	assert.Equal(t, "/work", call.Dir)

	assert.Contains(t, call.Env, "TUG_HOOK_STAGE=before")
	assert.Contains(t, call.Env, "TUG_HOOK_SCOPE=db")
	assert.Contains(t, call.Env, "TUG_HOOK_PLATFORM=linux")
	assert.Contains(t, call.Env, "TUG_HOOK_BINARY=bash")
	assert.Contains(t, call.Env, "TUG_HOOK_FILE=/work/tug.before.db.linux+bash.sh")
}

// TestRunner_DirectInvocation checks that an unconstrained hook runs the file
// itself with empty constraint variables.
func TestRunner_DirectInvocation(t *testing.T) {
	mock := &core.MockCommandRunner{}
	runner := NewRunnerWithCommandRunner("TUG_", mock)

	h := Hook{
		Name:  "tug.after.sh",
		Path:  "/work/tug.after.sh",
		Stage: StageAfter,
	}

	status := runner.Run(context.Background(), h, "/work")
	assert.Equal(t, 0, status)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Equal(t, "/work/tug.after.sh", call.Name)
	assert.Empty(t, call.Args)

	assert.Contains(t, call.Env, "TUG_HOOK_STAGE=after")
	assert.Contains(t, call.Env, "TUG_HOOK_SCOPE=")
	assert.Contains(t, call.Env, "TUG_HOOK_PLATFORM=")
	assert.Contains(t, call.Env, "TUG_HOOK_BINARY=")
}

func TestRunner_FailureStatus(t *testing.T) {
	mock := &core.MockCommandRunner{
		RunFunc: func(ctx context.Context, call core.MockCall) error {
			return core.NewExitStatusError(5)
		},
	}
	runner := NewRunnerWithCommandRunner("TUG_", mock)

	status := runner.Run(context.Background(), Hook{Name: "tug.before.sh", Path: "/work/tug.before.sh"}, "/work")
	assert.Equal(t, 5, status)
}

// TestRunner_RealScript runs an actual hook script and checks that it
// observes the context variables and the working directory.
func TestRunner_RealScript(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping shell hook test on Windows")
	}

	dir := t.TempDir()
	script := "#!/bin/sh\nprintf '%s' \"$TUG_HOOK_STAGE\" > stage.txt\n"
	// #nosec G306 -- test file permissions are acceptable for temporary test files
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tug.before.sh"), []byte(script), 0755))

	h, ok := ParseName("tug.before.sh")
	require.True(t, ok)
	path, err := filepath.Abs(filepath.Join(dir, "tug.before.sh"))
	require.NoError(t, err)
	h.Path = path

	status := NewRunner("TUG_").Run(context.Background(), h, dir)
	assert.Equal(t, 0, status)

	// #nosec G304 -- path is constructed from test temp directory, safe
	got, err := os.ReadFile(filepath.Join(dir, "stage.txt"))
	require.NoError(t, err)
	assert.Equal(t, "before", string(got))
}
