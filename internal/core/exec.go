package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// CommandRunner is an interface for creating child-process commands, allowing
// for testing with mocks.
type CommandRunner interface {
	CommandContext(ctx context.Context, name string, arg ...string) Command
}

// Command is the subset of exec.Cmd that tug needs, allowing for testing with mocks.
type Command interface {
	SetDir(dir string)
	SetEnv(env []string)
	SetStdout(w io.Writer)
	SetStderr(w io.Writer)
	InheritStdio()
	DiscardOutput()
	Start() error
	Wait() error
	Run() error
}

// execCommand wraps exec.Cmd to implement the Command interface
type execCommand struct {
	*exec.Cmd
}

func (e *execCommand) SetDir(dir string) {
	e.Dir = dir
}

func (e *execCommand) SetEnv(env []string) {
	e.Env = env
}

func (e *execCommand) SetStdout(w io.Writer) {
	e.Stdout = w
}

func (e *execCommand) SetStderr(w io.Writer) {
	e.Stderr = w
}

// InheritStdio connects the child directly to the parent's standard streams,
// so interactive delegates and hooks behave as if run by hand.
func (e *execCommand) InheritStdio() {
	e.Stdin = os.Stdin
	e.Stdout = os.Stdout
	e.Stderr = os.Stderr
}

func (e *execCommand) DiscardOutput() {
	e.Stdout = io.Discard
	e.Stderr = io.Discard
}

// Explicitly forward methods from *exec.Cmd to satisfy the Command interface
// (even though they're already available through embedding, this makes it explicit for the linter)
func (e *execCommand) Start() error {
	return e.Cmd.Start()
}

func (e *execCommand) Wait() error {
	return e.Cmd.Wait()
}

func (e *execCommand) Run() error {
	return e.Cmd.Run()
}

// Interface guard for execCommand
var _ Command = &execCommand{}

// execCommandRunner wraps exec.CommandContext to implement CommandRunner
type execCommandRunner struct{}

func (e *execCommandRunner) CommandContext(ctx context.Context, name string, arg ...string) Command {
	return &execCommand{Cmd: exec.CommandContext(ctx, name, arg...)}
}

// Interface guard for execCommandRunner
var _ CommandRunner = &execCommandRunner{}

// NewCommandRunner returns the CommandRunner backed by os/exec.
func NewCommandRunner() CommandRunner {
	return &execCommandRunner{}
}

// ExitStatusError reports a nonzero child exit status when the underlying
// error does not carry one (mocked commands, synthetic failures, or a status
// that must cross a package boundary without losing its value).
type ExitStatusError struct {
	Status int `json:"status"`
}

// Error returns the error message for the ExitStatusError
func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.Status)
}

// NewExitStatusError creates a new ExitStatusError
func NewExitStatusError(status int) *ExitStatusError {
	return &ExitStatusError{Status: status}
}

// Interface guard for ExitStatusError
var _ error = &ExitStatusError{}

// ExitStatus maps the error returned by Command.Run to a process exit status.
// nil maps to 0. An exec.ExitError carries the child's own status; a child
// killed by a signal reports no status and maps to 1, so a signalled child is
// never mistaken for success. Spawn failures also map to 1.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}

	var statusErr *ExitStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		// ExitCode is -1 when the child was terminated by a signal.
		return 1
	}

	return 1
}

// MockCall records one command created through a MockCommandRunner.
type MockCall struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Stdout io.Writer
}

// MockCommandRunner is a mock implementation of CommandRunner for testing.
// It records every call and returns scripted results, and can be used across
// packages to test code that spawns child processes.
type MockCommandRunner struct {
	Calls []MockCall
	// RunFunc decides the scripted outcome for a call. A nil RunFunc means
	// every command succeeds.
	RunFunc func(ctx context.Context, call MockCall) error
}

func (m *MockCommandRunner) CommandContext(ctx context.Context, name string, arg ...string) Command {
	return &mockCommand{
		runner: m,
		ctx:    ctx,
		call:   MockCall{Name: name, Args: arg},
	}
}

// Interface guard
var _ CommandRunner = &MockCommandRunner{}

type mockCommand struct {
	runner *MockCommandRunner
	ctx    context.Context
	call   MockCall
}

func (c *mockCommand) SetDir(dir string) { c.call.Dir = dir }

func (c *mockCommand) SetEnv(env []string) { c.call.Env = env }

func (c *mockCommand) SetStdout(w io.Writer) { c.call.Stdout = w }

func (c *mockCommand) SetStderr(w io.Writer) {}

func (c *mockCommand) InheritStdio() {}

func (c *mockCommand) DiscardOutput() {}

func (c *mockCommand) Start() error {
	return nil
}

func (c *mockCommand) Wait() error {
	return c.Run()
}

func (c *mockCommand) Run() error {
	c.runner.Calls = append(c.runner.Calls, c.call)
	if c.runner.RunFunc != nil {
		return c.runner.RunFunc(c.ctx, c.call)
	}
	return nil
}

// Interface guard
var _ Command = &mockCommand{}
