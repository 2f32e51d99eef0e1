// Package testing provides shared helpers for tug's tests.
package testing

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dorcha-inc/tug/internal/core"
)

// CapturedOutput redirects the process-wide stdout and stderr into pipes so
// tests can assert on what a command printed to each stream.
type CapturedOutput struct {
	originalStdout *os.File
	originalStderr *os.File
	stdoutR        *os.File
	stderrR        *os.File
	stdoutW        *os.File // Write end (closed by Stop so ReadAll can complete)
	stderrW        *os.File
}

// NewCapturedOutput starts capturing stdout and stderr. Callers must invoke
// Stop exactly once to restore the streams and collect the output.
func NewCapturedOutput() (*CapturedOutput, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		core.LogDeferredError(stdoutR.Close)
		core.LogDeferredError(stdoutW.Close)
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	return &CapturedOutput{
		originalStdout: originalStdout,
		originalStderr: originalStderr,
		stdoutR:        stdoutR,
		stderrR:        stderrR,
		stdoutW:        stdoutW,
		stderrW:        stderrW,
	}, nil
}

// Stop restores the original streams and returns the captured stdout and
// stderr contents.
func (c *CapturedOutput) Stop() (string, string, error) {
	// Restore original streams first so late writers hit the real streams
	os.Stdout = c.originalStdout
	os.Stderr = c.originalStderr

	// Close write ends to signal EOF to ReadAll
	core.LogDeferredError(c.stdoutW.Close)
	core.LogDeferredError(c.stderrW.Close)

	// Small delay so pending writes from background goroutines complete
	time.Sleep(10 * time.Millisecond)

	capturedStdout, err := io.ReadAll(c.stdoutR)
	if err != nil {
		core.LogDeferredError(c.stdoutR.Close)
		core.LogDeferredError(c.stderrR.Close)
		return "", "", fmt.Errorf("failed to read captured stdout: %w", err)
	}

	capturedStderr, err := io.ReadAll(c.stderrR)
	if err != nil {
		core.LogDeferredError(c.stdoutR.Close)
		core.LogDeferredError(c.stderrR.Close)
		return "", "", fmt.Errorf("failed to read captured stderr: %w", err)
	}

	core.LogDeferredError(c.stdoutR.Close)
	core.LogDeferredError(c.stderrR.Close)

	return string(capturedStdout), string(capturedStderr), nil
}
