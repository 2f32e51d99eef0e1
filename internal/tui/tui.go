// Package tui provides terminal UI utilities using charmbracelet libraries.
// It automatically detects terminal capabilities and disables rich output when piping or redirecting.
//
// The TUI package is designed to be script-friendly:
//   - Progress messages only appear when stderr is a TTY
//   - Colors are automatically disabled when piping or when NO_COLOR is set
//   - Result markers degrade to plain text on dumb terminals
//
// Environment Variables:
//   - NO_COLOR or TUG_NO_COLOR: Disable colors (respects https://no-color.org/)
//   - TERM=dumb: Disable colors
//   - TUG_QUIET: Disable progress and info output
//
// Example usage:
//
//	// Progress message with a spinner (only shown in TTY)
//	tui.Progress("Probing docker compose...")
//	tui.ProgressSuccess("Found docker compose")
//
//	// Result lines for check-style commands
//	tui.Successf("delegate binary usable\n")
//	tui.Failuref("no delegate binary found\n")
package tui

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Color definitions using the basic ANSI palette
var (
	colorGreen  = lipgloss.ANSIColor(2) // ANSI green
	colorRed    = lipgloss.ANSIColor(1) // ANSI red
	colorYellow = lipgloss.ANSIColor(3) // ANSI yellow
	colorBlue   = lipgloss.ANSIColor(4) // ANSI blue
	colorGray   = lipgloss.ANSIColor(8) // ANSI gray (bright black)
)

// UI provides terminal UI functionality with automatic TTY detection
type UI struct {
	// stdoutIsTTY indicates if stdout is connected to a terminal
	stdoutIsTTY bool
	// stderrIsTTY indicates if stderr is connected to a terminal
	stderrIsTTY bool
	// enabled indicates if progress output should be shown (TTY + not disabled)
	enabled bool
	// colorEnabled indicates if colors should be used on stderr
	colorEnabled bool
	// stdoutColorEnabled indicates if colors should be used on stdout
	stdoutColorEnabled bool
	// currentSpinner tracks the current spinner state
	currentSpinner *spinnerState
}

type spinnerState struct {
	started time.Time
	ticker  clockwork.Ticker
	message string
	done    chan struct{}
}

var (
	// defaultUI is the default UI instance
	defaultUI    *UI
	spinnerClock clockwork.Clock = clockwork.NewRealClock()

	// stderrRenderer is a renderer that uses stderr for TTY detection
	// This allows colors to work on stderr even when stdout is piped
	stderrRenderer = lipgloss.NewRenderer(os.Stderr)
	// stdoutRenderer styles result lines written to stdout
	stdoutRenderer = lipgloss.NewRenderer(os.Stdout)

	// Styles for spinner completion markers on stderr
	successStyle = lipgloss.NewStyle().Renderer(stderrRenderer).Foreground(colorGreen).Bold(true)
	failureStyle = lipgloss.NewStyle().Renderer(stderrRenderer).Foreground(colorRed).Bold(true)

	// Styles for result lines on stdout
	okStyle    = lipgloss.NewStyle().Renderer(stdoutRenderer).Foreground(colorGreen).Bold(true)
	errStyle   = lipgloss.NewStyle().Renderer(stdoutRenderer).Foreground(colorRed).Bold(true)
	warnStyle  = lipgloss.NewStyle().Renderer(stdoutRenderer).Foreground(colorYellow).Bold(true)
	mutedStyle = lipgloss.NewStyle().Renderer(stdoutRenderer).Foreground(colorGray)
)

func init() {
	defaultUI = New()
}

// New creates a new UI instance with automatic TTY detection
func New() *UI {
	stdoutIsTTY := IsTerminal(os.Stdout)
	stderrIsTTY := IsTerminal(os.Stderr)
	stdinIsTTY := IsTerminal(os.Stdin)

	// Progress output is enabled if stderr is a TTY (progress goes to stderr).
	// If stdin is piped (not a TTY), suppress progress for clean pipeline usage.
	enabled := stderrIsTTY && stdinIsTTY && !isDisabled()

	return &UI{
		stdoutIsTTY:        stdoutIsTTY,
		stderrIsTTY:        stderrIsTTY,
		enabled:            enabled,
		colorEnabled:       stderrIsTTY && !isColorDisabled(),
		stdoutColorEnabled: stdoutIsTTY && !isColorDisabled(),
	}
}

// IsTerminal checks if a file descriptor is connected to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// isDisabled checks if UI output is explicitly disabled via environment variables
func isDisabled() bool {
	if val := os.Getenv("TUG_QUIET"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		return true // Any non-empty value means disabled
	}
	return false
}

// isColorDisabled checks if colors are explicitly disabled
func isColorDisabled() bool {
	// Check standard NO_COLOR environment variable (https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	if os.Getenv("TUG_NO_COLOR") != "" {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return true
	}
	return false
}

// Enabled returns whether progress output should be shown
func (u *UI) Enabled() bool {
	return u.enabled
}

// ColorEnabled returns whether colors should be used on stderr
func (u *UI) ColorEnabled() bool {
	return u.colorEnabled
}

// StdoutIsTTY returns whether stdout is a terminal
func (u *UI) StdoutIsTTY() bool {
	return u.stdoutIsTTY
}

// StderrIsTTY returns whether stderr is a terminal
func (u *UI) StderrIsTTY() bool {
	return u.stderrIsTTY
}

// Progress shows a progress message with a spinner
// The spinner animates automatically in the background
// Example: "Probing docker compose..."
func (u *UI) Progress(message string) {
	if !u.enabled {
		return
	}

	// If spinner already exists with same message, just update the frame
	if u.currentSpinner != nil && u.currentSpinner.message == message {
		u.printSpinnerFrame(u.currentSpinner)
		return
	}

	// If spinner exists with different message, stop it first
	if u.currentSpinner != nil {
		if u.currentSpinner.ticker != nil {
			u.currentSpinner.ticker.Stop()
		}
		if u.currentSpinner.done != nil {
			close(u.currentSpinner.done)
		}
		// Clear the spinner line
		fmt.Fprint(os.Stderr, "\r", ansi.EraseLine(2))
		u.currentSpinner = nil
		// Small delay to ensure goroutine has stopped
		time.Sleep(10 * time.Millisecond)
	}

	// Initialize new spinner with animation goroutine
	u.currentSpinner = &spinnerState{
		started: time.Now(),
		message: message,
		done:    make(chan struct{}),
		ticker:  spinnerClock.NewTicker(100 * time.Millisecond),
	}

	// Capture spinner state in closure to avoid race conditions
	state := u.currentSpinner

	// Print initial spinner frame immediately (don't wait for first tick)
	u.printSpinnerFrame(state)

	go func() {
		for {
			select {
			case <-state.ticker.Chan():
				u.printSpinnerFrame(state)
			case <-state.done:
				return
			}
		}
	}()
}

// printSpinnerFrame writes the current spinner frame and message to stderr
func (u *UI) printSpinnerFrame(state *spinnerState) {
	elapsed := time.Since(state.started)
	frame := int(elapsed/spinner.Line.FPS) % len(spinner.Line.Frames)
	spinnerChar := spinner.Line.Frames[frame]

	if !u.colorEnabled {
		spinnerChar = "..."
	}

	// Use stderrRenderer for spinner style so colors work even when stdout is piped
	spinnerStyle := lipgloss.NewStyle().Renderer(stderrRenderer).Foreground(colorBlue)
	if u.colorEnabled {
		fmt.Fprintf(os.Stderr, "\r%s %s", spinnerStyle.Render(spinnerChar), state.message)
	} else {
		fmt.Fprintf(os.Stderr, "\r%s %s", spinnerChar, state.message)
	}
}

// ProgressSuccess stops the spinner and shows a success message
// Uses a checkmark (✓) for success
func (u *UI) ProgressSuccess(message string) {
	if !u.enabled {
		return
	}

	if u.currentSpinner == nil {
		zap.L().Error("ProgressSuccess called without a spinner")
		return
	}

	u.finishSpinner("✓", successStyle, message)
}

// ProgressFail stops the spinner and shows a failure message
// Uses a cross (✗) for failure
func (u *UI) ProgressFail(message string) {
	if !u.enabled {
		return
	}

	if u.currentSpinner == nil {
		zap.L().Error("ProgressFail called without a spinner")
		return
	}

	u.finishSpinner("✗", failureStyle, message)
}

// finishSpinner stops the spinner animation, clears the spinner line and
// prints the completion marker with the message
func (u *UI) finishSpinner(symbol string, style lipgloss.Style, message string) {
	// Save message before stopping spinner
	displayMessage := message
	if displayMessage == "" {
		displayMessage = u.currentSpinner.message
	}

	// Stop the spinner animation (stop ticker first to prevent race)
	if u.currentSpinner.ticker != nil {
		u.currentSpinner.ticker.Stop()
	}
	if u.currentSpinner.done != nil {
		close(u.currentSpinner.done)
	}

	// Small delay to ensure goroutine has stopped printing
	time.Sleep(10 * time.Millisecond)

	// Clear spinner line: move to start of line and erase entire line
	fmt.Fprint(os.Stderr, "\r", ansi.EraseLine(2))
	u.currentSpinner = nil

	if displayMessage != "" {
		if u.colorEnabled {
			fmt.Fprintf(os.Stderr, "%s %s\n", style.Render(symbol), displayMessage)
		} else {
			fmt.Fprintf(os.Stderr, "%s %s\n", symbol, displayMessage)
		}
	}
}

// Info prints an informational message to stderr
// Writes to stderr even when not a TTY (e.g., when piping output)
// Respects the TUG_QUIET environment variable
func (u *UI) Info(format string, args ...any) {
	if isDisabled() {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

// Successf prints a check-marked result line to stdout.
// Result lines always print, even when piped, because they are the
// command's output rather than progress chatter.
func (u *UI) Successf(format string, args ...any) {
	u.resultLine("✓", okStyle, format, args...)
}

// Failuref prints a cross-marked result line to stdout.
func (u *UI) Failuref(format string, args ...any) {
	u.resultLine("✗", errStyle, format, args...)
}

// Warnf prints a warning result line to stdout.
func (u *UI) Warnf(format string, args ...any) {
	u.resultLine("!", warnStyle, format, args...)
}

// Mutedf prints a dimmed detail line to stdout without a marker.
func (u *UI) Mutedf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if u.stdoutColorEnabled {
		text = mutedStyle.Render(text)
	}
	fmt.Fprint(os.Stdout, text)
}

// resultLine writes a marker-prefixed line to stdout
func (u *UI) resultLine(symbol string, style lipgloss.Style, format string, args ...any) {
	if u.stdoutColorEnabled {
		symbol = style.Render(symbol)
	}
	fmt.Fprintf(os.Stdout, "%s %s", symbol, fmt.Sprintf(format, args...))
}

// Default returns the default UI instance
func Default() *UI {
	return defaultUI
}

// Reset resets the default UI instance (useful for testing)
func Reset() {
	defaultUI = New()
}

// Convenience functions that use the default UI instance

// Info prints an informational message using the default UI
func Info(format string, args ...any) {
	defaultUI.Info(format, args...)
}

// Progress prints a progress message using the default UI
func Progress(message string) {
	defaultUI.Progress(message)
}

// ProgressSuccess stops the spinner and shows success using the default UI
func ProgressSuccess(message string) {
	defaultUI.ProgressSuccess(message)
}

// ProgressFail stops the spinner and shows failure using the default UI
func ProgressFail(message string) {
	defaultUI.ProgressFail(message)
}

// Successf prints a check-marked result line using the default UI
func Successf(format string, args ...any) {
	defaultUI.Successf(format, args...)
}

// Failuref prints a cross-marked result line using the default UI
func Failuref(format string, args ...any) {
	defaultUI.Failuref(format, args...)
}

// Warnf prints a warning result line using the default UI
func Warnf(format string, args ...any) {
	defaultUI.Warnf(format, args...)
}

// Mutedf prints a dimmed detail line using the default UI
func Mutedf(format string, args ...any) {
	defaultUI.Mutedf(format, args...)
}
