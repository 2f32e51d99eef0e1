// Package hook discovers and executes the lifecycle scripts that bracket a
// delegate invocation. Hooks are plain files in the working directory whose
// names follow a small grammar; they are discovered fresh on every
// invocation and never cached.
package hook

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/dorcha-inc/tug/internal/core"
)

// Stage says whether a hook runs before or after the delegate sequence.
type Stage string

const (
	StageBefore Stage = "before"
	StageAfter  Stage = "after"
)

// Marker is the fixed leading token of every hook file name.
const Marker = "tug"

// delimiter separates the segments of a hook file name.
const delimiter = "."

// ValidStages holds the recognized stage tokens, for parsing and for
// diagnostics that list valid values.
var ValidStages = map[string]struct{}{
	string(StageBefore): {},
	string(StageAfter):  {},
}

// Hook describes one discovered lifecycle script.
//
// A hook file name is `tug.<stage>[.<scope>][.<platform>[+<binary>]].<ext>`:
// the marker, the stage, an optional command-scope, an optional platform
// and/or interpreter constraint, and an extension. Examples:
//
//	tug.before.sh              global, unconstrained
//	tug.after.mac.sh           global, darwin only
//	tug.before.+bash.sh        global, run via bash
//	tug.before.db.sh           scoped to the "db" hook name
//	tug.after.db.linux+bash.sh scoped, linux only, run via bash
type Hook struct {
	// Name is the file name the hook was parsed from.
	Name string
	// Path is the absolute path of the hook file.
	Path string
	// Stage is the lifecycle stage the hook runs in.
	Stage Stage
	// Scope is the command-scope segment, empty for global hooks.
	Scope string
	// Platform is the declared platform constraint as written (aliases are
	// not canonicalized), empty when unconstrained.
	Platform string
	// Binary is the declared interpreter, empty when the file runs directly.
	Binary string
	// Ext is the file extension segment.
	Ext string
}

// ParseName parses a file name against the hook grammar. The second return
// is false for files that are not hooks; they are simply not hooks, never
// errors.
func ParseName(name string) (Hook, bool) {
	tokens := strings.Split(name, delimiter)
	if len(tokens) < 3 || tokens[0] != Marker {
		return Hook{}, false
	}

	if _, ok := ValidStages[tokens[1]]; !ok {
		return Hook{}, false
	}

	ext := tokens[len(tokens)-1]
	if ext == "" {
		return Hook{}, false
	}

	hook := Hook{
		Name:  name,
		Stage: Stage(tokens[1]),
		Ext:   ext,
	}

	middle := tokens[2 : len(tokens)-1]
	switch len(middle) {
	case 0:
		// Global, unconstrained.
	case 1:
		if isConstraint(middle[0]) {
			if !hook.applyConstraint(middle[0]) {
				return Hook{}, false
			}
		} else {
			if middle[0] == "" {
				return Hook{}, false
			}
			hook.Scope = middle[0]
		}
	case 2:
		if middle[0] == "" || isConstraint(middle[0]) || !isConstraint(middle[1]) {
			return Hook{}, false
		}
		hook.Scope = middle[0]
		if !hook.applyConstraint(middle[1]) {
			return Hook{}, false
		}
	default:
		return Hook{}, false
	}

	return hook, true
}

// Suggest finds the known token closest to the given one for typo detection
// using Levenshtein distance. It returns "" when nothing is close enough.
func Suggest(token string, known []string) string {
	var best string
	bestDistance := 3 // Only consider distances <= 2

	tokenLower := strings.ToLower(token)

	for _, candidate := range known {
		distance := levenshtein.ComputeDistance(tokenLower, strings.ToLower(candidate))
		if distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}

	return best
}

// StageNames returns the valid stage tokens in a stable order, for
// diagnostics and suggestions.
func StageNames() []string {
	return []string{string(StageBefore), string(StageAfter)}
}

// isConstraint reports whether a segment is a platform/binary constraint
// rather than a command-scope. A segment containing "+" always is; a bare
// segment is one exactly when it names a known platform.
func isConstraint(segment string) bool {
	return strings.Contains(segment, "+") || core.CanonicalPlatform(segment) != ""
}

// applyConstraint fills the platform and binary fields from a constraint
// segment. It returns false for degenerate segments like a bare "+".
func (h *Hook) applyConstraint(segment string) bool {
	platform, binary, found := strings.Cut(segment, "+")
	if found && binary == "" {
		return false
	}
	if platform == "" && binary == "" {
		return false
	}
	h.Platform = platform
	h.Binary = binary
	return true
}

// MatchesPlatform reports whether the hook may run on the given GOOS. Hooks
// without a platform constraint run everywhere; a binary constraint never
// filters, it only selects the interpreter.
func (h Hook) MatchesPlatform(goos string) bool {
	return h.Platform == "" || core.SamePlatform(h.Platform, goos)
}

// Invocation returns the program and arguments that execute the hook: the
// declared interpreter with the hook path as its argument, or the hook file
// itself when no interpreter is declared.
func (h Hook) Invocation() (string, []string) {
	if h.Binary != "" {
		return h.Binary, []string{h.Path}
	}
	return h.Path, nil
}

// specificity ranks a hook for execution ordering: global unconstrained
// hooks first, then global constrained hooks, then scoped hooks.
func (h Hook) specificity() int {
	switch {
	case h.Scope != "":
		return 2
	case h.Platform != "" || h.Binary != "":
		return 1
	default:
		return 0
	}
}
