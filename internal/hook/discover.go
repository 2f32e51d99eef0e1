package hook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Discover scans dir non-recursively for hooks matching the requested stage
// and command-scope, keeping only those runnable on the given GOOS.
//
// An empty scope selects global hooks only; a non-empty scope selects that
// scope's hooks only. The orchestrator queries global and scoped stages
// separately, so a hook is never returned twice.
//
// The returned order is the execution order: unconstrained globals, then
// constrained globals, then scoped hooks, each group in directory-scan
// order. A missing directory yields no hooks; an unreadable one yields no
// hooks and a warning.
func Discover(dir string, stage Stage, scope string, goos string) []Hook {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("Skipping unreadable hook directory", zap.String("dir", dir), zap.Error(err))
		}
		return nil
	}

	var hooks []Hook
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		hook, ok := ParseName(entry.Name())
		if !ok || hook.Stage != stage || hook.Scope != scope {
			continue
		}
		if !hook.MatchesPlatform(goos) {
			continue
		}

		path, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			zap.L().Warn("Skipping hook with unresolvable path", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		hook.Path = path

		hooks = append(hooks, hook)
	}

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].specificity() < hooks[j].specificity()
	})

	return hooks
}

// List parses every hook file in dir regardless of stage, scope, or
// platform, in scan order. It also returns the names of files that carry the
// hook marker but do not parse, so listings can point out likely typos.
func List(dir string) ([]Hook, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read hook directory %s: %w", dir, err)
	}

	var hooks []Hook
	var nearMisses []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		hook, ok := ParseName(entry.Name())
		if !ok {
			if looksLikeHook(entry.Name()) {
				nearMisses = append(nearMisses, entry.Name())
			}
			continue
		}

		path, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		hook.Path = path

		hooks = append(hooks, hook)
	}

	return hooks, nearMisses, nil
}

// looksLikeHook reports whether a non-hook file name was probably meant to
// be a hook: marker-prefixed, with either enough segments to be one or a
// valid stage token. Two-segment names such as the settings file tug.yaml
// are not flagged.
func looksLikeHook(name string) bool {
	tokens := strings.Split(name, delimiter)
	if len(tokens) < 2 || tokens[0] != Marker {
		return false
	}
	if len(tokens) >= 3 {
		return true
	}
	_, validStage := ValidStages[tokens[1]]
	return validStage
}
