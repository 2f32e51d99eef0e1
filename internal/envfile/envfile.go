// Package envfile merges the layered environment files that configure a
// delegate run. Layers merge in a fixed order, later layers overriding
// earlier ones, and the merged result is written into the process
// environment so the delegate and every hook inherit it.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Options configures one merge pass.
type Options struct {
	// Dir is the directory the layer files are resolved against.
	Dir string
	// BaseName is the layer file-name prefix, conventionally ".env".
	BaseName string
	// Profiles is the caller-supplied profile list, normalized during Merge.
	Profiles []string
	// KeyPrefix prefixes the derived bookkeeping keys, e.g. "TUG_".
	KeyPrefix string
	// SkipProfileFiles disables the per-profile layer files. Profiles remain
	// active for flag building and bookkeeping keys.
	SkipProfileFiles bool
}

// Merged is the result of one merge pass.
type Merged struct {
	// Values holds every key contributed by a layer file, after overrides,
	// plus the derived bookkeeping keys.
	Values map[string]string
	// Files lists the layer files that existed and parsed, in merge order.
	Files []string
	// Profiles is the normalized active profile list.
	Profiles []string
}

// NormalizeProfiles trims profile names, silently drops entries that are
// empty or contain path separators, and deduplicates the rest preserving
// first-occurrence order.
func NormalizeProfiles(raw []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	profiles := make([]string, 0, len(raw))

	for _, profile := range raw {
		profile = strings.TrimSpace(profile)
		if profile == "" || strings.ContainsAny(profile, `/\`) {
			continue
		}
		if seen.Add(profile) {
			profiles = append(profiles, profile)
		}
	}

	return profiles
}

// CandidateFiles returns the layer file names for the given profiles in merge
// order: the base pair first, then one pair per profile in caller order. The
// non-local name always precedes its ".local" counterpart.
func CandidateFiles(baseName string, profiles []string) []string {
	names := []string{baseName, baseName + ".local"}
	for _, profile := range profiles {
		names = append(names, baseName+"."+profile, baseName+"."+profile+".local")
	}
	return names
}

// Merge loads the layer files that exist, merges them later-over-earlier, and
// writes the merged keys into the process environment. A merged key overrides
// an inherited environment value of the same name; keys no file defines keep
// their inherited values untouched.
func Merge(opts Options) (*Merged, error) {
	profiles := NormalizeProfiles(opts.Profiles)

	fileProfiles := profiles
	if opts.SkipProfileFiles {
		fileProfiles = nil
	}

	merged := &Merged{
		Values:   make(map[string]string),
		Profiles: profiles,
	}

	for _, name := range CandidateFiles(opts.BaseName, fileProfiles) {
		path := filepath.Join(opts.Dir, name)

		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			// Unreadable or malformed files contribute zero keys.
			zap.L().Warn("Skipping unreadable env file", zap.String("file", path), zap.Error(err))
			continue
		}

		zap.L().Debug("Merged env file", zap.String("file", path), zap.Int("keys", len(values)))
		merged.Files = append(merged.Files, path)
		for key, value := range values {
			merged.Values[key] = value
		}
	}

	for key, value := range merged.Values {
		if err := os.Setenv(key, value); err != nil {
			return nil, fmt.Errorf("failed to set merged key %s: %w", key, err)
		}
	}

	if err := applyDerived(opts.KeyPrefix, profiles, merged.Values); err != nil {
		return nil, err
	}

	return merged, nil
}
