package envfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Suffixes of the derived bookkeeping keys, appended to the configured key
// prefix.
const (
	profilesSuffix      = "PROFILES"
	profilesCountSuffix = "PROFILES_COUNT"
	profileIndexSuffix  = "PROFILE_"
)

// ProfilesKey returns the key holding the comma-joined active profile list.
func ProfilesKey(prefix string) string {
	return prefix + profilesSuffix
}

// ProfilesCountKey returns the key holding the active profile count.
func ProfilesCountKey(prefix string) string {
	return prefix + profilesCountSuffix
}

// ProfileIndexKey returns the key holding the i-th active profile.
func ProfileIndexKey(prefix string, i int) string {
	return fmt.Sprintf("%s%s%d", prefix, profileIndexSuffix, i)
}

// applyDerived writes the profile bookkeeping keys into the process
// environment and into values. Indexed keys left over from a previous merge
// in the same process are cleared, never left dangling.
func applyDerived(prefix string, profiles []string, values map[string]string) error {
	if len(profiles) == 0 {
		for _, key := range []string{ProfilesKey(prefix), ProfilesCountKey(prefix)} {
			if err := os.Unsetenv(key); err != nil {
				return fmt.Errorf("failed to clear %s: %w", key, err)
			}
		}
		return clearStaleIndexKeys(prefix, 0)
	}

	derived := map[string]string{
		ProfilesKey(prefix):      strings.Join(profiles, ","),
		ProfilesCountKey(prefix): strconv.Itoa(len(profiles)),
	}
	for i, profile := range profiles {
		derived[ProfileIndexKey(prefix, i)] = profile
	}

	for key, value := range derived {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		values[key] = value
	}

	return clearStaleIndexKeys(prefix, len(profiles))
}

// clearStaleIndexKeys unsets indexed profile keys from position from upward
// until it finds a gap.
func clearStaleIndexKeys(prefix string, from int) error {
	for i := from; ; i++ {
		key := ProfileIndexKey(prefix, i)
		if _, ok := os.LookupEnv(key); !ok {
			return nil
		}
		if err := os.Unsetenv(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
}
