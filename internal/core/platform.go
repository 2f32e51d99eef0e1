// Package core implements the shared functionality used by every tug component.
package core

// GOOS values tug distinguishes when matching hook platform constraints.
const (
	GOOSDarwin  = "darwin"
	GOOSLinux   = "linux"
	GOOSWindows = "windows"
)

// platformAliases maps the accepted spellings of a platform constraint to the
// canonical GOOS name. Each OS family accepts its GOOS name plus one common
// alternative spelling.
var platformAliases = map[string]string{
	"darwin":  GOOSDarwin,
	"mac":     GOOSDarwin,
	"linux":   GOOSLinux,
	"windows": GOOSWindows,
	"win":     GOOSWindows,
}

// CanonicalPlatform returns the canonical GOOS name for an accepted platform
// spelling, or the empty string when the spelling is not recognized.
func CanonicalPlatform(name string) string {
	return platformAliases[name]
}

// SamePlatform reports whether the constraint names the platform goos,
// accounting for the accepted alias spellings.
func SamePlatform(constraint, goos string) bool {
	return CanonicalPlatform(constraint) == goos
}
