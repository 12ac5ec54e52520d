package config

import (
	"path/filepath"
	"strings"
)

// DefaultProfile is the profile used when no name is given.
const DefaultProfile = "default"

// Locator maps profile names to configuration file paths.
type Locator struct {
	Dir string // per-user configuration directory, e.g. ~/.config/arkki
}

// NewLocator creates a locator rooted at dir.
func NewLocator(dir string) Locator {
	return Locator{Dir: dir}
}

// Resolve returns the file path for name. An empty name is the default
// profile, a bare name lives in the configuration directory, and anything
// containing a path separator is used verbatim. Resolve does no I/O.
func (l Locator) Resolve(name string) string {
	if name == "" {
		name = DefaultProfile
	}
	if IsQualified(name) {
		return name
	}
	return filepath.Join(l.Dir, name)
}

// IsQualified reports whether name contains a path separator.
func IsQualified(name string) bool {
	return strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator)
}

// ProfileName returns the base name used for archive file names, or "" when
// no named profile is active.
func ProfileName(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Base(name)
}
