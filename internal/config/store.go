package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fgeck/arkki/internal/models"
)

var (
	// ErrNotFound is returned when no configuration file exists at a path.
	ErrNotFound = errors.New("configuration not found")
	// ErrAlreadyExists is returned when creating over an existing file.
	ErrAlreadyExists = errors.New("configuration already exists")
	// ErrPersist is returned when a configuration could not be written.
	ErrPersist = errors.New("failed to write configuration")
	// ErrInvalidPattern is returned for exclude patterns that cannot be stored.
	ErrInvalidPattern = errors.New("invalid exclude pattern")
	// ErrInvalidValue is returned for option names or values that cannot be stored.
	ErrInvalidValue = errors.New("invalid option")
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// DefaultConfiguration builds the configuration written by CreateDefault.
func DefaultConfiguration(d models.Defaults) *models.Configuration {
	cfg := models.NewConfiguration()
	cfg.Options[models.OptionVersion] = d.Version
	cfg.Options[models.OptionRoot] = d.Home
	cfg.Options[models.OptionOutput] = ""
	cfg.Options[models.OptionEncrypt] = ""
	cfg.Options[models.OptionCompress] = d.Compress

	for _, p := range d.Excludes {
		cfg.AddPattern(p)
	}
	return cfg
}

// StandardDefaults returns the defaults for a user whose home is home.
func StandardDefaults(version, home string) models.Defaults {
	return models.Defaults{
		Version:  version,
		Home:     home,
		Compress: models.CompressBzip2,
		Excludes: []string{filepath.Join(home, ".cache"), "*.tmp"},
	}
}

// Load reads the configuration at path.
func Load(path string) (*models.Configuration, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is resolved by the caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(string(data)), nil
}

// CreateDefault writes the default configuration to path. It refuses to touch
// an existing file.
func CreateDefault(path string, d models.Defaults) (*models.Configuration, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("%w: creating config directory: %w", ErrPersist, err)
	}

	cfg := DefaultConfiguration(d)
	if err := Persist(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreate loads path, creating the default configuration if it does not
// exist. created reports whether a new file was written.
func LoadOrCreate(path string, d models.Defaults) (cfg *models.Configuration, created bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	cfg, err = CreateDefault(path, d)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Persist replaces the file at path with the serialized configuration. The
// data goes to a temporary file in the same directory which is then renamed
// over path, so readers never observe a partial file. On failure the
// original file is left as it was and the temporary file is removed.
func Persist(cfg *models.Configuration, path string) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.WriteString(Serialize(cfg)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err = tmp.Chmod(fileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	return nil
}

// ValidatePattern checks that pattern can be stored: any non-empty single
// line is accepted.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if strings.ContainsAny(pattern, "\r\n") {
		return fmt.Errorf("%w: %q contains a line break", ErrInvalidPattern, pattern)
	}
	return nil
}

// WellFormedGlob reports whether pattern has balanced brackets and braces.
// tar accepts patterns that fail this check and matches them literally.
func WellFormedGlob(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}

// ValidateOption checks that name and value survive a write/read cycle.
func ValidateOption(name, value string) error {
	if name == "" || strings.ContainsAny(name, "=\r\n") || strings.HasPrefix(name, "[") {
		return fmt.Errorf("%w: bad name %q", ErrInvalidValue, name)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s value contains a line break", ErrInvalidValue, name)
	}
	return nil
}
