package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fgeck/arkki/internal/models"
)

// DateFormat is the date layout used in archive file names.
const DateFormat = "2006-01-02"

// FileName derives the archive file name for a backup taken at now. The base
// is the profile name when one is active and the host name otherwise.
func FileName(cfg *models.Configuration, profile, hostname string, now time.Time) string {
	base := profile
	if base == "" {
		base = hostname
	}

	name := base + "-" + now.Local().Format(DateFormat) + ".tar"

	switch cfg.Get(models.OptionCompress, "") {
	case models.CompressBzip2:
		name += ".bz2"
	case models.CompressGzip:
		name += ".gz"
	}

	if cfg.Get(models.OptionEncrypt, "") != "" {
		name += ".gpg"
	}

	return name
}

// ResolveOutput returns the archive path for target. When target is an
// existing directory the derived file name is appended, otherwise target is
// the file itself.
func ResolveOutput(target string, cfg *models.Configuration, profile, hostname string, now time.Time) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, FileName(cfg, profile, hostname, now))
	}
	return target
}

// CheckOutputDir reports whether dir is an existing directory. Symlinks are
// followed, so a mount point reached through a link is accepted.
func CheckOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidOutput, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidOutput, dir)
	}
	return nil
}
