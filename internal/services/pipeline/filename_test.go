package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/arkki/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		compress string
		encrypt  string
		profile  string
		want     string
	}{
		{"hostname bzip2", models.CompressBzip2, "", "", "myhost-2024-03-09.tar.bz2"},
		{"hostname gzip", models.CompressGzip, "", "", "myhost-2024-03-09.tar.gz"},
		{"no compression", "", "", "", "myhost-2024-03-09.tar"},
		{"unknown compression", "zstd", "", "", "myhost-2024-03-09.tar"},
		{"encrypted", models.CompressBzip2, "me@example.com", "", "myhost-2024-03-09.tar.bz2.gpg"},
		{"profile", models.CompressGzip, "key", "work", "work-2024-03-09.tar.gz.gpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.NewConfiguration()
			cfg.Set(models.OptionCompress, tt.compress)
			cfg.Set(models.OptionEncrypt, tt.encrypt)

			assert.Equal(t, tt.want, FileName(cfg, tt.profile, "myhost", now))
		})
	}
}

func TestFileName_NilConfiguration(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 0, 0, 0, time.Local)

	assert.Equal(t, "myhost-2024-12-31.tar", FileName(nil, "", "myhost", now))
}

func TestResolveOutput(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.Local)
	cfg := models.NewConfiguration()
	cfg.Set(models.OptionCompress, models.CompressGzip)

	assert.Equal(t, filepath.Join(dir, "host-2024-03-09.tar.gz"), ResolveOutput(dir, cfg, "", "host", now))

	file := filepath.Join(dir, "explicit.tar")
	assert.Equal(t, file, ResolveOutput(file, cfg, "", "host", now))

	assert.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.Equal(t, file, ResolveOutput(file, cfg, "", "host", now))
}

func TestCheckOutputDir(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckOutputDir(dir))

	link := filepath.Join(dir, "link")
	assert.NoError(t, os.Symlink(dir, link))
	assert.NoError(t, CheckOutputDir(link))

	assert.ErrorIs(t, CheckOutputDir(filepath.Join(dir, "missing")), ErrInvalidOutput)

	file := filepath.Join(dir, "plain")
	assert.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.ErrorIs(t, CheckOutputDir(file), ErrInvalidOutput)
}
