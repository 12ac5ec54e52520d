// Package pipeline turns a profile configuration into archive/encrypt stages.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fgeck/arkki/internal/escape"
	"github.com/fgeck/arkki/internal/models"
)

var (
	// ErrMissingRoot is returned when the root option is unset.
	ErrMissingRoot = errors.New("root directory is not set")
	// ErrSymlinkRoot is returned when the root is a symbolic link.
	ErrSymlinkRoot = errors.New("root directory is a symbolic link")
	// ErrInvalidRoot is returned when the root does not exist or is not a directory.
	ErrInvalidRoot = errors.New("root directory is not a directory")
	// ErrInvalidOutput is returned when the output option does not name an
	// existing directory.
	ErrInvalidOutput = errors.New("output is not an existing directory")
)

// Programs invoked by the pipeline.
const (
	ArchiveProgram = "tar"
	EncryptProgram = "gpg"
)

// Builder defines the interface for pipeline synthesis.
type Builder interface {
	Build(cfg *models.Configuration, outputPath string, verbose bool) (*models.PipelineSpec, error)
	BuildList(cfg *models.Configuration) (*models.PipelineSpec, error)
}

// Impl implements the Builder interface.
type Impl struct {
	lstat   func(name string) (os.FileInfo, error)
	devNull string
}

// New creates a new pipeline builder.
func New() *Impl {
	return &Impl{
		lstat:   os.Lstat,
		devNull: os.DevNull,
	}
}

// Build returns the backup pipeline: tar, then gpg when encryption is
// configured, with the last stage writing to outputPath.
func (b *Impl) Build(cfg *models.Configuration, outputPath string, verbose bool) (*models.PipelineSpec, error) {
	root, err := b.checkRoot(cfg)
	if err != nil {
		return nil, err
	}

	args := archiveFlags(cfg, verbose)
	args = append(args, "--create", "--file", "-", "--", root)

	spec := &models.PipelineSpec{
		Stages: []models.Stage{{
			Name:    models.StageArchive,
			Program: ArchiveProgram,
			Args:    args,
		}},
		OutputPath: outputPath,
	}

	if recipient := cfg.Get(models.OptionEncrypt, ""); recipient != "" {
		spec.Stages = append(spec.Stages, models.Stage{
			Name:    models.StageEncrypt,
			Program: EncryptProgram,
			Args:    []string{"--encrypt", "--recipient", recipient},
		})
	}

	return spec, nil
}

// BuildList returns a pipeline that prints the file set tar would archive
// without writing an archive.
func (b *Impl) BuildList(cfg *models.Configuration) (*models.PipelineSpec, error) {
	root, err := b.checkRoot(cfg)
	if err != nil {
		return nil, err
	}

	args := archiveFlags(cfg, true)
	args = append(args, "--create", "--file", b.devNull, "--", root)

	return &models.PipelineSpec{
		Stages: []models.Stage{{
			Name:    models.StageArchive,
			Program: ArchiveProgram,
			Args:    args,
		}},
	}, nil
}

func (b *Impl) checkRoot(cfg *models.Configuration) (string, error) {
	root := cfg.Get(models.OptionRoot, "")
	if root == "" {
		return "", ErrMissingRoot
	}

	info, err := b.lstat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("%w: %s", ErrSymlinkRoot, root)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	return root, nil
}

// archiveFlags returns the compression, verbosity and exclude flags, in that
// order.
func archiveFlags(cfg *models.Configuration, verbose bool) []string {
	var args []string

	switch cfg.Get(models.OptionCompress, "") {
	case models.CompressBzip2:
		args = append(args, "--bzip2")
	case models.CompressGzip:
		args = append(args, "--gzip")
	}

	if verbose {
		args = append(args, "--verbose")
	}

	for _, p := range cfg.Patterns() {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		args = append(args, "--exclude="+p)
	}

	return args
}

// Words renders a stage as escaped shell words.
func Words(stage models.Stage) []string {
	words := make([]string, 0, len(stage.Args)+1)
	words = append(words, escape.String(stage.Program))
	for _, a := range stage.Args {
		words = append(words, escape.String(a))
	}
	return words
}

// CommandLine renders spec as the equivalent shell command line. It is used
// for logging and previews; the pipeline itself never runs through a shell.
func CommandLine(spec *models.PipelineSpec) string {
	parts := make([]string, 0, len(spec.Stages)*2+2)
	for i, stage := range spec.Stages {
		if i > 0 {
			parts = append(parts, "|")
		}
		parts = append(parts, strings.Join(Words(stage), " "))
	}
	if spec.OutputPath != "" {
		parts = append(parts, ">", escape.String(spec.OutputPath))
	}
	return strings.Join(parts, " ")
}
