// Package archive runs backup pipelines as connected child processes.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/fgeck/arkki/internal/models"
	"github.com/fgeck/arkki/internal/services/pipeline"
	"github.com/rs/zerolog"
)

// ErrChildProcess is returned when a pipeline stage fails to start or exits
// non-zero.
var ErrChildProcess = errors.New("child process failed")

var errEmptyPipeline = errors.New("empty pipeline")

// Service defines the interface for running pipelines.
type Service interface {
	Backup(ctx context.Context, spec *models.PipelineSpec) (*models.BackupResult, error)
	List(ctx context.Context, spec *models.PipelineSpec, w io.Writer) error
}

// CommandExecutor allows mocking process execution in tests.
type CommandExecutor interface {
	RunPipeline(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error
}

// DefaultExecutor runs stages with os/exec, connecting each stage's stdout to
// the next stage's stdin. No shell is involved.
type DefaultExecutor struct{}

// RunPipeline starts every stage and waits for all of them. The first stage
// reads from /dev/null; the last writes to stdout.
func (e *DefaultExecutor) RunPipeline(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error {
	if len(stages) == 0 {
		return errEmptyPipeline
	}

	cmds := make([]*exec.Cmd, len(stages))
	for i, st := range stages {
		cmd := exec.CommandContext(ctx, st.Program, st.Args...) //nolint:gosec // arguments are passed without a shell
		cmd.Stderr = stderr
		cmds[i] = cmd
	}

	var pipes []*os.File
	closePipes := func() {
		for _, p := range pipes {
			_ = p.Close()
		}
	}

	for i := 0; i < len(cmds)-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			closePipes()
			return fmt.Errorf("creating pipe: %w", err)
		}
		cmds[i].Stdout = w
		cmds[i+1].Stdin = r
		pipes = append(pipes, r, w)
	}
	cmds[len(cmds)-1].Stdout = stdout

	var runErr error
	started := 0
	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			runErr = fmt.Errorf("%w: starting %s: %w", ErrChildProcess, stages[i].Program, err)
			break
		}
		started++
	}

	// The children hold their own copies; ours must go so EOF reaches readers.
	closePipes()

	// A failing downstream stage makes upstream stages die on a broken pipe,
	// so the last failed stage is the one reported.
	var waitErr error
	for i := 0; i < started; i++ {
		if err := cmds[i].Wait(); err != nil {
			waitErr = fmt.Errorf("%w: %s stage (%s): %w", ErrChildProcess, stages[i].Name, stages[i].Program, err)
		}
	}

	if runErr != nil {
		return runErr
	}
	return waitErr
}

// Impl implements the Service interface.
type Impl struct {
	executor CommandExecutor
	stderr   io.Writer
	logger   zerolog.Logger
}

// New creates a new archive service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		stderr:   os.Stderr,
		logger:   logger,
	}
}

// NewWithExecutor creates a new archive service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor) *Impl {
	return &Impl{
		executor: executor,
		stderr:   io.Discard,
		logger:   logger,
	}
}

// Backup runs spec with the last stage writing to spec.OutputPath. A failed
// run is reported in the result's Error field and the partial file is removed.
func (s *Impl) Backup(ctx context.Context, spec *models.PipelineSpec) (*models.BackupResult, error) {
	if spec == nil || len(spec.Stages) == 0 {
		return nil, errEmptyPipeline
	}
	if spec.OutputPath == "" {
		return nil, errors.New("backup pipeline has no output path")
	}

	s.logger.Info().
		Str("output", spec.OutputPath).
		Int("stages", len(spec.Stages)).
		Msg("starting backup")
	s.logger.Debug().Str("command", pipeline.CommandLine(spec)).Msg("pipeline")

	start := time.Now()
	result := &models.BackupResult{OutputPath: spec.OutputPath}

	out, err := os.OpenFile(spec.OutputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path chosen by the user
	if err != nil {
		result.Error = fmt.Errorf("failed to create output file: %w", err)
		result.Duration = time.Since(start)
		return result, nil
	}

	runErr := s.executor.RunPipeline(ctx, spec.Stages, out, s.stderr)
	closeErr := out.Close()
	if runErr == nil && closeErr != nil {
		runErr = fmt.Errorf("closing output file: %w", closeErr)
	}

	if runErr != nil {
		// A partial archive is never valid.
		_ = os.Remove(spec.OutputPath)
		result.Error = fmt.Errorf("backup failed: %w", runErr)
		result.Duration = time.Since(start)
		return result, nil
	}

	if info, err := os.Stat(spec.OutputPath); err == nil {
		result.SizeBytes = info.Size()
	}
	result.Duration = time.Since(start)

	s.logger.Info().
		Str("output", result.OutputPath).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("backup completed")

	return result, nil
}

// List runs spec and streams its output to w.
func (s *Impl) List(ctx context.Context, spec *models.PipelineSpec, w io.Writer) error {
	if spec == nil || len(spec.Stages) == 0 {
		return errEmptyPipeline
	}

	s.logger.Debug().Str("command", pipeline.CommandLine(spec)).Msg("listing files")

	if err := s.executor.RunPipeline(ctx, spec.Stages, w, s.stderr); err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	return nil
}
