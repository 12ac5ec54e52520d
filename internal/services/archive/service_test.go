package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/fgeck/arkki/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor is a mock implementation of CommandExecutor for testing.
type mockExecutor struct {
	runPipelineFunc func(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error
}

func (m *mockExecutor) RunPipeline(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error {
	if m.runPipelineFunc != nil {
		return m.runPipelineFunc(ctx, stages, stdout, stderr)
	}
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testSpec(output string) *models.PipelineSpec {
	return &models.PipelineSpec{
		Stages: []models.Stage{
			{Name: models.StageArchive, Program: "tar", Args: []string{"--create", "--file", "-", "--", "/data"}},
		},
		OutputPath: output,
	}
}

func requireProgram(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available", name)
		}
	}
}

func TestBackup_Success(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.tar")
	var capturedStages []models.Stage

	executor := &mockExecutor{
		runPipelineFunc: func(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error {
			capturedStages = stages
			_, err := stdout.Write([]byte("archive-bytes"))
			return err
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	result, err := svc.Backup(context.Background(), testSpec(output))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Error)
	assert.Equal(t, output, result.OutputPath)
	assert.Equal(t, int64(len("archive-bytes")), result.SizeBytes)
	require.Len(t, capturedStages, 1)
	assert.Equal(t, "tar", capturedStages[0].Program)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))
}

func TestBackup_FailureRemovesPartialFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.tar")

	executor := &mockExecutor{
		runPipelineFunc: func(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error {
			_, _ = stdout.Write([]byte("partial"))
			return errors.New("exit status 2")
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	result, err := svc.Backup(context.Background(), testSpec(output))

	// Backup returns result with error in Error field, not as function return
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "backup failed")

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBackup_OutputDirectoryMissing(t *testing.T) {
	output := filepath.Join(t.TempDir(), "missing", "out.tar")
	called := false

	executor := &mockExecutor{
		runPipelineFunc: func(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error {
			called = true
			return nil
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	result, err := svc.Backup(context.Background(), testSpec(output))

	require.NoError(t, err)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "failed to create output file")
	assert.False(t, called)
}

func TestBackup_InvalidSpec(t *testing.T) {
	svc := NewWithExecutor(testLogger(), &mockExecutor{})

	_, err := svc.Backup(context.Background(), nil)
	assert.Error(t, err)

	_, err = svc.Backup(context.Background(), testSpec(""))
	assert.Error(t, err)
}

func TestList_StreamsOutput(t *testing.T) {
	executor := &mockExecutor{
		runPipelineFunc: func(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error {
			_, err := stdout.Write([]byte("file1\nfile2\n"))
			return err
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	var buf bytes.Buffer
	err := svc.List(context.Background(), testSpec(""), &buf)

	require.NoError(t, err)
	assert.Equal(t, "file1\nfile2\n", buf.String())
}

func TestList_Error(t *testing.T) {
	executor := &mockExecutor{
		runPipelineFunc: func(ctx context.Context, stages []models.Stage, stdout, stderr io.Writer) error {
			return ErrChildProcess
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	err := svc.List(context.Background(), testSpec(""), io.Discard)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChildProcess)
}

func TestDefaultExecutor_ConnectsStages(t *testing.T) {
	requireProgram(t, "printf", "tr")

	stages := []models.Stage{
		{Name: "produce", Program: "printf", Args: []string{"%s", "hello pipeline"}},
		{Name: "transform", Program: "tr", Args: []string{"a-z", "A-Z"}},
	}

	var out bytes.Buffer
	err := (&DefaultExecutor{}).RunPipeline(context.Background(), stages, &out, io.Discard)

	require.NoError(t, err)
	assert.Equal(t, "HELLO PIPELINE", out.String())
}

func TestDefaultExecutor_ArgumentsAreNotShellExpanded(t *testing.T) {
	requireProgram(t, "printf")

	stages := []models.Stage{
		{Name: "produce", Program: "printf", Args: []string{"%s", "$(echo pwned); `id` *"}},
	}

	var out bytes.Buffer
	err := (&DefaultExecutor{}).RunPipeline(context.Background(), stages, &out, io.Discard)

	require.NoError(t, err)
	assert.Equal(t, "$(echo pwned); `id` *", out.String())
}

func TestDefaultExecutor_StageFailure(t *testing.T) {
	requireProgram(t, "true", "false")

	stages := []models.Stage{
		{Name: "produce", Program: "true"},
		{Name: "consume", Program: "false"},
	}

	err := (&DefaultExecutor{}).RunPipeline(context.Background(), stages, io.Discard, io.Discard)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChildProcess)
	assert.Contains(t, err.Error(), "consume")
}

func TestDefaultExecutor_ReportsDownstreamFailure(t *testing.T) {
	requireProgram(t, "yes", "false")

	// yes only stops when its reader goes away, so it always fails as well.
	stages := []models.Stage{
		{Name: models.StageArchive, Program: "yes"},
		{Name: models.StageEncrypt, Program: "false"},
	}

	err := (&DefaultExecutor{}).RunPipeline(context.Background(), stages, io.Discard, io.Discard)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChildProcess)
	assert.Contains(t, err.Error(), "encrypt stage")
	assert.NotContains(t, err.Error(), "archive stage")
}

func TestDefaultExecutor_UpstreamFailure(t *testing.T) {
	requireProgram(t, "false", "cat")

	stages := []models.Stage{
		{Name: models.StageArchive, Program: "false"},
		{Name: models.StageEncrypt, Program: "cat"},
	}

	err := (&DefaultExecutor{}).RunPipeline(context.Background(), stages, io.Discard, io.Discard)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive stage")
}

func TestDefaultExecutor_MissingProgram(t *testing.T) {
	stages := []models.Stage{
		{Name: "archive", Program: "arkki-definitely-not-installed"},
	}

	err := (&DefaultExecutor{}).RunPipeline(context.Background(), stages, io.Discard, io.Discard)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChildProcess)
}

func TestDefaultExecutor_EmptyPipeline(t *testing.T) {
	err := (&DefaultExecutor{}).RunPipeline(context.Background(), nil, io.Discard, io.Discard)

	assert.Error(t, err)
}
