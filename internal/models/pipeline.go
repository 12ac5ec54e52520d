package models

import "time"

// Stage names.
const (
	StageArchive = "archive"
	StageEncrypt = "encrypt"
)

// Stage is one process of a pipeline. Args are passed to the program as-is;
// they are only escaped when the stage is rendered as a command line.
type Stage struct {
	Name    string
	Program string
	Args    []string
}

// PipelineSpec is the ordered list of processes for one invocation. Each stage
// reads the previous stage's stdout. An empty OutputPath means the last stage
// writes to the caller.
type PipelineSpec struct {
	Stages     []Stage
	OutputPath string
}

// BackupResult holds the result of a backup operation.
type BackupResult struct {
	OutputPath string
	SizeBytes  int64
	Duration   time.Duration
	Error      error
}
