package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes
var (
	ErrFileNotFound       = errors.New("file not found")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrCorruptedFile      = errors.New("file corrupted or unreadable")
	ErrFileTooLarge       = errors.New("file exceeds size limit")
	ErrEmptyAudio         = errors.New("audio file contains no samples")
	ErrToolNotInstalled   = errors.New("required tool not installed")
	ErrUnsupportedBackend = errors.New("no known calling convention matches the transcription backend")
	ErrArtifactMissing    = errors.New("artifact not produced")
)

// Stage identifies the pipeline stage that failed
type Stage string

const (
	StageAcquisition   Stage = "acquisition"
	StageNormalization Stage = "normalization"
	StageTranscription Stage = "transcription"
	StageBackendProbe  Stage = "backend_probe"
	StageNotation      Stage = "notation"
)

// StageError represents a failure at a pipeline stage boundary
type StageError struct {
	Stage    Stage  // which stage failed
	Tool     string // "yt-dlp", "ffmpeg", "basic-pitch", "music21"
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *StageError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed (%s, exit %d): %s", e.Stage, e.Tool, e.ExitCode, e.Stderr)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s failed (%s): %s", e.Stage, e.Tool, e.Cause)
	}
	return fmt.Sprintf("%s failed (%s)", e.Stage, e.Tool)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// NewStageError creates a StageError
func NewStageError(stage Stage, tool string, exitCode int, stderr string, cause error) *StageError {
	return &StageError{
		Stage:    stage,
		Tool:     tool,
		ExitCode: exitCode,
		Stderr:   stderr,
		Cause:    cause,
	}
}

// Acquisition wraps cause as an acquisition-stage failure
func Acquisition(tool string, cause error) *StageError {
	return &StageError{Stage: StageAcquisition, Tool: tool, Cause: cause}
}

// Normalization wraps cause as a normalization-stage failure
func Normalization(tool string, cause error) *StageError {
	return &StageError{Stage: StageNormalization, Tool: tool, Cause: cause}
}

// Transcription wraps cause as a transcription-stage failure
func Transcription(tool string, cause error) *StageError {
	return &StageError{Stage: StageTranscription, Tool: tool, Cause: cause}
}

// Notation wraps cause as a notation-stage failure
func Notation(tool string, cause error) *StageError {
	return &StageError{Stage: StageNotation, Tool: tool, Cause: cause}
}

// UnsupportedBackend reports a backend whose entry points match no known
// calling convention. Detected once at startup, never per request.
func UnsupportedBackend(detail string) *StageError {
	return &StageError{
		Stage: StageBackendProbe,
		Tool:  "basic-pitch",
		Cause: fmt.Errorf("%w: %s", ErrUnsupportedBackend, detail),
	}
}

// StageOf returns the failing stage if err is (or wraps) a StageError
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// IsStage reports whether err failed at the given stage
func IsStage(err error, stage Stage) bool {
	s, ok := StageOf(err)
	return ok && s == stage
}
