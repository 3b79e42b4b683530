package transcribe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
)

// MemoryBackend invokes the model's in-memory predict entry point. The
// helper script returns the MIDI rendering and the note events in one
// self-describing JSON document on stdout, so both artifacts are produced
// together by construction.
type MemoryBackend struct {
	runner   *exec.Runner
	modelRef string
}

// NewMemoryBackend creates the in-memory strategy. modelRef is an optional
// explicit model path; empty selects the bundled default model.
func NewMemoryBackend(runner *exec.Runner, modelRef string) *MemoryBackend {
	return &MemoryBackend{runner: runner, modelRef: modelRef}
}

func (b *MemoryBackend) Name() string { return "memory" }

// memoryOutput mirrors the helper script's stdout document
type memoryOutput struct {
	MIDIBase64 string            `json:"midi_base64"`
	Notes      []json.RawMessage `json:"notes"`
}

// Transcribe runs predict on wavPath and decodes the returned document
func (b *MemoryBackend) Transcribe(ctx context.Context, wavPath, outDir string) (*Result, error) {
	args := []string{wavPath}
	if b.modelRef != "" {
		args = append(args, "--model", b.modelRef)
	}

	result, err := b.runner.RunScript(ctx, "transcribe_memory.py", args...)
	if err != nil {
		return nil, apperrors.NewStageError(apperrors.StageTranscription, "basic-pitch",
			result.ExitCode, strings.TrimSpace(result.Stderr), err)
	}

	var out memoryOutput
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return nil, apperrors.Transcription("basic-pitch",
			fmt.Errorf("unreadable model output: %w", err))
	}

	midiBytes, err := base64.StdEncoding.DecodeString(out.MIDIBase64)
	if err != nil {
		return nil, apperrors.Transcription("basic-pitch",
			fmt.Errorf("decode midi payload: %w", err))
	}

	notes := make([]NoteEvent, 0, len(out.Notes))
	for i, raw := range out.Notes {
		var n NoteEvent
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, apperrors.Transcription("basic-pitch",
				fmt.Errorf("note event %d: %w", i, err))
		}
		notes = append(notes, n)
	}

	return &Result{MIDI: midiBytes, Notes: notes}, nil
}
