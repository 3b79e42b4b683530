// Package transcribe adapts the external note-detection model behind a
// single contract: a canonical waveform in, a MIDI artifact plus a typed
// note-event sequence out, always both together or neither.
//
// Different model versions expose incompatible entry points (an in-memory
// predict call vs. a predict-and-persist call with drifting parameter
// names). The adapter resolves which one is available exactly once, at
// startup, and never re-probes per request.
package transcribe

import (
	"bytes"
	"context"
	"fmt"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Result owns a MIDI artifact and the note events that generated it.
// Invariant: both describe the same note content; neither exists alone.
type Result struct {
	MIDI  []byte
	Notes []NoteEvent
}

// Backend is one strategy for invoking the note-detection model
type Backend interface {
	// Name identifies the strategy ("memory" or "persist")
	Name() string
	// Transcribe runs the model on a canonical waveform. outDir receives
	// any files a persist-style backend writes; it must belong to the
	// calling session.
	Transcribe(ctx context.Context, wavPath, outDir string) (*Result, error)
}

// Transcriber wraps the selected backend with result validation
type Transcriber struct {
	backend Backend
}

// New builds a Transcriber around an explicitly chosen backend
func New(backend Backend) *Transcriber {
	return &Transcriber{backend: backend}
}

// Resolve probes the installed model once and selects a backend in fixed
// preference order: the in-memory predict call (self-describing return)
// over the persist-to-directory call. prefer narrows the choice to one
// strategy; an entry point matching no known convention fails fast.
func Resolve(ctx context.Context, runner *exec.Runner, prefer, modelRef string) (*Transcriber, error) {
	caps, err := probeBackend(ctx, runner)
	if err != nil {
		return nil, err
	}

	switch prefer {
	case "", "auto":
		if caps.HasPredict {
			return New(NewMemoryBackend(runner, modelRef)), nil
		}
		if caps.HasPredictAndSave {
			return New(NewPersistBackend(runner, modelRef, caps.NotesFlag)), nil
		}
		return nil, apperrors.UnsupportedBackend("model exposes neither predict nor predict_and_save")
	case "memory":
		if !caps.HasPredict {
			return nil, apperrors.UnsupportedBackend("in-memory predict entry point not available")
		}
		return New(NewMemoryBackend(runner, modelRef)), nil
	case "persist":
		if !caps.HasPredictAndSave {
			return nil, apperrors.UnsupportedBackend("predict_and_save entry point not available")
		}
		return New(NewPersistBackend(runner, modelRef, caps.NotesFlag)), nil
	default:
		return nil, fmt.Errorf("unknown backend preference %q", prefer)
	}
}

// BackendName reports the selected strategy
func (t *Transcriber) BackendName() string {
	return t.backend.Name()
}

// Transcribe runs the model and enforces the total-or-nothing invariant:
// the returned Result carries parseable MIDI and a non-empty note sequence
// describing it, or the call fails and nothing is attached to the session.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath, outDir string) (*Result, error) {
	result, err := t.backend.Transcribe(ctx, wavPath, outDir)
	if err != nil {
		return nil, err
	}

	if len(result.MIDI) == 0 {
		return nil, apperrors.Transcription(t.backend.Name(),
			fmt.Errorf("%w: midi artifact", apperrors.ErrArtifactMissing))
	}
	if _, err := smf.ReadFrom(bytes.NewReader(result.MIDI)); err != nil {
		return nil, apperrors.Transcription(t.backend.Name(),
			fmt.Errorf("backend returned unparsable midi: %w", err))
	}
	if result.Notes == nil {
		// derive from the MIDI itself so both artifacts always travel together
		notes, err := NotesFromMIDI(result.MIDI)
		if err != nil {
			return nil, apperrors.Transcription(t.backend.Name(), err)
		}
		result.Notes = notes
	}

	SortNotes(result.Notes)
	return result, nil
}
