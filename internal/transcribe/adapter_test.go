package transcribe

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
)

// fakeBackend returns a canned result or error
type fakeBackend struct {
	result *Result
	err    error
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Transcribe(ctx context.Context, wavPath, outDir string) (*Result, error) {
	return f.result, f.err
}

func TestTranscribeValidResult(t *testing.T) {
	midi := singleNoteMIDI(t, 120, 64, 1.0)
	notes := []NoteEvent{{Pitch: 64, Onset: 0, Offset: 1, Confidence: 0.8}}

	tr := New(&fakeBackend{result: &Result{MIDI: midi, Notes: notes}})
	result, err := tr.Transcribe(context.Background(), "in.wav", t.TempDir())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.MIDI) == 0 {
		t.Error("result lost its midi")
	}
	if len(result.Notes) != 1 || result.Notes[0].Pitch != 64 {
		t.Errorf("result notes = %v, want the backend's single note", result.Notes)
	}
}

func TestTranscribeRejectsPartialResults(t *testing.T) {
	t.Run("BackendError", func(t *testing.T) {
		want := errors.New("model exploded")
		tr := New(&fakeBackend{err: want})
		if _, err := tr.Transcribe(context.Background(), "in.wav", t.TempDir()); !errors.Is(err, want) {
			t.Errorf("err = %v, want backend error passed through", err)
		}
	})

	t.Run("EmptyMIDI", func(t *testing.T) {
		tr := New(&fakeBackend{result: &Result{Notes: []NoteEvent{{Pitch: 60, Offset: 1}}}})
		_, err := tr.Transcribe(context.Background(), "in.wav", t.TempDir())
		if !errors.Is(err, apperrors.ErrArtifactMissing) {
			t.Errorf("err = %v, want ErrArtifactMissing", err)
		}
		if !apperrors.IsStage(err, apperrors.StageTranscription) {
			t.Errorf("err should carry the transcription stage, got %v", err)
		}
	})

	t.Run("UnparsableMIDI", func(t *testing.T) {
		tr := New(&fakeBackend{result: &Result{MIDI: []byte("not midi at all")}})
		if _, err := tr.Transcribe(context.Background(), "in.wav", t.TempDir()); err == nil {
			t.Error("expected error for unparsable midi")
		}
	})
}

func TestTranscribeDerivesNotesFromMIDI(t *testing.T) {
	midi := singleNoteMIDI(t, 60, 60, 10.0)

	// persist backends without a sidecar hand back nil Notes
	tr := New(&fakeBackend{result: &Result{MIDI: midi}})
	result, err := tr.Transcribe(context.Background(), "in.wav", t.TempDir())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Notes) != 1 {
		t.Fatalf("derived %d notes, want 1", len(result.Notes))
	}
	if result.Notes[0].Pitch != 60 {
		t.Errorf("derived pitch = %d, want 60", result.Notes[0].Pitch)
	}
}

func TestTranscribeSortsBackendNotes(t *testing.T) {
	midi := singleNoteMIDI(t, 120, 64, 1.0)
	tr := New(&fakeBackend{result: &Result{MIDI: midi, Notes: []NoteEvent{
		{Pitch: 64, Onset: 2, Offset: 3},
		{Pitch: 60, Onset: 0, Offset: 1},
	}}})

	result, err := tr.Transcribe(context.Background(), "in.wav", t.TempDir())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Notes[0].Onset != 0 {
		t.Errorf("notes not sorted by onset: first onset = %g", result.Notes[0].Onset)
	}
}

func TestResolveNotesFlag(t *testing.T) {
	tests := []struct {
		name    string
		params  []string
		want    string
		wantErr bool
	}{
		{"CurrentSpelling", []string{"audio_path", "output_directory", "save_midi", "save_note_events"}, "save_note_events", false},
		{"LegacySpelling", []string{"audio_path", "output_directory", "save_midi", "save_notes"}, "save_notes", false},
		{"PrefersCurrentWhenBothPresent", []string{"save_notes", "save_note_events"}, "save_note_events", false},
		{"UnknownConvention", []string{"audio_path", "emit_note_rows"}, "", true},
		{"NoParams", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveNotesFlag(tt.params)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrUnsupportedBackend) {
					t.Errorf("err = %v, want ErrUnsupportedBackend", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveNotesFlag: %v", err)
			}
			if got != tt.want {
				t.Errorf("flag = %q, want %q", got, tt.want)
			}
		})
	}
}
