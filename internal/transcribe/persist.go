package transcribe

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
)

// PersistBackend invokes the model's predict-and-save entry point, which
// writes its artifacts into a directory using a documented naming
// convention: <input stem>_basic_pitch.mid plus an optional
// <input stem>_basic_pitch.csv note-event sidecar. The expected names are
// computed up front; a missing file is an error, never a directory
// scan-and-guess.
type PersistBackend struct {
	runner    *exec.Runner
	modelRef  string
	notesFlag string // spelling of the sidecar parameter, from the probe
}

// NewPersistBackend creates the persist-to-directory strategy
func NewPersistBackend(runner *exec.Runner, modelRef, notesFlag string) *PersistBackend {
	return &PersistBackend{runner: runner, modelRef: modelRef, notesFlag: notesFlag}
}

func (b *PersistBackend) Name() string { return "persist" }

// Transcribe runs predict_and_save into outDir and collects the artifacts
// it wrote
func (b *PersistBackend) Transcribe(ctx context.Context, wavPath, outDir string) (*Result, error) {
	args := []string{wavPath, outDir, "--notes-flag", b.notesFlag}
	if b.modelRef != "" {
		args = append(args, "--model", b.modelRef)
	}

	result, err := b.runner.RunScript(ctx, "transcribe_persist.py", args...)
	if err != nil {
		return nil, apperrors.NewStageError(apperrors.StageTranscription, "basic-pitch",
			result.ExitCode, strings.TrimSpace(result.Stderr), err)
	}

	stem := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	midiPath := filepath.Join(outDir, stem+"_basic_pitch.mid")
	sidecarPath := filepath.Join(outDir, stem+"_basic_pitch.csv")

	midiBytes, err := os.ReadFile(midiPath)
	if err != nil {
		return nil, apperrors.Transcription("basic-pitch", fmt.Errorf(
			"%w: expected %s per naming convention", apperrors.ErrArtifactMissing, midiPath))
	}

	res := &Result{MIDI: midiBytes}

	// The sidecar is requested but older versions silently skip it; the
	// adapter then derives notes from the MIDI (see Transcriber.Transcribe)
	if _, err := os.Stat(sidecarPath); err == nil {
		notes, err := readNoteSidecar(sidecarPath)
		if err != nil {
			return nil, apperrors.Transcription("basic-pitch", err)
		}
		res.Notes = notes
	}

	return res, nil
}

// readNoteSidecar parses the CSV note-event sidecar. Columns:
// start_time_s, end_time_s, pitch_midi, velocity[, pitch bends...]
func readNoteSidecar(path string) ([]NoteEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open note sidecar: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // trailing pitch-bend columns vary per row

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read sidecar header: %w", err)
	}
	col := columnIndex(header)
	for _, name := range []string{"start_time_s", "end_time_s", "pitch_midi", "velocity"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("sidecar missing column %q", name)
		}
	}

	var notes []NoteEvent
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sidecar row: %w", err)
		}

		onset, err := strconv.ParseFloat(record[col["start_time_s"]], 64)
		if err != nil {
			return nil, fmt.Errorf("sidecar start time: %w", err)
		}
		offset, err := strconv.ParseFloat(record[col["end_time_s"]], 64)
		if err != nil {
			return nil, fmt.Errorf("sidecar end time: %w", err)
		}
		pitch, err := strconv.ParseFloat(record[col["pitch_midi"]], 64)
		if err != nil {
			return nil, fmt.Errorf("sidecar pitch: %w", err)
		}
		velocity, err := strconv.ParseFloat(record[col["velocity"]], 64)
		if err != nil {
			return nil, fmt.Errorf("sidecar velocity: %w", err)
		}

		notes = append(notes, NoteEvent{
			Pitch:      int(pitch),
			Onset:      onset,
			Offset:     offset,
			Confidence: velocity / 127.0,
		})
	}

	SortNotes(notes)
	return notes, nil
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	return col
}
