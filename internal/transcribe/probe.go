package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
)

// capabilities describes which model entry points the installed version
// exposes, as reported by the probe script
type capabilities struct {
	HasPredict        bool
	HasPredictAndSave bool
	// NotesFlag is the keyword the persist entry point uses for requesting
	// the note-event sidecar; versions drifted between two spellings
	NotesFlag string
}

// probeReport mirrors the probe script's JSON output
type probeReport struct {
	Entries map[string][]string `json:"entries"` // entry point -> parameter names
}

// knownNotesFlags are the only accepted spellings of the note-event
// parameter. Anything else means an unknown model version: fail fast
// instead of guessing.
var knownNotesFlags = []string{"save_note_events", "save_notes"}

// probeBackend asks the model package which entry points it exposes and
// with which parameter names. One deterministic pass; the report decides
// the strategy for the life of the process.
func probeBackend(ctx context.Context, runner *exec.Runner) (*capabilities, error) {
	result, err := runner.RunScript(ctx, "probe_backend.py")
	if err != nil {
		return nil, apperrors.NewStageError(apperrors.StageBackendProbe, "basic-pitch",
			result.ExitCode, strings.TrimSpace(result.Stderr),
			fmt.Errorf("%w: %v", apperrors.ErrToolNotInstalled, err))
	}

	var report probeReport
	if err := json.Unmarshal([]byte(result.Stdout), &report); err != nil {
		return nil, apperrors.UnsupportedBackend(fmt.Sprintf("unreadable probe report: %v", err))
	}

	caps := &capabilities{}

	if _, ok := report.Entries["predict"]; ok {
		caps.HasPredict = true
	}

	if params, ok := report.Entries["predict_and_save"]; ok {
		flag, err := resolveNotesFlag(params)
		if err != nil {
			return nil, err
		}
		caps.HasPredictAndSave = true
		caps.NotesFlag = flag
	}

	if !caps.HasPredict && !caps.HasPredictAndSave {
		return nil, apperrors.UnsupportedBackend("probe found no usable entry point")
	}

	return caps, nil
}

// resolveNotesFlag matches the persist entry point's parameters against the
// known spellings of the note-event flag
func resolveNotesFlag(params []string) (string, error) {
	for _, known := range knownNotesFlags {
		for _, p := range params {
			if p == known {
				return known, nil
			}
		}
	}
	return "", apperrors.UnsupportedBackend(fmt.Sprintf(
		"predict_and_save parameters %v match no known note-event convention", params))
}
