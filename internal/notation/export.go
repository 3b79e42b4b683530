// Package notation converts a MIDI artifact into symbolic staff notation.
// The MusicXML output is a pure function of the MIDI bytes; it is always
// regenerated, never mutated.
package notation

import (
	"context"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
)

// ScriptRunner is the slice of the subprocess runner the exporter needs;
// satisfied by [exec.Runner]
type ScriptRunner interface {
	RunScript(ctx context.Context, script string, args ...string) (*exec.Result, error)
	RunTool(ctx context.Context, name string, args ...string) (*exec.Result, error)
	CheckTool(name string) error
}

// Exporter renders MIDI to MusicXML via music21, with optional PDF
// engraving through MuseScore when it is installed
type Exporter struct {
	runner ScriptRunner
}

// NewExporter creates a notation exporter
func NewExporter(runner ScriptRunner) *Exporter {
	return &Exporter{runner: runner}
}

// ExportMusicXML writes symbolic notation for midiPath to xmlPath.
// Malformed or empty MIDI input fails without touching the transcription
// artifacts that produced it.
func (e *Exporter) ExportMusicXML(ctx context.Context, midiPath, xmlPath string) error {
	info, err := os.Stat(midiPath)
	if err != nil {
		return apperrors.Notation("music21", fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, midiPath))
	}
	if info.Size() == 0 {
		return apperrors.Notation("music21", fmt.Errorf("%w: empty midi input", apperrors.ErrCorruptedFile))
	}

	result, err := e.runner.RunScript(ctx, "notate.py", midiPath, xmlPath)
	if err != nil {
		return apperrors.NewStageError(apperrors.StageNotation, "music21",
			result.ExitCode, strings.TrimSpace(result.Stderr), err)
	}

	out, err := os.Stat(xmlPath)
	if err != nil || out.Size() == 0 {
		return apperrors.Notation("music21", apperrors.ErrArtifactMissing)
	}
	return nil
}

// EngravePDF renders MusicXML to print-ready PDF with mscore. The engraving
// tool is fully external; its absence is not an error, the MusicXML
// artifact stands alone.
func (e *Exporter) EngravePDF(ctx context.Context, xmlPath, pdfPath string) error {
	if err := e.runner.CheckTool("mscore"); err != nil {
		return fmt.Errorf("%w: mscore", apperrors.ErrToolNotInstalled)
	}

	result, err := e.runner.RunTool(ctx, "mscore", xmlPath, "-o", pdfPath)
	if err != nil {
		return apperrors.NewStageError(apperrors.StageNotation, "mscore",
			result.ExitCode, strings.TrimSpace(result.Stderr), err)
	}
	return nil
}
