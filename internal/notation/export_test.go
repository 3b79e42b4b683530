package notation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
)

func TestExportMusicXMLInputChecks(t *testing.T) {
	e := NewExporter(exec.NewRunner("python3", t.TempDir()))
	dir := t.TempDir()

	t.Run("MissingInput", func(t *testing.T) {
		err := e.ExportMusicXML(context.Background(), filepath.Join(dir, "nope.mid"), filepath.Join(dir, "out.musicxml"))
		if !errors.Is(err, apperrors.ErrFileNotFound) {
			t.Errorf("err = %v, want ErrFileNotFound", err)
		}
		if !apperrors.IsStage(err, apperrors.StageNotation) {
			t.Errorf("err should carry the notation stage, got %v", err)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		midiPath := filepath.Join(dir, "empty.mid")
		if err := os.WriteFile(midiPath, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		err := e.ExportMusicXML(context.Background(), midiPath, filepath.Join(dir, "out.musicxml"))
		if !errors.Is(err, apperrors.ErrCorruptedFile) {
			t.Errorf("err = %v, want ErrCorruptedFile", err)
		}
	})

	// either check failing must leave the output path untouched
	if _, err := os.Stat(filepath.Join(dir, "out.musicxml")); !os.IsNotExist(err) {
		t.Error("failed export should not create an output file")
	}
}

// fakeRunner renders MusicXML as a pure function of the MIDI bytes, standing
// in for the notate script
type fakeRunner struct {
	scriptCalls int
}

func (f *fakeRunner) RunScript(ctx context.Context, script string, args ...string) (*exec.Result, error) {
	f.scriptCalls++
	midiBytes, err := os.ReadFile(args[0])
	if err != nil {
		return &exec.Result{}, err
	}
	out := fmt.Sprintf("<score>%x</score>", sha256.Sum256(midiBytes))
	if err := os.WriteFile(args[1], []byte(out), 0o644); err != nil {
		return &exec.Result{}, err
	}
	return &exec.Result{}, nil
}

func (f *fakeRunner) RunTool(ctx context.Context, name string, args ...string) (*exec.Result, error) {
	return &exec.Result{}, nil
}

func (f *fakeRunner) CheckTool(name string) error { return nil }

func TestExportMusicXMLIsPure(t *testing.T) {
	runner := &fakeRunner{}
	e := NewExporter(runner)
	midiBytes := []byte("MThd fixed midi content")

	export := func(dir string) []byte {
		t.Helper()
		midiPath := filepath.Join(dir, "transcription.mid")
		xmlPath := filepath.Join(dir, "score.musicxml")
		if err := os.WriteFile(midiPath, midiBytes, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := e.ExportMusicXML(context.Background(), midiPath, xmlPath); err != nil {
			t.Fatalf("ExportMusicXML: %v", err)
		}
		out, err := os.ReadFile(xmlPath)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	first := export(t.TempDir())
	second := export(t.TempDir())
	if !bytes.Equal(first, second) {
		t.Error("identical midi bytes must yield identical notation")
	}
	if runner.scriptCalls != 2 {
		t.Errorf("scriptCalls = %d, want one render per export", runner.scriptCalls)
	}
}

func TestExportMusicXMLRegeneratesStaleOutput(t *testing.T) {
	e := NewExporter(&fakeRunner{})
	dir := t.TempDir()
	midiPath := filepath.Join(dir, "transcription.mid")
	xmlPath := filepath.Join(dir, "score.musicxml")
	midiBytes := []byte("MThd fixed midi content")
	if err := os.WriteFile(midiPath, midiBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := e.ExportMusicXML(context.Background(), midiPath, xmlPath); err != nil {
		t.Fatalf("ExportMusicXML: %v", err)
	}
	fresh, err := os.ReadFile(xmlPath)
	if err != nil {
		t.Fatal(err)
	}

	// a stale or tampered score is overwritten, never patched
	if err := os.WriteFile(xmlPath, []byte("<score>stale</score>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.ExportMusicXML(context.Background(), midiPath, xmlPath); err != nil {
		t.Fatalf("ExportMusicXML: %v", err)
	}
	regenerated, err := os.ReadFile(xmlPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(fresh, regenerated) {
		t.Error("re-export must regenerate the score from the midi bytes")
	}

	// the export reads the midi, it never rewrites it
	after, err := os.ReadFile(midiPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(after, midiBytes) {
		t.Error("export must leave the midi artifact untouched")
	}
}

func TestEngravePDFToolMissing(t *testing.T) {
	// confine PATH so mscore cannot be found even on machines that have it
	t.Setenv("PATH", t.TempDir())

	e := NewExporter(exec.NewRunner("python3", t.TempDir()))
	err := e.EngravePDF(context.Background(), "score.musicxml", "score.pdf")
	if !errors.Is(err, apperrors.ErrToolNotInstalled) {
		t.Errorf("err = %v, want ErrToolNotInstalled", err)
	}
}
