// Package pipeline runs the acquisition → normalization → transcription →
// notation chain for one session at a time. Control flows strictly forward;
// each stage runs to completion or failure before the next begins.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/trevorkates/piano-arranger/internal/audio"
	"github.com/trevorkates/piano-arranger/internal/config"
	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
	"github.com/trevorkates/piano-arranger/internal/notation"
	"github.com/trevorkates/piano-arranger/internal/session"
	"github.com/trevorkates/piano-arranger/internal/transcribe"
)

// Input selects the acquisition path: an already-stored upload inside the
// session directory, or a media URL to download
type Input struct {
	UploadPath string
	URL        string
}

// Summary reports what the pipeline produced
type Summary struct {
	Backend    string
	SampleRate int
	Channels   int
	Duration   time.Duration
	NoteCount  int
	HasScore   bool
	HasPDF     bool
}

// Orchestrator coordinates the full processing pipeline
type Orchestrator struct {
	cfg         *config.Config
	downloader  *audio.Downloader
	normalizer  *audio.Normalizer
	transcriber *transcribe.Transcriber
	exporter    *notation.Exporter
}

// NewOrchestrator wires the pipeline stages around a shared runner and an
// already-resolved transcription backend
func NewOrchestrator(cfg *config.Config, runner *exec.Runner, transcriber *transcribe.Transcriber) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		downloader:  audio.NewDownloader(runner),
		normalizer:  audio.NewNormalizer(runner, cfg.Audio.SampleRate, cfg.Audio.Channels),
		transcriber: transcriber,
		exporter:    notation.NewExporter(runner),
	}
}

// Run executes the pipeline for one session. notify receives human-readable
// progress messages. Artifacts are registered on the session only after
// their stage fully succeeded, so a failure withholds exactly the artifacts
// that depend on it and nothing already produced.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Session, in Input, notify func(string)) (*Summary, error) {
	if notify == nil {
		notify = func(string) {}
	}
	summary := &Summary{}

	// Stage 1: Acquisition
	inputPath := in.UploadPath
	if in.URL != "" {
		notify("Downloading audio...")
		dlCtx, cancel := context.WithTimeout(ctx, o.cfg.Pipeline.DownloadTimeout)
		defer cancel()

		path, err := o.downloader.Download(dlCtx, in.URL, sess.Dir,
			o.cfg.Audio.SampleRate, o.cfg.Audio.Channels, o.cfg.Audio.ClipSeconds)
		if err != nil {
			return nil, err
		}
		inputPath = path
		notify("Download complete")
	}

	format, err := audio.ValidateInput(inputPath)
	if err != nil {
		return nil, apperrors.Acquisition("upload", err)
	}
	notify(fmt.Sprintf("Valid %s input", format))

	// Stage 2: Normalization
	notify("Normalizing waveform...")
	normCtx, cancelNorm := context.WithTimeout(ctx, o.cfg.Pipeline.NormalizeTimeout)
	defer cancelNorm()

	info, err := o.normalizer.Normalize(normCtx, inputPath, sess.CanonicalWAV())
	if err != nil {
		return nil, err
	}

	asset := &session.AudioAsset{
		ID:         sess.ID,
		Source:     session.SourceUploaded,
		Path:       sess.CanonicalWAV(),
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	}
	if in.URL != "" {
		asset.Source = session.SourceDownloaded
		asset.BoundSec = o.cfg.Audio.ClipSeconds
	}
	sess.Asset = asset
	sess.Register(session.ArtifactAudio, sess.CanonicalWAV())
	summary.SampleRate = info.SampleRate
	summary.Channels = info.Channels
	summary.Duration = info.Duration
	notify(fmt.Sprintf("Canonical waveform ready (%d Hz, %d ch, %.1fs)",
		info.SampleRate, info.Channels, info.Duration.Seconds()))

	// Stage 3: Transcription
	notify("Transcribing to MIDI...")
	trCtx, cancelTr := context.WithTimeout(ctx, o.cfg.Pipeline.TranscribeTimeout)
	defer cancelTr()

	result, err := o.transcriber.Transcribe(trCtx, sess.CanonicalWAV(), sess.Dir)
	if err != nil {
		return nil, err
	}

	notesJSON, err := transcribe.EncodeNotes(result.Notes)
	if err != nil {
		return nil, apperrors.Transcription(o.transcriber.BackendName(), err)
	}
	// MIDI and note events land together or not at all
	if err := os.WriteFile(sess.MIDIPath(), result.MIDI, 0o644); err != nil {
		return nil, apperrors.Transcription(o.transcriber.BackendName(), err)
	}
	if err := os.WriteFile(sess.NotesPath(), notesJSON, 0o644); err != nil {
		os.Remove(sess.MIDIPath())
		return nil, apperrors.Transcription(o.transcriber.BackendName(), err)
	}
	sess.Register(session.ArtifactMIDI, sess.MIDIPath())
	sess.Register(session.ArtifactNotes, sess.NotesPath())
	summary.Backend = o.transcriber.BackendName()
	summary.NoteCount = len(result.Notes)
	notify(fmt.Sprintf("Transcribed %d notes", len(result.Notes)))

	// Stage 4: Notation export
	notify("Exporting sheet music...")
	noCtx, cancelNo := context.WithTimeout(ctx, o.cfg.Pipeline.NotationTimeout)
	defer cancelNo()

	if err := o.exporter.ExportMusicXML(noCtx, sess.MIDIPath(), sess.MusicXMLPath()); err != nil {
		// transcription artifacts stay downloadable
		return summary, err
	}
	sess.Register(session.ArtifactMusicXML, sess.MusicXMLPath())
	summary.HasScore = true
	notify("Sheet music ready")

	// PDF engraving is best effort; the MusicXML artifact stands alone
	if err := o.exporter.EngravePDF(noCtx, sess.MusicXMLPath(), sess.ScorePDFPath()); err != nil {
		if !errors.Is(err, apperrors.ErrToolNotInstalled) {
			notify("PDF engraving skipped")
		}
	} else {
		summary.HasPDF = true
	}

	return summary, nil
}
