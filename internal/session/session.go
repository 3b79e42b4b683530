// Package session groups one input asset with its derived artifacts under a
// shared correlation id. Each session owns an isolated directory; reset
// removes exactly that directory and nothing else.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SourceKind records where the input audio came from
type SourceKind string

const (
	SourceUploaded   SourceKind = "uploaded"
	SourceDownloaded SourceKind = "downloaded"
)

// AudioAsset references a decoded waveform artifact
type AudioAsset struct {
	ID         string
	Source     SourceKind
	Path       string
	SampleRate int
	Channels   int
	BoundSec   float64 // 0 means unbounded
}

// Artifact kinds servable from a session
type Artifact string

const (
	ArtifactAudio    Artifact = "audio"
	ArtifactMIDI     Artifact = "midi"
	ArtifactMusicXML Artifact = "musicxml"
	ArtifactNotes    Artifact = "notes"
)

// MIME types per artifact kind
var mimeTypes = map[Artifact]string{
	ArtifactAudio:    "audio/wav",
	ArtifactMIDI:     "audio/midi",
	ArtifactMusicXML: "application/vnd.recordare.musicxml+xml",
	ArtifactNotes:    "application/json",
}

// ContentType returns the MIME type for an artifact kind
func (a Artifact) ContentType() string {
	return mimeTypes[a]
}

// Session is one request's workspace: an input asset plus at most one
// transcription and one notation artifact, all inside Dir.
type Session struct {
	ID        string
	Dir       string
	Title     string // display name: uploaded filename or video title
	Asset     *AudioAsset
	CreatedAt time.Time

	// artifact presence flags; a file is registered only after its stage
	// fully succeeded, so delivery never sees partial output
	artifacts map[Artifact]string
}

// New creates a session with a fresh uuid and its own directory under root
func New(root string) (*Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Session{
		ID:        id,
		Dir:       dir,
		CreatedAt: time.Now(),
		artifacts: make(map[Artifact]string),
	}, nil
}

// Path helpers for well-known files inside the session directory
func (s *Session) UploadPath(ext string) string { return filepath.Join(s.Dir, "input"+ext) }
func (s *Session) CanonicalWAV() string         { return filepath.Join(s.Dir, "normalized.wav") }
func (s *Session) MIDIPath() string             { return filepath.Join(s.Dir, "transcription.mid") }
func (s *Session) MusicXMLPath() string         { return filepath.Join(s.Dir, "score.musicxml") }
func (s *Session) NotesPath() string            { return filepath.Join(s.Dir, "notes.json") }
func (s *Session) ScorePDFPath() string         { return filepath.Join(s.Dir, "score.pdf") }

// Register marks an artifact as complete and servable
func (s *Session) Register(kind Artifact, path string) {
	s.artifacts[kind] = path
}

// ArtifactPath returns the path of a registered artifact, if present
func (s *Session) ArtifactPath(kind Artifact) (string, bool) {
	p, ok := s.artifacts[kind]
	if !ok {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Reset discards every artifact and returns the session directory to its
// pre-ingestion state. Only this session's directory is touched.
func (s *Session) Reset() error {
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("reset session %s: %w", s.ID, err)
	}
	s.Asset = nil
	s.artifacts = make(map[Artifact]string)
	return os.MkdirAll(s.Dir, 0o755)
}

// Remove deletes the session directory entirely
func (s *Session) Remove() error {
	return os.RemoveAll(s.Dir)
}
