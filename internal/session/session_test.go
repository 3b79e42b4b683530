package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewSessionCreatesIsolatedDir(t *testing.T) {
	root := t.TempDir()

	a, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if a.ID == b.ID {
		t.Fatal("session ids must be unique")
	}
	if a.Dir == b.Dir {
		t.Fatal("session dirs must not collide")
	}
	if filepath.Dir(a.Dir) != root {
		t.Errorf("session dir %s not under root %s", a.Dir, root)
	}
}

func TestArtifactRegistration(t *testing.T) {
	sess, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok := sess.ArtifactPath(ArtifactMIDI); ok {
		t.Error("unregistered artifact should not be offered")
	}

	// registered but missing on disk: still not offered
	sess.Register(ArtifactMIDI, sess.MIDIPath())
	if _, ok := sess.ArtifactPath(ArtifactMIDI); ok {
		t.Error("registered artifact with no file should not be offered")
	}

	if err := os.WriteFile(sess.MIDIPath(), []byte("MThd"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, ok := sess.ArtifactPath(ArtifactMIDI)
	if !ok {
		t.Fatal("artifact should be offered once the file exists")
	}
	if path != sess.MIDIPath() {
		t.Errorf("path = %s, want %s", path, sess.MIDIPath())
	}
}

func TestContentTypes(t *testing.T) {
	if ct := ArtifactMIDI.ContentType(); ct != "audio/midi" {
		t.Errorf("midi content type = %q", ct)
	}
	if ct := ArtifactMusicXML.ContentType(); ct == "" {
		t.Error("musicxml content type missing")
	}
	if ct := Artifact("bogus").ContentType(); ct != "" {
		t.Errorf("unknown artifact should have no content type, got %q", ct)
	}
}

func TestResetDiscardsOnlyOwnArtifacts(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	a, _ := mgr.Create()
	b, _ := mgr.Create()

	writeArtifact := func(s *Session) {
		if err := os.WriteFile(s.MIDIPath(), []byte("MThd"), 0o644); err != nil {
			t.Fatal(err)
		}
		s.Register(ArtifactMIDI, s.MIDIPath())
	}
	writeArtifact(a)
	writeArtifact(b)

	if err := mgr.Reset(a.ID); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if _, ok := a.ArtifactPath(ArtifactMIDI); ok {
		t.Error("reset session should have no artifacts")
	}
	if _, ok := b.ArtifactPath(ArtifactMIDI); !ok {
		t.Error("reset of session A must not remove session B's artifacts")
	}

	// the reset session is back to its pre-ingestion state and usable
	if _, err := os.Stat(a.Dir); err != nil {
		t.Errorf("reset session dir should exist: %v", err)
	}
	if a.Asset != nil {
		t.Error("reset session should have no asset")
	}
}

func TestResetUnknownSession(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Reset("nope"); err == nil {
		t.Error("expected error for unknown session id")
	}
}

func TestRemove(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	s, _ := mgr.Create()
	dir := s.Dir
	mgr.Remove(s.ID)

	if mgr.Get(s.ID) != nil {
		t.Error("removed session should not be retrievable")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("removed session dir should be gone")
	}
}
