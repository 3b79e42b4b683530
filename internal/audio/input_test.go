package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
)

// writeTestWAV writes a PCM WAV with the given format and duration
func writeTestWAV(t *testing.T, path string, sampleRate, channels int, seconds float64) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	frames := int(float64(sampleRate) * seconds)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

func TestFormatForFilename(t *testing.T) {
	t.Run("AllowList", func(t *testing.T) {
		for name, want := range map[string]Format{
			"song.wav":    FormatWAV,
			"song.MP3":    FormatMP3,
			"take.m4a":    FormatM4A,
			"master.flac": FormatFLAC,
			"loop.ogg":    FormatOGG,
		} {
			got, err := FormatForFilename(name)
			if err != nil {
				t.Errorf("%s: unexpected error %v", name, err)
				continue
			}
			if got != want {
				t.Errorf("%s: format = %q, want %q", name, got, want)
			}
		}
	})

	t.Run("RejectedExtension", func(t *testing.T) {
		_, err := FormatForFilename("readme.txt")
		if err == nil {
			t.Fatal("expected rejection for .txt")
		}
		if !errors.Is(err, apperrors.ErrUnsupportedFormat) {
			t.Errorf("want ErrUnsupportedFormat, got %v", err)
		}
		if !apperrors.IsStage(err, apperrors.StageAcquisition) {
			t.Error("rejection should be an acquisition-stage error")
		}
	})

	t.Run("NoExtension", func(t *testing.T) {
		if _, err := FormatForFilename("song"); err == nil {
			t.Error("expected rejection for missing extension")
		}
	})
}

func TestValidateInput(t *testing.T) {
	dir := t.TempDir()

	t.Run("ValidWAV", func(t *testing.T) {
		path := filepath.Join(dir, "tone.wav")
		writeTestWAV(t, path, 22050, 1, 0.5)

		format, err := ValidateInput(path)
		if err != nil {
			t.Fatalf("ValidateInput: %v", err)
		}
		if format != FormatWAV {
			t.Errorf("format = %q, want wav", format)
		}
	})

	t.Run("MagicBytesWinOverExtension", func(t *testing.T) {
		// WAV content under an mp3 name still sniffs as WAV
		path := filepath.Join(dir, "mislabeled.mp3")
		writeTestWAV(t, path, 22050, 1, 0.1)

		format, err := ValidateInput(path)
		if err != nil {
			t.Fatalf("ValidateInput: %v", err)
		}
		if format != FormatWAV {
			t.Errorf("format = %q, want wav from magic bytes", format)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := ValidateInput(filepath.Join(dir, "ghost.wav"))
		if !errors.Is(err, apperrors.ErrFileNotFound) {
			t.Errorf("want ErrFileNotFound, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		path := filepath.Join(dir, "empty.wav")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := ValidateInput(path)
		if !errors.Is(err, apperrors.ErrEmptyAudio) {
			t.Errorf("want ErrEmptyAudio, got %v", err)
		}
	})

	t.Run("UnknownBytesUnknownExtension", func(t *testing.T) {
		path := filepath.Join(dir, "data.bin")
		if err := os.WriteFile(path, []byte("not audio at all"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ValidateInput(path); err == nil {
			t.Error("expected rejection")
		}
	})
}

func TestSniffFormat(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name   string
		header []byte
		want   Format
	}{
		{"ID3Tag", []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"), FormatMP3},
		{"MP3FrameSync", []byte{0xFF, 0xFB, 0x90, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}, FormatMP3},
		{"FLAC", []byte("fLaC\x00\x00\x00\x22\x00\x00\x00\x00"), FormatFLAC},
		{"Ogg", []byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00"), FormatOGG},
		{"M4A", []byte{0, 0, 0, 0x20, 'f', 't', 'y', 'p', 'M', '4', 'A', ' '}, FormatM4A},
		{"Junk", []byte("hello world!"), FormatUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name)
			if err := os.WriteFile(path, tc.header, 0o644); err != nil {
				t.Fatal(err)
			}
			if got := sniffFormat(path); got != tc.want {
				t.Errorf("sniffFormat = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsSupportedURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/shorts/abc-123",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	for _, url := range valid {
		if !IsSupportedURL(url) {
			t.Errorf("should accept %s", url)
		}
	}

	invalid := []string{
		"",
		"ftp://youtube.com/watch?v=x",
		"https://example.com/watch?v=x",
		"not a url",
	}
	for _, url := range invalid {
		if IsSupportedURL(url) {
			t.Errorf("should reject %q", url)
		}
	}
}
