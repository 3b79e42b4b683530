package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
)

const (
	MaxFileSize = 100 * 1024 * 1024 // 100MB
)

// Format represents an audio container format
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatM4A     Format = "m4a"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
	FormatUnknown Format = "unknown"
)

// allowedExtensions is the upload allow-list; anything else is rejected at
// ingestion before any asset is created
var allowedExtensions = map[string]Format{
	".wav":  FormatWAV,
	".mp3":  FormatMP3,
	".m4a":  FormatM4A,
	".flac": FormatFLAC,
	".ogg":  FormatOGG,
}

// FormatForFilename returns the allow-listed format for a declared filename,
// or an acquisition error for anything outside the allow-list.
func FormatForFilename(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	format, ok := allowedExtensions[ext]
	if !ok {
		return FormatUnknown, apperrors.Acquisition("upload",
			fmt.Errorf("%w: %q (allowed: wav, mp3, m4a, flac, ogg)", apperrors.ErrUnsupportedFormat, ext))
	}
	return format, nil
}

// Ext returns the canonical file extension for a format
func (f Format) Ext() string {
	return "." + string(f)
}

// ValidateInput checks that an ingested file exists, is within the size
// limit, and looks like audio. The magic-byte sniff is best effort: an
// allow-listed extension is never rejected on magic bytes alone, because
// ingestion stores upload bytes verbatim.
func ValidateInput(path string) (Format, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FormatUnknown, fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, path)
	}
	if err != nil {
		return FormatUnknown, fmt.Errorf("stat file: %w", err)
	}

	if info.Size() == 0 {
		return FormatUnknown, fmt.Errorf("%w: %s", apperrors.ErrEmptyAudio, path)
	}
	if info.Size() > MaxFileSize {
		return FormatUnknown, fmt.Errorf("%w: maximum size is 100MB", apperrors.ErrFileTooLarge)
	}

	if format := sniffFormat(path); format != FormatUnknown {
		return format, nil
	}

	return FormatForFilename(path)
}

// sniffFormat checks file magic bytes to determine audio format
func sniffFormat(path string) Format {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := f.Read(header)
	if err != nil || n < 4 {
		return FormatUnknown
	}

	switch {
	// WAV (RIFF....WAVE)
	case string(header[:4]) == "RIFF" && n >= 12 && string(header[8:12]) == "WAVE":
		return FormatWAV
	// MP3 with ID3 tag
	case string(header[:3]) == "ID3":
		return FormatMP3
	// MP3 frame sync
	case header[0] == 0xFF && (header[1]&0xE0) == 0xE0:
		return FormatMP3
	case string(header[:4]) == "fLaC":
		return FormatFLAC
	case string(header[:4]) == "OggS":
		return FormatOGG
	// MP4/M4A ftyp box
	case n >= 8 && string(header[4:8]) == "ftyp":
		return FormatM4A
	}

	return FormatUnknown
}
