package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
)

// WaveInfo describes a decoded waveform file
type WaveInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// Probe reads the header of a WAV file and reports its format. A file that
// is unreadable, not RIFF/WAVE, or holds zero samples is an error: the
// normalization contract never lets an empty waveform through silently.
func Probe(path string) (*WaveInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptedFile, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", apperrors.ErrCorruptedFile, path)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptedFile, err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrEmptyAudio, path)
	}

	return &WaveInfo{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
		Duration:   duration,
	}, nil
}
