package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
)

// Normalizer re-encodes any supported input container to the canonical
// uncompressed waveform format
type Normalizer struct {
	runner     *exec.Runner
	sampleRate int
	channels   int
}

// NewNormalizer creates a normalizer targeting the given canonical format
func NewNormalizer(runner *exec.Runner, sampleRate, channels int) *Normalizer {
	return &Normalizer{
		runner:     runner,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Normalize decodes inputPath and writes a canonical PCM WAV to outputPath.
// Re-normalizing an already-canonical asset is a no-op copy. Zero-length or
// corrupt input fails instead of silently producing an empty file.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputPath string) (*WaveInfo, error) {
	if _, err := ValidateInput(inputPath); err != nil {
		return nil, apperrors.Normalization("ffmpeg", err)
	}

	// Idempotence: a probe-confirmed canonical waveform is copied verbatim
	if info, err := Probe(inputPath); err == nil &&
		info.SampleRate == n.sampleRate && info.Channels == n.channels && info.BitDepth == 16 {
		if err := copyFile(inputPath, outputPath); err != nil {
			return nil, apperrors.Normalization("copy", err)
		}
		return info, nil
	}

	if err := transcodeWAV(ctx, n.runner, inputPath, outputPath, n.sampleRate, n.channels, 0); err != nil {
		return nil, apperrors.Normalization("ffmpeg", err)
	}

	info, err := Probe(outputPath)
	if err != nil {
		os.Remove(outputPath)
		return nil, apperrors.Normalization("ffmpeg", err)
	}
	return info, nil
}

// transcodeWAV runs ffmpeg to produce a pcm_s16le WAV at the given rate and
// channel count, optionally truncated to clipSeconds. Output goes through a
// tmp name and is renamed only on success, so a partial file is never left
// at the final path.
func transcodeWAV(ctx context.Context, runner *exec.Runner, inputPath, outputPath string, sampleRate, channels int, clipSeconds float64) error {
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	args := transcodeArgs(inputPath, tmpPath, sampleRate, channels, clipSeconds)
	result, err := runner.RunTool(ctx, "ffmpeg", args...)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w (stderr: %s)", err, strings.TrimSpace(result.Stderr))
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: ffmpeg wrote no output", apperrors.ErrEmptyAudio)
	}

	return os.Rename(tmpPath, outputPath)
}

// transcodeArgs assembles the ffmpeg argument list for one canonical-WAV
// transcode. clipSeconds > 0 bounds the output; 0 keeps the full duration.
func transcodeArgs(inputPath, outputPath string, sampleRate, channels int, clipSeconds float64) []string {
	args := []string{
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
	}
	if clipSeconds > 0 {
		args = append(args, "-t", fmt.Sprintf("%g", clipSeconds))
	}
	return append(args, outputPath)
}

// copyFile copies src to dst
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
