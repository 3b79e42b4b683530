package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/trevorkates/piano-arranger/internal/errors"
	"github.com/trevorkates/piano-arranger/internal/exec"
)

// targetBitrate is the fixed bitrate for the lossy intermediate produced by
// yt-dlp before re-encoding to the canonical waveform
const targetBitrate = "192K"

// Downloader acquires audio from a media URL via yt-dlp
type Downloader struct {
	runner *exec.Runner
}

// NewDownloader creates a new media downloader
func NewDownloader(runner *exec.Runner) *Downloader {
	return &Downloader{runner: runner}
}

// IsSupportedURL checks if the given string is a supported media URL
func IsSupportedURL(url string) bool {
	patterns := []string{
		`^https?://(www\.)?youtube\.com/watch\?v=[\w-]+`,
		`^https?://(www\.)?youtube\.com/shorts/[\w-]+`,
		`^https?://youtu\.be/[\w-]+`,
		`^https?://music\.youtube\.com/watch\?v=[\w-]+`,
	}

	for _, pattern := range patterns {
		if matched, _ := regexp.MatchString(pattern, url); matched {
			return true
		}
	}
	return false
}

// Download fetches the best available audio stream, transcodes it to an mp3
// intermediate at a fixed bitrate, then re-encodes the first clipSeconds to
// a canonical WAV. The intermediate is deleted once the trim succeeds.
// Exactly one output file is produced, at a caller-derivable path.
func (d *Downloader) Download(ctx context.Context, url, outputDir string, sampleRate, channels int, clipSeconds float64) (string, error) {
	if err := d.runner.CheckTool("yt-dlp"); err != nil {
		return "", apperrors.Acquisition("yt-dlp", apperrors.ErrToolNotInstalled)
	}

	template := filepath.Join(outputDir, "download.%(ext)s")
	intermediatePath := filepath.Join(outputDir, "download.mp3")

	result, err := d.runner.RunTool(ctx, "yt-dlp",
		"--no-playlist",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", targetBitrate,
		"--output", template,
		"--no-warnings",
		"--quiet",
		url,
	)
	if err != nil {
		return "", apperrors.NewStageError(apperrors.StageAcquisition, "yt-dlp",
			result.ExitCode, strings.TrimSpace(result.Stderr), err)
	}

	// yt-dlp must yield exactly the file the naming template derives
	if _, err := os.Stat(intermediatePath); err != nil {
		return "", apperrors.Acquisition("yt-dlp",
			fmt.Errorf("%w: expected %s", apperrors.ErrArtifactMissing, intermediatePath))
	}

	wavPath := filepath.Join(outputDir, "download.wav")
	if err := transcodeWAV(ctx, d.runner, intermediatePath, wavPath, sampleRate, channels, clipSeconds); err != nil {
		return "", apperrors.Acquisition("ffmpeg", err)
	}

	os.Remove(intermediatePath)
	return wavPath, nil
}

// FetchTitle fetches the media title for display
func (d *Downloader) FetchTitle(ctx context.Context, url string) (string, error) {
	result, err := d.runner.RunTool(ctx, "yt-dlp",
		"--get-title",
		"--no-warnings",
		url,
	)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(result.Stdout)
	if title == "" {
		return "Media Source", nil
	}
	if len(title) > 50 {
		title = title[:47] + "..."
	}
	return title, nil
}
