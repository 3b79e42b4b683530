// Package config provides the configuration schema and loader for the
// piano-arranger server and CLI.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Audio    AudioConfig    `yaml:"audio"`
	Backend  BackendConfig  `yaml:"backend"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	DataDir        string   `yaml:"data_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AudioConfig defines the canonical waveform format every input is
// normalized to before transcription.
type AudioConfig struct {
	SampleRate  int     `yaml:"sample_rate"`
	Channels    int     `yaml:"channels"`
	ClipSeconds float64 `yaml:"clip_seconds"` // URL downloads are trimmed to this bound
}

// BackendConfig selects how the note-detection model is invoked.
type BackendConfig struct {
	PythonPath string `yaml:"python_path"`
	ScriptsDir string `yaml:"scripts_dir"`
	// Prefer is the preferred entry point: "memory" (in-process predict,
	// self-describing return) or "persist" (predict-and-save to directory).
	// "auto" probes once at startup and picks memory when available.
	Prefer string `yaml:"prefer"`
}

// PipelineConfig holds per-stage timeouts.
type PipelineConfig struct {
	DownloadTimeout   time.Duration `yaml:"download_timeout"`
	NormalizeTimeout  time.Duration `yaml:"normalize_timeout"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
	NotationTimeout   time.Duration `yaml:"notation_timeout"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8080,
			DataDir: "data",
		},
		Audio: AudioConfig{
			SampleRate:  22050,
			Channels:    1,
			ClipSeconds: 30,
		},
		Backend: BackendConfig{
			Prefer: "auto",
		},
		Pipeline: PipelineConfig{
			DownloadTimeout:   5 * time.Minute,
			NormalizeTimeout:  2 * time.Minute,
			TranscribeTimeout: 3 * time.Minute,
			NotationTimeout:   2 * time.Minute,
		},
	}
}
