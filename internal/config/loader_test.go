package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromReader(t *testing.T) {
	yml := `
server:
  port: 9000
  data_dir: /tmp/arranger
audio:
  sample_rate: 44100
  channels: 2
  clip_seconds: 15
backend:
  prefer: persist
pipeline:
  transcribe_timeout: 90s
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ClipSeconds != 15 {
		t.Errorf("clip seconds = %g, want 15", cfg.Audio.ClipSeconds)
	}
	if cfg.Backend.Prefer != "persist" {
		t.Errorf("prefer = %q, want persist", cfg.Backend.Prefer)
	}
	if cfg.Pipeline.TranscribeTimeout != 90*time.Second {
		t.Errorf("transcribe timeout = %v, want 90s", cfg.Pipeline.TranscribeTimeout)
	}
}

func TestLoadFromReaderEmptyKeepsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	def := Default()
	if cfg.Audio.SampleRate != def.Audio.SampleRate {
		t.Errorf("sample rate = %d, want default %d", cfg.Audio.SampleRate, def.Audio.SampleRate)
	}
	if cfg.Backend.Prefer != "auto" {
		t.Errorf("prefer = %q, want auto", cfg.Backend.Prefer)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("serverr:\n  port: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"BadPort", func(c *Config) { c.Server.Port = -1 }},
		{"BadSampleRate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"BadChannels", func(c *Config) { c.Audio.Channels = 5 }},
		{"BadClip", func(c *Config) { c.Audio.ClipSeconds = 0 }},
		{"BadPrefer", func(c *Config) { c.Backend.Prefer = "yolo" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Validate(Default()); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}
