package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trevorkates/piano-arranger/internal/audio"
	"github.com/trevorkates/piano-arranger/internal/config"
	"github.com/trevorkates/piano-arranger/internal/exec"
	"github.com/trevorkates/piano-arranger/internal/pipeline"
	"github.com/trevorkates/piano-arranger/internal/progress"
	"github.com/trevorkates/piano-arranger/internal/server"
	"github.com/trevorkates/piano-arranger/internal/session"
	"github.com/trevorkates/piano-arranger/internal/transcribe"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "piano-arranger",
	Short: "Turn audio into MIDI and sheet music",
	Long: `Piano Arranger transcribes audio to MIDI with the Basic Pitch model
and converts the result into printable sheet music.

Pipeline: audio → normalization → note transcription → MusicXML`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Start the web interface for uploading audio files or pasting
media URLs.

Example:
  piano-arranger serve --port 8080`,
	RunE: runServe,
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe an audio file or media URL",
	Long: `Run the full pipeline on a local audio file or a media URL and
write the artifacts to an output directory.

Examples:
  piano-arranger transcribe --input song.mp3 --out ./result
  piano-arranger transcribe --url "https://youtube.com/watch?v=..." --out ./result`,
	RunE: runTranscribe,
}

var (
	configPath string
	port       int
	inputPath  string
	inputURL   string
	outputDir  string
	modelRef   string
	backend    string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "transcription backend: auto, memory or persist")
	rootCmd.PersistentFlags().StringVar(&modelRef, "model", "", "explicit model path (default: bundled model)")

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port")

	transcribeCmd.Flags().StringVarP(&inputPath, "input", "i", "", "input audio file")
	transcribeCmd.Flags().StringVar(&inputURL, "url", "", "media URL to download")
	transcribeCmd.Flags().StringVarP(&outputDir, "out", "o", "arrangement", "output directory")
	transcribeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose progress output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(transcribeCmd)
}

// loadConfig merges the config file with command-line overrides
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if backend != "" {
		cfg.Backend.Prefer = backend
	}
	if cfg.Backend.ScriptsDir == "" {
		cfg.Backend.ScriptsDir = findScriptsDir()
	}
	return cfg, config.Validate(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner := exec.NewRunner(cfg.Backend.PythonPath, cfg.Backend.ScriptsDir)

	// Resolve the backend once; the selection holds for every request
	transcriber, err := transcribe.Resolve(cmd.Context(), runner, cfg.Backend.Prefer, modelRef)
	if err != nil {
		return fmt.Errorf("resolve transcription backend: %w", err)
	}

	srv, err := server.New(cfg, runner, transcriber)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	return srv.Run()
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	if inputPath == "" && inputURL == "" {
		return fmt.Errorf("either --input or --url is required")
	}
	if inputURL != "" && !audio.IsSupportedURL(inputURL) {
		return fmt.Errorf("unsupported media URL: %s", inputURL)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	runner := exec.NewRunner(cfg.Backend.PythonPath, cfg.Backend.ScriptsDir)
	reporter := progress.NewReporter(os.Stdout, verbose)

	transcriber, err := transcribe.Resolve(ctx, runner, cfg.Backend.Prefer, modelRef)
	if err != nil {
		return fmt.Errorf("resolve transcription backend: %w", err)
	}
	reporter.Update("Using %s backend", transcriber.BackendName())

	sessions, err := session.NewManager(outputDir)
	if err != nil {
		return err
	}
	sess, err := sessions.Create()
	if err != nil {
		return err
	}

	in := pipeline.Input{URL: inputURL}
	if inputPath != "" {
		format, err := audio.FormatForFilename(inputPath)
		if err != nil {
			return err
		}
		// Work on a copy; the session owns everything under its directory
		stored := sess.UploadPath(format.Ext())
		if err := copyInto(inputPath, stored); err != nil {
			return err
		}
		in.UploadPath = stored
	}

	orchestrator := pipeline.NewOrchestrator(cfg, runner, transcriber)

	reporter.StartStage(progress.StageAcquire)
	summary, err := orchestrator.Run(ctx, sess, in, func(msg string) {
		reporter.StageComplete("%s", msg)
	})
	if err != nil {
		reporter.Error(err)
		return err
	}

	reporter.StageComplete("Backend: %s, notes: %d", summary.Backend, summary.NoteCount)
	reporter.Done(sess.Dir)
	return nil
}

func copyInto(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return os.WriteFile(dst, data, 0o644)
}

// findScriptsDir locates the Python helper scripts directory
func findScriptsDir() string {
	// Check relative to executable
	exe, err := os.Executable()
	if err == nil {
		dir := filepath.Join(filepath.Dir(exe), "scripts", "python")
		if dirExists(dir) {
			return dir
		}
	}

	// Check common development locations
	candidates := []string{
		"./scripts/python",
		"../scripts/python",
		"../../scripts/python",
	}
	for _, c := range candidates {
		if dirExists(c) {
			return c
		}
	}

	return "scripts/python"
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
