package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trevorkates/piano-arranger/internal/audio"
	"github.com/trevorkates/piano-arranger/internal/pipeline"
	"github.com/trevorkates/piano-arranger/internal/session"
)

const maxUploadSize = 100 * 1024 * 1024 // 100MB

// handleIndex serves the main upload page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", map[string]any{})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleUpload ingests an uploaded audio file or a media URL
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !strings.Contains(err.Error(), "no multipart") {
		s.renderError(w, "File too large. Maximum size is 100MB.", http.StatusBadRequest)
		return
	}

	// URL path first
	mediaURL := r.FormValue("url")
	if mediaURL != "" && audio.IsSupportedURL(mediaURL) {
		s.handleMediaURL(w, r, mediaURL)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		if mediaURL != "" {
			s.renderError(w, "Invalid media URL. Please provide a valid youtube.com or youtu.be link.", http.StatusBadRequest)
		} else {
			s.renderError(w, "Please upload an audio file or paste a media URL.", http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	// Extension allow-list is enforced before any session asset exists
	format, err := audio.FormatForFilename(header.Filename)
	if err != nil {
		s.renderError(w, "Unsupported format. Please upload a WAV, MP3, M4A, FLAC or OGG file.", http.StatusBadRequest)
		return
	}

	job, err := s.jobs.Create()
	if err != nil {
		s.renderError(w, "Failed to create session.", http.StatusInternalServerError)
		return
	}

	// Store upload bytes verbatim inside the session directory
	inputPath := job.Session.UploadPath(format.Ext())
	dst, err := os.Create(inputPath)
	if err != nil {
		s.renderError(w, "Failed to save file.", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		s.renderError(w, "Failed to save file.", http.StatusInternalServerError)
		return
	}

	job.Session.Title = header.Filename

	go s.jobs.Process(job, pipeline.Input{UploadPath: inputPath})

	s.render(w, "processing.html", map[string]any{
		"JobID":    job.ID,
		"Filename": header.Filename,
	})
}

// handleMediaURL ingests a media URL for download-based acquisition
func (s *Server) handleMediaURL(w http.ResponseWriter, r *http.Request, url string) {
	job, err := s.jobs.Create()
	if err != nil {
		s.renderError(w, "Failed to create session.", http.StatusInternalServerError)
		return
	}

	// Fetch title for display only; failure falls back to a placeholder
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	title, err := s.jobs.FetchTitle(ctx, url)
	cancel()
	if err != nil || title == "" {
		title = "Media Source"
	}
	job.Session.Title = title

	go s.jobs.Process(job, pipeline.Input{URL: url})

	s.render(w, "processing.html", map[string]any{
		"JobID":    job.ID,
		"Filename": title,
	})
}

// handleStatus streams job progress via SSE
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job := s.jobs.Get(jobID)

	if job == nil {
		s.renderError(w, "Session not found.", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case update := <-job.Updates:
			fmt.Fprintf(w, "event: progress\n")
			fmt.Fprintf(w, "data: %s\n\n", update)
			flusher.Flush()

			if job.Status == StatusComplete || job.Status == StatusFailed {
				fmt.Fprintf(w, "event: done\n")
				fmt.Fprintf(w, "data: %s\n\n", job.Status)
				flusher.Flush()
				return
			}
		}
	}
}

// handleResult returns the final result page
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job := s.jobs.Get(jobID)

	if job == nil {
		s.renderError(w, "Session not found.", http.StatusNotFound)
		return
	}

	if job.Status == StatusFailed {
		// artifacts from the stages that completed stay downloadable
		_, hasAudio := job.Session.ArtifactPath(session.ArtifactAudio)
		_, hasMIDI := job.Session.ArtifactPath(session.ArtifactMIDI)
		_, hasScore := job.Session.ArtifactPath(session.ArtifactMusicXML)
		_, hasNotes := job.Session.ArtifactPath(session.ArtifactNotes)
		s.render(w, "error.html", map[string]any{
			"Error":    job.Error,
			"JobID":    job.ID,
			"HasAudio": hasAudio,
			"HasMIDI":  hasMIDI,
			"HasScore": hasScore,
			"HasNotes": hasNotes,
		})
		return
	}

	if job.Status != StatusComplete {
		s.render(w, "processing.html", map[string]any{
			"JobID":    job.ID,
			"Filename": job.Session.Title,
			"Stage":    job.Stage,
		})
		return
	}

	// Only artifacts whose stage succeeded are offered
	_, hasAudio := job.Session.ArtifactPath(session.ArtifactAudio)
	_, hasMIDI := job.Session.ArtifactPath(session.ArtifactMIDI)
	_, hasScore := job.Session.ArtifactPath(session.ArtifactMusicXML)
	_, hasNotes := job.Session.ArtifactPath(session.ArtifactNotes)

	s.render(w, "result.html", map[string]any{
		"JobID":      job.ID,
		"Filename":   job.Session.Title,
		"NoteCount":  job.Result.NoteCount,
		"Backend":    job.Result.Backend,
		"SampleRate": job.Result.SampleRate,
		"Duration":   fmt.Sprintf("%.1fs", job.Result.Duration.Seconds()),
		"HasAudio":   hasAudio,
		"HasMIDI":    hasMIDI,
		"HasScore":   hasScore,
		"HasNotes":   hasNotes,
	})
}

// handleDownload serves one artifact as a named byte stream
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	kind := session.Artifact(chi.URLParam(r, "artifact"))
	job := s.jobs.Get(jobID)

	if job == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	contentType := kind.ContentType()
	if contentType == "" {
		http.Error(w, "Invalid artifact", http.StatusBadRequest)
		return
	}

	// Absent artifacts are not offered; never served empty
	path, ok := job.Session.ArtifactPath(kind)
	if !ok {
		http.Error(w, "Artifact not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", downloadName(job.Session.Title, kind)))
	http.ServeFile(w, r, path)
}

// handleReset discards all artifacts of one session
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if err := s.jobs.Reset(jobID); err != nil {
		s.renderError(w, "Session not found.", http.StatusNotFound)
		return
	}
	s.render(w, "index.html", map[string]any{
		"Notice": "Session cleared.",
	})
}

// downloadName builds an attachment filename for an artifact kind
func downloadName(title string, kind session.Artifact) string {
	base := title
	// uploaded titles carry their original extension; strip any allow-listed one
	if _, err := audio.FormatForFilename(title); err == nil {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if base == "" {
		base = "arrangement"
	}
	switch kind {
	case session.ArtifactAudio:
		return base + ".wav"
	case session.ArtifactMIDI:
		return base + ".mid"
	case session.ArtifactMusicXML:
		return base + ".musicxml"
	case session.ArtifactNotes:
		return base + ".notes.json"
	}
	return base
}

// render renders a template
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// renderError renders an error message
func (s *Server) renderError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	s.templates.ExecuteTemplate(w, "error.html", map[string]any{
		"Error": message,
	})
}
