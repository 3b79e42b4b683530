package server

import (
	"context"
	"sync"
	"time"

	"github.com/trevorkates/piano-arranger/internal/audio"
	"github.com/trevorkates/piano-arranger/internal/config"
	"github.com/trevorkates/piano-arranger/internal/exec"
	"github.com/trevorkates/piano-arranger/internal/pipeline"
	"github.com/trevorkates/piano-arranger/internal/session"
	"github.com/trevorkates/piano-arranger/internal/transcribe"
)

// Job status constants
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one session's trip through the pipeline
type Job struct {
	ID        string // equals the session's correlation id
	Status    JobStatus
	Stage     string
	Session   *session.Session
	Result    *pipeline.Summary
	Error     string
	Updates   chan string
	CreatedAt time.Time
}

// JobManager runs the pipeline per job, one goroutine per session
type JobManager struct {
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	downloader   *audio.Downloader
	sessions     *session.Manager
	jobs         map[string]*Job
	mu           sync.RWMutex
}

// NewJobManager creates a new job manager
func NewJobManager(cfg *config.Config, runner *exec.Runner, transcriber *transcribe.Transcriber, sessions *session.Manager) *JobManager {
	return &JobManager{
		cfg:          cfg,
		orchestrator: pipeline.NewOrchestrator(cfg, runner, transcriber),
		downloader:   audio.NewDownloader(runner),
		sessions:     sessions,
		jobs:         make(map[string]*Job),
	}
}

// FetchTitle resolves a media URL's display title
func (m *JobManager) FetchTitle(ctx context.Context, url string) (string, error) {
	return m.downloader.FetchTitle(ctx, url)
}

// Create opens a session and a job tracking it
func (m *JobManager) Create() (*Job, error) {
	sess, err := m.sessions.Create()
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        sess.ID,
		Status:    StatusPending,
		Stage:     "Uploading...",
		Session:   sess,
		Updates:   make(chan string, 10),
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
	return job, nil
}

// Get retrieves a job by ID
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// Reset discards one session's artifacts; other sessions are untouched
func (m *JobManager) Reset(id string) error {
	m.mu.Lock()
	job := m.jobs[id]
	m.mu.Unlock()
	if job == nil {
		return session.ErrNotFound
	}

	if err := m.sessions.Reset(id); err != nil {
		return err
	}

	job.Status = StatusPending
	job.Stage = "Reset"
	job.Result = nil
	job.Error = ""
	return nil
}

// Process runs the pipeline for a job
func (m *JobManager) Process(job *Job, in pipeline.Input) {
	defer close(job.Updates)
	defer func() {
		// Expire the session after an hour
		time.AfterFunc(time.Hour, func() {
			m.sessions.Remove(job.ID)
			m.mu.Lock()
			delete(m.jobs, job.ID)
			m.mu.Unlock()
		})
	}()

	job.Status = StatusProcessing
	ctx := context.Background()

	notify := func(msg string) {
		job.Stage = msg
		select {
		case job.Updates <- msg:
		default:
		}
	}

	summary, err := m.orchestrator.Run(ctx, job.Session, in, notify)
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		job.Result = summary // artifacts from completed stages stay served
		notify("Error: " + err.Error())
		return
	}

	job.Result = summary
	job.Status = StatusComplete
	notify("Complete!")
}
