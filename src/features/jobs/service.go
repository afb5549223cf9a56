package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/infra/monitoring"
	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ErrJobNotFound is returned when a job ID is unknown.
var ErrJobNotFound = errors.New("job not found")

// ErrUnknownJobType is returned when no handler is registered for a job type.
var ErrUnknownJobType = errors.New("unknown job type")

type Job struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Name       string             `json:"name"`
	Status     JobStatus          `json:"status"`
	Progress   int                `json:"progress"`
	Message    string             `json:"message"`
	Error      string             `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
	Logger     *slog.Logger       `json:"-"`
	LogPath    string             `json:"log_path,omitempty"`
	logFile    *os.File
	cancelFunc context.CancelFunc
	cancelled  bool
}

// Finished reports whether the job reached a terminal state.
func (j *Job) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCancelled
}

func (j *Job) setStatus(status JobStatus, message, errMsg string) {
	j.Status = status
	j.Message = message
	j.Error = errMsg
	j.UpdatedAt = time.Now()
	if status == JobStatusCompleted {
		j.Progress = 100
	}
}

// snapshot copies the job so callers can read it without holding the service lock.
func (j *Job) snapshot() *Job {
	cp := *j
	cp.Metadata = maps.Clone(j.Metadata)
	return &cp
}

func (j *Job) closeLog() {
	if j.logFile == nil {
		return
	}
	if err := j.logFile.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		slog.Warn("Failed to close job log", "id", j.ID, "error", err)
	}
}

// JobProgress is sent by handlers while a job runs. A non-nil Stats is merged
// into the job metadata instead of updating progress.
type JobProgress struct {
	JobID    string
	Progress int
	Message  string
	Stats    map[string]any
}

// JobService defines the interface for job management that other services will use
type JobService interface {
	StartJob(jobType string, name string, metadata map[string]any) (string, error)
	UpdateJobProgress(jobID string, progress int, message string)
	GetJob(jobID string) (*Job, bool)
	CancelJob(jobID string) error
	GetJobs() []*Job
}

type Service struct {
	jobs     map[string]*Job
	handlers map[string]TaskHandler
	mu       sync.RWMutex
	config   *config.Jobs
	wg       sync.WaitGroup
}

func NewService(cfg *config.Jobs) *Service {
	return &Service{
		jobs:     make(map[string]*Job),
		handlers: make(map[string]TaskHandler),
		config:   cfg,
	}
}

func (s *Service) RegisterHandler(jobType string, handler TaskHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = handler
}

// JobTypes returns the registered job types, sorted.
func (s *Service) JobTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.handlers))
	for t := range s.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// StartJob queues a job. It runs immediately unless a job of the same type is already running,
// in which case it waits as pending until that one finishes.
func (s *Service) StartJob(jobType string, name string, metadata map[string]any) (string, error) {
	s.mu.RLock()
	_, known := s.handlers[jobType]
	s.mu.RUnlock()
	if !known {
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Name:      name,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}

	if s.config.Log {
		if err := os.MkdirAll(s.config.LogPath, 0755); err != nil {
			return "", fmt.Errorf("failed to create log directory: %w", err)
		}
		logPath := filepath.Join(s.config.LogPath, fmt.Sprintf("%s-%s.log", now.Format("2006-01-02"), job.ID))
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return "", fmt.Errorf("failed to open log file: %w", err)
		}
		job.Logger = slog.New(slog.NewTextHandler(logFile, nil))
		job.LogPath = logPath
		job.logFile = logFile
	} else {
		job.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	if s.isJobTypeRunning(jobType) {
		slog.Info("Job queued behind a running job of the same type", "type", jobType, "id", job.ID)
		return job.ID, nil
	}
	s.launch(job)
	return job.ID, nil
}

// launch marks the job running and starts it. The job context exists before
// the goroutine does, so a CancelJob right after StartJob always reaches it.
// s.mu must be held.
func (s *Service) launch(job *Job) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancelFunc = cancel
	job.setStatus(JobStatusRunning, "Starting...", "")
	s.wg.Add(1)
	go s.executeJob(ctx, job)
}

func (s *Service) executeJob(ctx context.Context, job *Job) {
	defer s.wg.Done()

	s.mu.RLock()
	handler := s.handlers[job.Type]
	cancelled := job.cancelled
	s.mu.RUnlock()

	var err error
	if cancelled || ctx.Err() != nil {
		err = context.Canceled
	} else {
		err = s.runHandler(ctx, handler, job)
	}

	// The job keeps its type's running slot until here. Finishing it and
	// promoting the next pending job happen under one lock.
	s.mu.Lock()
	job.cancelFunc()
	switch {
	case job.cancelled || errors.Is(err, context.Canceled):
		job.setStatus(JobStatusCancelled, "Job cancelled", "")
	case err != nil:
		job.setStatus(JobStatusFailed, "Job failed", err.Error())
	default:
		msg := "Job completed successfully"
		if m, ok := job.Metadata["msg"].(string); ok && m != "" {
			msg = m
		}
		job.setStatus(JobStatusCompleted, msg, "")
	}
	status := job.Status
	s.launchNextPending(job.Type)
	s.wg.Add(1)
	s.mu.Unlock()

	monitoring.JobsFinished.WithLabelValues(job.Type, string(status)).Inc()
	slog.Info("Job finished", "type", job.Type, "id", job.ID, "status", status)

	go func() {
		defer s.wg.Done()
		s.executeWebhook(job)
		job.closeLog()
	}()
}

func (s *Service) runHandler(ctx context.Context, handler TaskHandler, job *Job) error {
	progressChan := make(chan JobProgress, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for progress := range progressChan {
			if progress.Stats != nil {
				s.mergeMetadata(progress.JobID, progress.Stats)
				continue
			}
			s.UpdateJobProgress(progress.JobID, progress.Progress, progress.Message)
		}
	}()
	err := handler.Execute(ctx, job, progressChan)
	close(progressChan)
	<-done
	return err
}

func (s *Service) mergeMetadata(jobID string, stats map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		if job.Metadata == nil {
			job.Metadata = make(map[string]any)
		}
		maps.Copy(job.Metadata, stats)
	}
}

func (s *Service) UpdateJobProgress(jobID string, progress int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		if job.Finished() {
			return
		}
		job.Progress = progress
		if !job.cancelled {
			job.Message = message
		}
		job.UpdatedAt = time.Now()
	}
}

// CancelJob cancels a pending or running job. Pending jobs never start. A
// running job stays running until its handler returns.
func (s *Service) CancelJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Finished() || job.cancelled {
		return nil
	}
	job.cancelled = true
	if job.Status == JobStatusPending {
		job.setStatus(JobStatusCancelled, "Job cancelled", "")
		job.closeLog()
		return nil
	}
	job.Message = "Cancelling..."
	job.UpdatedAt = time.Now()
	job.cancelFunc()
	return nil
}

// GetJob returns a snapshot of the job.
func (s *Service) GetJob(jobID string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// GetJobs returns snapshots of every job, newest first.
func (s *Service) GetJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// HasPendingJob reports whether a job of the given type is waiting to run.
func (s *Service) HasPendingJob(jobType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, job := range s.jobs {
		if job.Type == jobType && job.Status == JobStatusPending {
			return true
		}
	}
	return false
}

// Wait blocks until every started job returned, or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelAll cancels every unfinished job.
func (s *Service) CancelAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.jobs))
	for id, job := range s.jobs {
		if !job.Finished() {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	for _, id := range ids {
		_ = s.CancelJob(id)
	}
}

func (s *Service) isJobTypeRunning(jobType string) bool {
	for _, job := range s.jobs {
		if job.Type == jobType && job.Status == JobStatusRunning {
			return true
		}
	}
	return false
}

// launchNextPending starts the oldest pending job of jobType. s.mu must be held.
func (s *Service) launchNextPending(jobType string) {
	var nextJob *Job
	for _, job := range s.jobs {
		if job.Type == jobType && job.Status == JobStatusPending {
			if nextJob == nil || job.CreatedAt.Before(nextJob.CreatedAt) {
				nextJob = job
			}
		}
	}
	if nextJob != nil {
		s.launch(nextJob)
	}
}

// CleanupOldJobs forgets finished jobs older than maxAge and removes their logs.
func (s *Service) CleanupOldJobs(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > maxAge && job.Finished() {
			if job.LogPath != "" {
				os.Remove(job.LogPath)
			}
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// ClearFinishedJobs forgets every finished job.
func (s *Service) ClearFinishedJobs() int {
	return s.CleanupOldJobs(-1)
}

// executeWebhook runs the configured shell command once a job reaches a terminal state.
func (s *Service) executeWebhook(job *Job) {
	if !s.config.Webhooks.Enabled {
		return
	}
	if !slices.Contains(s.config.Webhooks.JobTypes, job.Type) && !slices.Contains(s.config.Webhooks.JobTypes, "*") {
		return
	}

	s.mu.RLock()
	data := struct {
		Name     string
		Type     string
		Status   string
		Message  string
		Duration string
	}{
		Name:     job.Name,
		Type:     job.Type,
		Status:   string(job.Status),
		Message:  job.Message,
		Duration: time.Since(job.CreatedAt).Round(time.Second).String(),
	}
	s.mu.RUnlock()

	tmpl, err := template.New("webhook").Parse(s.config.Webhooks.Command)
	if err != nil {
		job.Logger.Error("Failed to parse webhook template", "error", err)
		return
	}
	var command strings.Builder
	if err := tmpl.Execute(&command, data); err != nil {
		job.Logger.Error("Failed to execute webhook template", "error", err)
		return
	}

	runWebhookCommand(command.String(), job.Logger)
}

func runWebhookCommand(command string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Env = os.Environ()
	if out, err := cmd.CombinedOutput(); err != nil {
		logger.Error("Webhook execution failed", "command", command, "error", err, "output", string(out))
		return
	}
	logger.Info("Webhook executed successfully", "command", command)
}
