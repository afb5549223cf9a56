package jobs

import (
	"context"
	"fmt"
	"strconv"
)

// Task defines the specific logic for a job type.
type Task interface {
	MetadataKeys() []string
	Execute(ctx context.Context, job *Job, progressUpdater func(int, string)) (map[string]any, error)
	Cleanup(job *Job) error
}

// TaskHandler runs a job and reports progress through progressChan.
type TaskHandler interface {
	Execute(ctx context.Context, job *Job, progressChan chan<- JobProgress) error
}

// BaseTaskHandler adapts a Task to the TaskHandler interface.
type BaseTaskHandler struct {
	Task Task
}

// NewBaseTaskHandler creates a new BaseTaskHandler.
func NewBaseTaskHandler(task Task) *BaseTaskHandler {
	return &BaseTaskHandler{Task: task}
}

// Execute validates metadata, runs the task and hands its stats to the service.
func (h *BaseTaskHandler) Execute(ctx context.Context, job *Job, progressChan chan<- JobProgress) error {
	job.Logger.Info("Starting job", "name", job.Name)

	for _, key := range h.Task.MetadataKeys() {
		if _, ok := job.Metadata[key]; !ok {
			err := fmt.Errorf("missing %s in job metadata", key)
			job.Logger.Error("Error: " + err.Error())
			return err
		}
	}

	progressUpdater := func(percentage int, status string) {
		progressChan <- JobProgress{JobID: job.ID, Progress: percentage, Message: status}
		job.Logger.Info("Progress", "percentage", percentage, "status", status)
	}

	stats, err := h.Task.Execute(ctx, job, progressUpdater)
	if cerr := h.Task.Cleanup(job); cerr != nil {
		job.Logger.Error("Error during job cleanup", "error", cerr)
	}
	// Stats go through the service so they are merged under its lock.
	if stats != nil {
		progressChan <- JobProgress{JobID: job.ID, Stats: stats}
	}
	if err != nil {
		job.Logger.Error("Error during job execution", "error", err)
		return err
	}

	job.Logger.Info("Job finished successfully", "name", job.Name)
	return nil
}

// BoolMetadata reads a boolean flag from job metadata. Strings such as "true" or "1" are accepted.
func BoolMetadata(job *Job, key string) bool {
	switch v := job.Metadata[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// IntMetadata reads a positive integer from job metadata, returning def when absent or invalid.
func IntMetadata(job *Job, key string, def int) int {
	switch v := job.Metadata[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
