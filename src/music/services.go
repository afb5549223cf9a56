package music

// JobService defines the interface for job management used by features
// that only need to enqueue work.
type JobService interface {
	StartJob(jobType string, name string, metadata map[string]any) (string, error)
	UpdateJobProgress(jobID string, progress int, message string)
}
