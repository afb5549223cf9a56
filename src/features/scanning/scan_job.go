package scanning

import (
	"context"
	"fmt"

	"github.com/contre95/musicdex/src/features/jobs"
)

// ScanTask implements jobs.Task for library scans.
type ScanTask struct {
	service *Service
}

// NewScanTask creates a new ScanTask.
func NewScanTask(service *Service) *ScanTask {
	return &ScanTask{service: service}
}

// MetadataKeys returns the required metadata keys for a scan job.
func (t *ScanTask) MetadataKeys() []string {
	return []string{}
}

// Execute scans the configured library path.
func (t *ScanTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	root := t.service.config.Get().LibraryPath
	force := jobs.BoolMetadata(job, "force")

	stats, err := t.service.Scan(ctx, root, force, job.Logger, progressUpdater)
	result := map[string]any{"stats": stats}
	if err != nil {
		result["msg"] = "Library scan aborted"
		return result, fmt.Errorf("failed to scan library: %w", err)
	}

	msg := fmt.Sprintf("Library scan finished. %d files (%d added, %d updated, %d unchanged, %d removed, %d errors).",
		stats.Found, stats.Added, stats.Updated, stats.Unchanged, stats.Removed, stats.Errors)
	job.Logger.Info(msg)
	progressUpdater(100, msg)
	result["msg"] = msg
	return result, nil
}

// Cleanup does nothing for library scans.
func (t *ScanTask) Cleanup(job *jobs.Job) error {
	return nil
}
