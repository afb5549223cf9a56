package scanning

import (
	"context"
	"log/slog"

	"github.com/contre95/musicdex/src/infra/watcher"
)

// Watcher defines the interface for file system watchers
type Watcher interface {
	Start(ctx context.Context, root string) error
	Stop()
}

// pendingChecker is implemented by job services that can tell whether a job
// type is already queued.
type pendingChecker interface {
	HasPendingJob(jobType string) bool
}

// WatchLibrary starts a scan job every time the watcher reports a burst of
// changes, unless a scan is already waiting to run. It returns once the
// watcher is running; events are handled until ctx is done.
func (s *Service) WatchLibrary(ctx context.Context, w Watcher, events <-chan watcher.FileEvent) error {
	root := s.config.Get().LibraryPath
	if err := w.Start(ctx, root); err != nil {
		return err
	}
	go func() {
		defer w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if pc, ok := s.jobService.(pendingChecker); ok && pc.HasPendingJob(JobType) {
					slog.Debug("Library changed, scan already queued", "path", ev.Path, "changes", ev.Count)
					continue
				}
				slog.Info("Library changed, scheduling scan", "path", ev.Path, "type", ev.EventType, "changes", ev.Count)
				if _, err := s.StartScan(false); err != nil {
					slog.Error("Failed to start scan after library change", "error", err)
				}
			}
		}
	}()
	return nil
}
