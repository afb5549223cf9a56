package metrics

import (
	"context"
	"fmt"

	"github.com/contre95/musicdex/src/features/jobs"
)

// JobType is the job type registered for the stats calculation.
const JobType = "library_stats"

// StatsTask implements jobs.Task for calculating library distributions.
type StatsTask struct {
	metrics LibraryMetrics
}

// NewStatsTask creates a new stats calculation task.
func NewStatsTask(metrics LibraryMetrics) *StatsTask {
	return &StatsTask{metrics: metrics}
}

// MetadataKeys returns the required metadata keys (none needed).
func (t *StatsTask) MetadataKeys() []string {
	return []string{}
}

// Execute recomputes every stored distribution.
func (t *StatsTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	job.Logger.Info("Starting library stats calculation")

	if err := t.metrics.ClearStoredMetrics(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear metrics: %w", err)
	}
	progressUpdater(10, "Cleared existing metrics")

	steps := []struct {
		metricType string
		message    string
		progress   int
		load       func(context.Context) (map[string]int, error)
	}{
		{TypeGenreCounts, "Calculating genre distribution", 30, t.metrics.GetGenreDistribution},
		{TypeFormatDistribution, "Analyzing audio formats", 50, t.metrics.GetFormatDistribution},
		{TypeYearDistribution, "Calculating temporal metrics", 70, t.metrics.GetYearDistribution},
		{TypeMetadataCompleteness, "Checking metadata completeness", 90, t.completeness},
	}

	stored := 0
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progressUpdater(step.progress, step.message)
		values, err := step.load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate %s: %w", step.metricType, err)
		}
		for key, value := range values {
			if err := t.metrics.StoreMetric(ctx, step.metricType, key, value); err != nil {
				return nil, fmt.Errorf("failed to store %s/%s: %w", step.metricType, key, err)
			}
			stored++
		}
	}

	RefreshLibraryGauges(ctx, t.metrics)
	msg := fmt.Sprintf("Library stats calculated (%d values stored)", stored)
	progressUpdater(100, msg)
	job.Logger.Info(msg, "color", "green")

	return map[string]any{"stored": stored, "msg": msg}, nil
}

func (t *StatsTask) completeness(ctx context.Context) (map[string]int, error) {
	stats, err := t.metrics.GetMetadataCompleteness(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		"complete":      stats.Complete,
		"missing_mbid":  stats.MissingMBID,
		"missing_genre": stats.MissingGenre,
		"missing_year":  stats.MissingYear,
	}, nil
}

// Cleanup performs cleanup after job execution.
func (t *StatsTask) Cleanup(job *jobs.Job) error {
	return nil
}
