package metrics

import (
	"context"
	"log/slog"
	"sort"
)

// Service provides metrics functionality for the music library.
type Service struct {
	metrics LibraryMetrics
}

// NewService creates a new metrics service.
func NewService(metrics LibraryMetrics) *Service {
	return &Service{metrics: metrics}
}

// Metric represents a single metric data point.
type Metric struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value int    `json:"value"`
}

// MetricsData holds all metrics for display.
type MetricsData struct {
	GenreCounts          []Metric `json:"genre_counts"`
	FormatDistribution   []Metric `json:"format_distribution"`
	YearDistribution     []Metric `json:"year_distribution"`
	MetadataCompleteness []Metric `json:"metadata_completeness"`
	TotalSongs           int      `json:"total_songs"`
	TotalArtists         int      `json:"total_artists"`
	TotalAlbums          int      `json:"total_albums"`
	TotalScrobbles       int      `json:"total_scrobbles"`
}

// GetAllMetrics retrieves live totals and the distributions stored by the last stats job.
func (s *Service) GetAllMetrics(ctx context.Context) (*MetricsData, error) {
	data := &MetricsData{}

	if n, err := s.metrics.GetTotalSongs(ctx); err != nil {
		slog.Warn("Failed to get song count", "error", err)
	} else {
		data.TotalSongs = n
	}
	if n, err := s.metrics.GetTotalArtists(ctx); err != nil {
		slog.Warn("Failed to get artist count", "error", err)
	} else {
		data.TotalArtists = n
	}
	if n, err := s.metrics.GetTotalAlbums(ctx); err != nil {
		slog.Warn("Failed to get album count", "error", err)
	} else {
		data.TotalAlbums = n
	}
	if n, err := s.metrics.GetTotalScrobbles(ctx); err != nil {
		slog.Warn("Failed to get scrobble count", "error", err)
	} else {
		data.TotalScrobbles = n
	}

	var err error
	if data.GenreCounts, err = s.getMetricsByType(ctx, TypeGenreCounts); err != nil {
		slog.Warn("Failed to get genre counts", "error", err)
	}
	if data.FormatDistribution, err = s.getMetricsByType(ctx, TypeFormatDistribution); err != nil {
		slog.Warn("Failed to get format distribution", "error", err)
	}
	if data.YearDistribution, err = s.getMetricsByType(ctx, TypeYearDistribution); err != nil {
		slog.Warn("Failed to get year distribution", "error", err)
	}
	if data.MetadataCompleteness, err = s.getMetricsByType(ctx, TypeMetadataCompleteness); err != nil {
		slog.Warn("Failed to get metadata completeness", "error", err)
	}

	return data, nil
}

// convertMapToMetrics converts a map[string]int to []Metric sorted by descending value
func convertMapToMetrics(data map[string]int, metricType string) []Metric {
	metrics := make([]Metric, 0, len(data))
	for key, value := range data {
		metrics = append(metrics, Metric{Type: metricType, Key: key, Value: value})
	}
	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].Value == metrics[j].Value {
			return metrics[i].Key < metrics[j].Key
		}
		return metrics[i].Value > metrics[j].Value
	})
	return metrics
}

func (s *Service) getMetricsByType(ctx context.Context, metricType string) ([]Metric, error) {
	stored, err := s.metrics.GetStoredMetrics(ctx, metricType)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(stored))
	for _, m := range stored {
		counts[m.Key] = m.Value
	}
	return convertMapToMetrics(counts, metricType), nil
}
