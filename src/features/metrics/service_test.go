package metrics

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/contre95/musicdex/src/features/jobs"
)

// mockMetrics is a mock implementation of LibraryMetrics backed by maps.
type mockMetrics struct {
	LibraryMetrics
	stored map[string]map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{stored: map[string]map[string]int{}}
}

func (m *mockMetrics) GetGenreDistribution(ctx context.Context) (map[string]int, error) {
	return map[string]int{"Rock": 5, "Jazz": 2, "Ambient": 2}, nil
}
func (m *mockMetrics) GetFormatDistribution(ctx context.Context) (map[string]int, error) {
	return map[string]int{"flac": 7, "mp3": 2}, nil
}
func (m *mockMetrics) GetYearDistribution(ctx context.Context) (map[string]int, error) {
	return map[string]int{"1990s": 9}, nil
}
func (m *mockMetrics) GetMetadataCompleteness(ctx context.Context) (MetadataCompletenessStats, error) {
	return MetadataCompletenessStats{Complete: 4, MissingMBID: 5, MissingGenre: 0, MissingYear: 1}, nil
}
func (m *mockMetrics) GetTotalSongs(ctx context.Context) (int, error)     { return 9, nil }
func (m *mockMetrics) GetTotalArtists(ctx context.Context) (int, error)   { return 3, nil }
func (m *mockMetrics) GetTotalAlbums(ctx context.Context) (int, error)    { return 2, nil }
func (m *mockMetrics) GetTotalScrobbles(ctx context.Context) (int, error) { return 40, nil }

func (m *mockMetrics) StoreMetric(ctx context.Context, metricType, key string, value int) error {
	if m.stored[metricType] == nil {
		m.stored[metricType] = map[string]int{}
	}
	m.stored[metricType][key] = value
	return nil
}

func (m *mockMetrics) GetStoredMetrics(ctx context.Context, metricType string) ([]StoredMetric, error) {
	var out []StoredMetric
	for k, v := range m.stored[metricType] {
		out = append(out, StoredMetric{Type: metricType, Key: k, Value: v})
	}
	return out, nil
}

func (m *mockMetrics) ClearStoredMetrics(ctx context.Context) error {
	m.stored = map[string]map[string]int{}
	return nil
}

func TestStatsTask_StoresDistributions(t *testing.T) {
	mock := newMockMetrics()
	mock.stored["stale"] = map[string]int{"x": 1}
	task := NewStatsTask(mock)
	job := &jobs.Job{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	stats, err := task.Execute(context.Background(), job, func(int, string) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats["stored"] != 10 {
		t.Errorf("expected 10 stored values, got %v", stats["stored"])
	}
	if _, ok := mock.stored["stale"]; ok {
		t.Error("expected stale metrics to be cleared")
	}
	if got := mock.stored[TypeMetadataCompleteness]["missing_mbid"]; got != 5 {
		t.Errorf("expected missing_mbid=5, got %d", got)
	}
}

func TestGetAllMetrics_SortsByValue(t *testing.T) {
	mock := newMockMetrics()
	task := NewStatsTask(mock)
	job := &jobs.Job{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if _, err := task.Execute(context.Background(), job, func(int, string) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := NewService(mock).GetAllMetrics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.TotalSongs != 9 || data.TotalScrobbles != 40 {
		t.Errorf("unexpected totals: %+v", data)
	}
	want := []string{"Rock", "Ambient", "Jazz"}
	if len(data.GenreCounts) != len(want) {
		t.Fatalf("expected %d genres, got %d", len(want), len(data.GenreCounts))
	}
	for i, key := range want {
		if data.GenreCounts[i].Key != key {
			t.Errorf("genre %d: expected %s, got %s", i, key, data.GenreCounts[i].Key)
		}
	}
}
