package metrics

import "context"

// LibraryMetrics provides analytics and reporting functionality for the music library.
type LibraryMetrics interface {
	GetGenreDistribution(ctx context.Context) (map[string]int, error)
	GetFormatDistribution(ctx context.Context) (map[string]int, error)
	GetYearDistribution(ctx context.Context) (map[string]int, error)
	GetMetadataCompleteness(ctx context.Context) (MetadataCompletenessStats, error)

	GetTotalSongs(ctx context.Context) (int, error)
	GetTotalArtists(ctx context.Context) (int, error)
	GetTotalAlbums(ctx context.Context) (int, error)
	GetTotalScrobbles(ctx context.Context) (int, error)

	// Storage operations for cached metrics
	StoreMetric(ctx context.Context, metricType, key string, value int) error
	GetStoredMetrics(ctx context.Context, metricType string) ([]StoredMetric, error)
	ClearStoredMetrics(ctx context.Context) error
}

// MetadataCompletenessStats represents the completeness of metadata across songs.
type MetadataCompletenessStats struct {
	Complete     int // Songs with title, artist, album, genre, year and MBID
	MissingMBID  int
	MissingGenre int
	MissingYear  int
}

// StoredMetric represents a cached metric stored in the database.
type StoredMetric struct {
	Type  string // The type of metric (e.g., "genre_counts")
	Key   string // The metric key (e.g., genre name)
	Value int    // The metric value (count)
}

const (
	TypeGenreCounts          = "genre_counts"
	TypeFormatDistribution   = "format_distribution"
	TypeYearDistribution     = "year_distribution"
	TypeMetadataCompleteness = "metadata_completeness"
)
