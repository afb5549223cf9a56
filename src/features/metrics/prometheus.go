package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/contre95/musicdex/src/infra/monitoring"
)

// RefreshLibraryGauges updates the library size gauges from the database.
func RefreshLibraryGauges(ctx context.Context, m LibraryMetrics) {
	counts := map[string]func(context.Context) (int, error){
		"songs":     m.GetTotalSongs,
		"artists":   m.GetTotalArtists,
		"albums":    m.GetTotalAlbums,
		"scrobbles": m.GetTotalScrobbles,
	}
	for kind, get := range counts {
		n, err := get(ctx)
		if err != nil {
			slog.Warn("Failed to refresh library gauge", "kind", kind, "error", err)
			continue
		}
		monitoring.LibraryItems.WithLabelValues(kind).Set(float64(n))
	}
}

// StartGaugeRefresher refreshes the library gauges every interval until ctx is done.
func StartGaugeRefresher(ctx context.Context, m LibraryMetrics, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		RefreshLibraryGauges(ctx, m)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				RefreshLibraryGauges(ctx, m)
			}
		}
	}()
}
