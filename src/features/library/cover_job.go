package library

import (
	"context"
	"fmt"

	"github.com/contre95/musicdex/src/features/jobs"
)

// CoverJobType is the job type that warms the cover thumbnail cache.
const CoverJobType = "artwork_prefetch"

// CoverPrefetchTask downloads the covers of every album with a release group MBID.
type CoverPrefetchTask struct {
	service *Service
}

// NewCoverPrefetchTask creates a new cover prefetch task.
func NewCoverPrefetchTask(service *Service) *CoverPrefetchTask {
	return &CoverPrefetchTask{service: service}
}

func (t *CoverPrefetchTask) MetadataKeys() []string {
	return []string{}
}

func (t *CoverPrefetchTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	var mbids []string
	seen := map[string]bool{}
	for offset := 0; ; offset += 100 {
		albums, err := t.service.library.GetAlbumsPaginated(ctx, 100, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list albums: %w", err)
		}
		if len(albums) == 0 {
			break
		}
		for _, album := range albums {
			if album.MBID != "" && !seen[album.MBID] {
				seen[album.MBID] = true
				mbids = append(mbids, album.MBID)
			}
		}
	}
	job.Logger.Info("Prefetching covers", "albums", len(mbids))
	progressUpdater(10, fmt.Sprintf("Fetching %d covers", len(mbids)))

	workers := t.service.configManager.Get().Scan.Workers
	stored, err := t.service.covers.Prefetch(ctx, mbids, workers)
	if err != nil {
		return map[string]any{"stored": stored}, err
	}

	msg := fmt.Sprintf("%d of %d covers available", stored, len(mbids))
	progressUpdater(100, msg)
	return map[string]any{"stored": stored, "albums": len(mbids), "msg": msg}, nil
}

func (t *CoverPrefetchTask) Cleanup(job *jobs.Job) error {
	return nil
}
