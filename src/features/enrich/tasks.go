package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/contre95/musicdex/src/features/jobs"
	"github.com/contre95/musicdex/src/music"
)

// itemCounter tallies the outcome of each processed item.
type itemCounter struct {
	processed, updated, skipped, failed int
}

func (c *itemCounter) stats(msg string) map[string]any {
	return map[string]any{
		"processed": c.processed,
		"updated":   c.updated,
		"skipped":   c.skipped,
		"failed":    c.failed,
		"msg":       msg,
	}
}

// record counts one outcome and reports whether the item is still in the
// work queue afterwards.
func (c *itemCounter) record(updated bool, err error) (unchanged bool) {
	c.processed++
	switch {
	case err != nil:
		c.failed++
		return !updated
	case updated:
		c.updated++
		return false
	default:
		c.skipped++
		return true
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return min(99, done*100/total)
}

// MBIDTask matches songs without MBID on MusicBrainz.
type MBIDTask struct {
	service *Service
}

// NewMBIDTask creates a new MusicBrainz matching task.
func NewMBIDTask(service *Service) *MBIDTask {
	return &MBIDTask{service: service}
}

func (t *MBIDTask) MetadataKeys() []string {
	return []string{}
}

// Execute walks the songs without MBID in batches. With force every song is
// looked up again.
func (t *MBIDTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	force := jobs.BoolMetadata(job, "force")
	limit := jobs.IntMetadata(job, "limit", 0)

	total, err := t.service.library.GetSongsCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count songs: %w", err)
	}
	if limit > 0 && limit < total {
		total = limit
	}
	job.Logger.Info("Starting MusicBrainz matching", "force", force, "limit", limit)
	progressUpdater(0, "Looking for songs without MBID")

	var c itemCounter
	offset := 0
	for limit == 0 || c.processed < limit {
		size := batchSize
		if limit > 0 {
			size = min(size, limit-c.processed)
		}
		var songs []*music.Song
		if force {
			songs, err = t.service.library.GetSongsPaginated(ctx, size, offset)
		} else {
			songs, err = t.service.library.GetSongsWithoutMBID(ctx, size, offset)
		}
		if err != nil {
			return c.stats("failed to load songs"), fmt.Errorf("failed to load songs: %w", err)
		}
		if len(songs) == 0 {
			break
		}

		unchanged := 0
		for _, song := range songs {
			select {
			case <-ctx.Done():
				job.Logger.Info("MusicBrainz matching cancelled", "processed", c.processed, "updated", c.updated)
				return c.stats("cancelled"), ctx.Err()
			default:
			}

			updated, err := t.service.EnrichSong(ctx, song, force)
			if c.record(updated, err) {
				unchanged++
			}
			switch {
			case err != nil:
				job.Logger.Error("Failed to match song", "songID", song.ID, "title", song.Title, "error", err)
			case updated:
				job.Logger.Info("Matched song", "songID", song.ID, "title", song.Title, "mbid", song.MBID)
			default:
				job.Logger.Debug("No MusicBrainz match", "songID", song.ID, "title", song.Title)
			}
			progressUpdater(percent(c.processed, total), fmt.Sprintf("Processed %d songs: %s", c.processed, song.Title))
		}

		if force {
			offset += len(songs)
		} else {
			offset += unchanged
		}
	}

	msg := fmt.Sprintf("Matched %d songs, %d without match, %d failed", c.updated, c.skipped, c.failed)
	job.Logger.Info("MusicBrainz matching completed", "processed", c.processed, "updated", c.updated, "skipped", c.skipped, "failed", c.failed)
	progressUpdater(100, msg)
	return c.stats(msg), nil
}

func (t *MBIDTask) Cleanup(job *jobs.Job) error {
	slog.Debug("Cleaning up MusicBrainz matching job", "jobID", job.ID)
	return nil
}

// DiscogsTask stores Discogs artist profiles.
type DiscogsTask struct {
	service *Service
}

// NewDiscogsTask creates a new Discogs artist info task.
func NewDiscogsTask(service *Service) *DiscogsTask {
	return &DiscogsTask{service: service}
}

func (t *DiscogsTask) MetadataKeys() []string {
	return []string{}
}

func (t *DiscogsTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	force := jobs.BoolMetadata(job, "force")
	limit := jobs.IntMetadata(job, "limit", 0)

	total, err := t.service.library.GetArtistsCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count artists: %w", err)
	}
	if limit > 0 && limit < total {
		total = limit
	}
	job.Logger.Info("Starting Discogs artist enrichment", "force", force, "limit", limit)
	progressUpdater(0, "Looking for artists without Discogs info")

	var c itemCounter
	offset := 0
	for limit == 0 || c.processed < limit {
		size := batchSize
		if limit > 0 {
			size = min(size, limit-c.processed)
		}
		var artists []*music.Artist
		if force {
			artists, err = t.service.library.GetArtistsPaginated(ctx, size, offset)
		} else {
			artists, err = t.service.library.GetArtistsWithoutAttribute(ctx, music.AttrDiscogsID, size, offset)
		}
		if err != nil {
			return c.stats("failed to load artists"), fmt.Errorf("failed to load artists: %w", err)
		}
		if len(artists) == 0 {
			break
		}

		unchanged := 0
		for _, artist := range artists {
			select {
			case <-ctx.Done():
				job.Logger.Info("Discogs enrichment cancelled", "processed", c.processed, "updated", c.updated)
				return c.stats("cancelled"), ctx.Err()
			default:
			}

			updated, err := t.service.EnrichArtist(ctx, artist, force)
			if c.record(updated, err) {
				unchanged++
			}
			if err != nil {
				job.Logger.Error("Failed to enrich artist", "artistID", artist.ID, "name", artist.Name, "error", err)
			} else if updated {
				job.Logger.Info("Stored Discogs info", "artistID", artist.ID, "name", artist.Name, "discogsID", artist.Attributes[music.AttrDiscogsID])
			}
			progressUpdater(percent(c.processed, total), fmt.Sprintf("Processed %d artists: %s", c.processed, artist.Name))
		}

		if force {
			offset += len(artists)
		} else {
			offset += unchanged
		}
	}

	msg := fmt.Sprintf("Updated %d artists, %d without match, %d failed", c.updated, c.skipped, c.failed)
	job.Logger.Info("Discogs enrichment completed", "processed", c.processed, "updated", c.updated, "failed", c.failed)
	progressUpdater(100, msg)
	return c.stats(msg), nil
}

func (t *DiscogsTask) Cleanup(job *jobs.Job) error {
	return nil
}

// ScrobbleImportTask copies the Last.fm history into the scrobbles table.
type ScrobbleImportTask struct {
	service *Service
}

// NewScrobbleImportTask creates a new scrobble import task.
func NewScrobbleImportTask(service *Service) *ScrobbleImportTask {
	return &ScrobbleImportTask{service: service}
}

func (t *ScrobbleImportTask) MetadataKeys() []string {
	return []string{}
}

// Execute fetches every page since the latest stored scrobble, or the whole
// history with force. limit caps the number of fetched scrobbles.
func (t *ScrobbleImportTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	force := jobs.BoolMetadata(job, "force")
	limit := jobs.IntMetadata(job, "limit", 0)
	user := t.service.config.Get().Providers.LastFM.Username
	if user == "" {
		return nil, fmt.Errorf("last.fm username not configured")
	}

	var from time.Time
	if !force {
		latest, err := t.service.scrobbles.LatestScrobbleTime(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read latest scrobble: %w", err)
		}
		from = latest
	}
	job.Logger.Info("Starting scrobble import", "user", user, "from", from, "force", force)
	progressUpdater(0, "Fetching recent tracks")

	fetched, imported, matched := 0, 0, 0
	stats := func(msg string) map[string]any {
		return map[string]any{"fetched": fetched, "imported": imported, "matched": matched, "msg": msg}
	}

	for page, totalPages := 1, 1; page <= totalPages; page++ {
		select {
		case <-ctx.Done():
			return stats("cancelled"), ctx.Err()
		default:
		}

		res, err := t.service.history.RecentTracks(ctx, user, from, page)
		if err != nil {
			return stats("failed to fetch recent tracks"), fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		if res.TotalPages > totalPages {
			totalPages = res.TotalPages
		}

		batch := res.Scrobbles
		if limit > 0 && fetched+len(batch) > limit {
			batch = batch[:limit-fetched]
		}
		for _, s := range batch {
			song, err := t.service.library.FindSongByArtistAndTitle(ctx, s.Artist, s.Title)
			if err != nil {
				job.Logger.Warn("Failed to match scrobble", "artist", s.Artist, "title", s.Title, "error", err)
				continue
			}
			if song != nil {
				s.SongID = song.ID
				matched++
			}
		}
		n, err := t.service.scrobbles.AddScrobbles(ctx, batch)
		if err != nil {
			return stats("failed to store scrobbles"), fmt.Errorf("failed to store page %d: %w", page, err)
		}
		fetched += len(batch)
		imported += n
		job.Logger.Info("Imported scrobble page", "page", page, "totalPages", totalPages, "new", n)
		progressUpdater(percent(page, totalPages), fmt.Sprintf("Page %d/%d, %d new scrobbles", page, totalPages, imported))

		if limit > 0 && fetched >= limit {
			break
		}
	}

	msg := fmt.Sprintf("Imported %d new scrobbles (%d fetched, %d matched to songs)", imported, fetched, matched)
	progressUpdater(100, msg)
	return stats(msg), nil
}

func (t *ScrobbleImportTask) Cleanup(job *jobs.Job) error {
	return nil
}

// ConcertsTask refreshes upcoming concerts of followed artists.
type ConcertsTask struct {
	service *Service
}

// NewConcertsTask creates a new concert refresh task.
func NewConcertsTask(service *Service) *ConcertsTask {
	return &ConcertsTask{service: service}
}

func (t *ConcertsTask) MetadataKeys() []string {
	return []string{}
}

func (t *ConcertsTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	limit := jobs.IntMetadata(job, "limit", 0)
	artists, err := t.service.library.GetFollowedArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load followed artists: %w", err)
	}
	if limit > 0 && len(artists) > limit {
		artists = artists[:limit]
	}
	job.Logger.Info("Starting concert refresh", "artists", len(artists))

	var c itemCounter
	saved := 0
	for _, artist := range artists {
		select {
		case <-ctx.Done():
			return c.stats("cancelled"), ctx.Err()
		default:
		}
		n, err := t.service.RefreshArtistConcerts(ctx, artist)
		c.record(n > 0, err)
		if err != nil {
			job.Logger.Error("Failed to fetch concerts", "artist", artist.Name, "error", err)
		} else {
			saved += n
			job.Logger.Info("Fetched concerts", "artist", artist.Name, "events", n)
		}
		progressUpdater(percent(c.processed, len(artists)), fmt.Sprintf("Checked %s", artist.Name))
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	pruned, err := t.service.concerts.DeleteConcertsBefore(ctx, today)
	if err != nil {
		job.Logger.Warn("Failed to prune past concerts", "error", err)
	}

	msg := fmt.Sprintf("Stored %d concerts for %d artists, pruned %d past events", saved, len(artists), pruned)
	progressUpdater(100, msg)
	stats := c.stats(msg)
	stats["saved"] = saved
	stats["pruned"] = pruned
	return stats, nil
}

func (t *ConcertsTask) Cleanup(job *jobs.Job) error {
	return nil
}
