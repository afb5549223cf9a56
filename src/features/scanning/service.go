// Package scanning catalogues the audio files found under the library path.
package scanning

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/music"
	"golang.org/x/sync/errgroup"
)

// JobType is the job type registered for library scans.
const JobType = "library_scan"

// TagReader reads song metadata from an audio file.
type TagReader interface {
	ReadFileTags(ctx context.Context, path string) (*music.Song, error)
}

// ScanStats contains statistics about a scan
type ScanStats struct {
	Found     int `json:"found"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Errors    int `json:"errors"`
}

// Service walks the library and keeps the catalogue in sync with it.
type Service struct {
	library    music.Library
	reader     TagReader
	config     *config.Manager
	jobService music.JobService
}

// NewService creates a new scanning service.
func NewService(lib music.Library, reader TagReader, cfg *config.Manager, jobService music.JobService) *Service {
	return &Service{
		library:    lib,
		reader:     reader,
		config:     cfg,
		jobService: jobService,
	}
}

// StartScan enqueues a library scan job.
func (s *Service) StartScan(force bool) (string, error) {
	jobID, err := s.jobService.StartJob(JobType, "Library scan", map[string]any{"force": force})
	if err != nil {
		return "", fmt.Errorf("failed to start library scan job: %w", err)
	}
	return jobID, nil
}

type readResult struct {
	path  string
	mtime time.Time
	song  *music.Song
	err   error
}

// Scan walks root, reads the tags of new or modified files concurrently and
// stores them one by one. With force every file is read again. Songs whose
// file disappeared from root are removed.
func (s *Service) Scan(ctx context.Context, root string, force bool, logger *slog.Logger, progress func(int, string)) (ScanStats, error) {
	var stats ScanStats
	cfg := s.config.Get().Scan

	files, err := listAudioFiles(root, cfg.Extensions)
	if err != nil {
		return stats, fmt.Errorf("failed to walk library: %w", err)
	}
	stats.Found = len(files)
	logger.Info("Found audio files", "root", root, "count", len(files))
	progress(5, fmt.Sprintf("Found %d audio files", len(files)))

	var pending []readResult
	for path, mtime := range files {
		if !force {
			existing, err := s.library.FindSongByPath(ctx, path)
			if err != nil {
				return stats, fmt.Errorf("failed to look up %s: %w", path, err)
			}
			if existing != nil && !mtime.After(existing.ModifiedDate) {
				stats.Unchanged++
				continue
			}
		}
		pending = append(pending, readResult{path: path, mtime: mtime})
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range pending {
		g.Go(func() error {
			pending[i].song, pending[i].err = s.reader.ReadFileTags(gctx, pending[i].path)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	progress(40, fmt.Sprintf("Read tags of %d files", len(pending)))

	for i, r := range pending {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}
		if r.err != nil {
			logger.Warn("Could not read tags", "path", r.path, "error", r.err)
			stats.Errors++
			continue
		}
		added, err := s.storeSong(ctx, r.song, logger)
		switch {
		case err != nil:
			logger.Error("Failed to store song", "path", r.path, "error", err)
			stats.Errors++
		case added:
			stats.Added++
		default:
			stats.Updated++
		}
		if len(pending) > 0 {
			progress(40+(i+1)*50/len(pending), fmt.Sprintf("Stored %s", r.song.Title))
		}
	}

	removed, err := s.removeMissing(ctx, root, files, logger)
	if err != nil {
		return stats, err
	}
	stats.Removed = removed
	return stats, nil
}

// storeSong links the song to catalogued artists and album, then adds or
// updates it by path. User data (rating, plays, MBIDs) survives a rescan.
func (s *Service) storeSong(ctx context.Context, song *music.Song, logger *slog.Logger) (bool, error) {
	for i, ar := range song.Artists {
		artist, err := s.library.FindOrCreateArtist(ctx, ar.Artist.Name)
		if err != nil {
			return false, fmt.Errorf("failed to find/create artist %s: %w", ar.Artist.Name, err)
		}
		song.Artists[i].Artist = artist
	}

	if song.Album != nil && song.Album.Title != "" {
		albumArtist := song.Artists[0].Artist
		if len(song.Album.Artists) > 0 {
			a, err := s.library.FindOrCreateArtist(ctx, song.Album.Artists[0].Artist.Name)
			if err != nil {
				return false, fmt.Errorf("failed to find/create album artist: %w", err)
			}
			albumArtist = a
		}
		tagMBID := song.Album.MBID
		album, err := s.library.FindOrCreateAlbum(ctx, albumArtist, song.Album.Title, song.Metadata.Year)
		if err != nil {
			return false, fmt.Errorf("failed to find/create album %s: %w", song.Album.Title, err)
		}
		if tagMBID != "" && album.MBID == "" {
			album.MBID = tagMBID
			if err := s.library.UpdateAlbum(ctx, album); err != nil {
				logger.Warn("Failed to store album MBID", "album", album.Title, "error", err)
			}
		}
		song.Album = album
	}

	existing, err := s.library.FindSongByPath(ctx, song.Path)
	if err != nil {
		return false, err
	}
	if existing == nil {
		song.ID = music.GenerateSongID(song.Path)
		if err := s.library.AddSong(ctx, song); err != nil {
			return false, fmt.Errorf("failed to add song: %w", err)
		}
		logger.Debug("Added song", "path", song.Path, "title", song.Title)
		return true, nil
	}

	song.ID = existing.ID
	song.Rating = existing.Rating
	song.PlayCount = existing.PlayCount
	song.LastPlayed = existing.LastPlayed
	song.AddedDate = existing.AddedDate
	song.Attributes = existing.Attributes
	if song.MBID == "" {
		song.MBID = existing.MBID
	}
	if song.ISRC == "" {
		song.ISRC = existing.ISRC
	}
	if err := s.library.UpdateSong(ctx, song); err != nil {
		return false, fmt.Errorf("failed to update song: %w", err)
	}
	return false, nil
}

// removeMissing deletes catalogued songs under root whose file is gone.
func (s *Service) removeMissing(ctx context.Context, root string, seen map[string]time.Time, logger *slog.Logger) (int, error) {
	var stale []string
	for offset := 0; ; offset += 100 {
		songs, err := s.library.GetSongsPaginated(ctx, 100, offset)
		if err != nil {
			return 0, fmt.Errorf("failed to list songs: %w", err)
		}
		if len(songs) == 0 {
			break
		}
		for _, song := range songs {
			if song.Path == "" || !isUnder(song.Path, root) {
				continue
			}
			if _, ok := seen[song.Path]; ok {
				continue
			}
			if _, err := os.Stat(song.Path); os.IsNotExist(err) {
				stale = append(stale, song.ID)
			}
		}
	}

	for _, id := range stale {
		if err := s.library.DeleteSong(ctx, id); err != nil {
			logger.Warn("Failed to remove missing song", "songID", id, "error", err)
			continue
		}
	}
	if len(stale) > 0 {
		logger.Info("Removed songs whose files are gone", "count", len(stale))
	}
	return len(stale), nil
}

func isUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// listAudioFiles returns the modification time of each audio file below
// root. Hidden directories are skipped.
func listAudioFiles(root string, extensions []string) (map[string]time.Time, error) {
	exts := map[string]bool{}
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	files := map[string]time.Time{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files[path] = info.ModTime()
		return nil
	})
	return files, err
}
