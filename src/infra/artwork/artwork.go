package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/music"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// ErrNoArtwork is returned when the Cover Art Archive has no front cover.
var ErrNoArtwork = errors.New("no artwork available")

// Service downloads album covers from the Cover Art Archive and keeps
// resized JPEG thumbnails on disk.
type Service struct {
	BaseURL string
	config  *config.Manager
	client  *http.Client
}

// NewService creates a new artwork service
func NewService(cfg *config.Manager) *Service {
	return &Service{
		BaseURL: "https://coverartarchive.org",
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Get().HTTP.TimeoutDuration()},
	}
}

// Thumbnail returns the path of the cached thumbnail for a release group,
// downloading and resizing the cover on first use.
func (s *Service) Thumbnail(ctx context.Context, releaseGroupMBID string) (string, error) {
	if !music.IsMBID(releaseGroupMBID) {
		return "", fmt.Errorf("invalid release group MBID: %q", releaseGroupMBID)
	}
	cfg := s.config.Get().Artwork
	size := cfg.Size
	if size <= 0 {
		size = 300
	}
	path := filepath.Join(cfg.Path, fmt.Sprintf("%s-%d.jpg", releaseGroupMBID, size))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	img, err := s.download(ctx, releaseGroupMBID)
	if err != nil {
		return "", err
	}
	img = resize.Thumbnail(uint(size), uint(size), img, resize.Lanczos3)

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return "", fmt.Errorf("failed to create artwork directory: %w", err)
	}
	tmp, err := os.CreateTemp(cfg.Path, ".thumb-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	quality := cfg.Quality
	if quality <= 0 {
		quality = 85
	}
	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: quality}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode artwork image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artwork file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store artwork file: %w", err)
	}

	slog.Debug("Stored artwork thumbnail", "mbid", releaseGroupMBID, "path", path)
	return path, nil
}

func (s *Service) download(ctx context.Context, mbid string) (image.Image, error) {
	url := fmt.Sprintf("%s/release-group/%s/front-500", s.BaseURL, mbid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoArtwork
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork download failed with status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork image: %w", err)
	}
	return img, nil
}

// Prefetch stores thumbnails for the given release groups using up to
// workers concurrent downloads. Missing covers are skipped; it returns how
// many thumbnails are available afterwards.
func (s *Service) Prefetch(ctx context.Context, mbids []string, workers int) (int, error) {
	if workers <= 0 {
		workers = 1
	}
	var stored atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, mbid := range mbids {
		g.Go(func() error {
			if _, err := s.Thumbnail(ctx, mbid); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Debug("Skipping artwork", "mbid", mbid, "error", err)
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(stored.Load()), err
}
