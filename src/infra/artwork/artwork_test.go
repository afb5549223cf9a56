package artwork

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/contre95/musicdex/src/features/config"
)

const (
	coverMBID   = "33333333-3333-3333-3333-333333333333"
	missingMBID = "44444444-4444-4444-4444-444444444444"
)

func newTestService(t *testing.T) (*Service, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.Contains(r.URL.Path, coverMBID) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		img := image.NewRGBA(image.Rect(0, 0, 800, 400))
		for x := 0; x < 800; x++ {
			for y := 0; y < 400; y++ {
				img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
			}
		}
		w.Header().Set("Content-Type", "image/png")
		png.Encode(w, img)
	}))
	t.Cleanup(srv.Close)

	cfg := config.NewManager(&config.Config{
		Artwork: config.Artwork{Path: t.TempDir(), Size: 100, Quality: 80},
	})
	s := NewService(cfg)
	s.BaseURL = srv.URL
	return s, &calls
}

func TestThumbnail_ResizesAndCaches(t *testing.T) {
	s, calls := newTestService(t)

	path, err := s.Thumbnail(context.Background(), coverMBID)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open thumbnail: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg, got %s", format)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("expected 100x50 keeping aspect ratio, got %dx%d", cfg.Width, cfg.Height)
	}

	if _, err := s.Thumbnail(context.Background(), coverMBID); err != nil {
		t.Fatalf("second Thumbnail failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one download, got %d", calls.Load())
	}
}

func TestThumbnail_Errors(t *testing.T) {
	s, _ := newTestService(t)

	if _, err := s.Thumbnail(context.Background(), missingMBID); !errors.Is(err, ErrNoArtwork) {
		t.Errorf("expected ErrNoArtwork, got %v", err)
	}
	if _, err := s.Thumbnail(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("expected an error for a non MBID key")
	}
}

func TestPrefetch(t *testing.T) {
	s, _ := newTestService(t)

	n, err := s.Prefetch(context.Background(), []string{coverMBID, missingMBID}, 2)
	if err != nil {
		t.Fatalf("Prefetch failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 stored thumbnail, got %d", n)
	}
}
