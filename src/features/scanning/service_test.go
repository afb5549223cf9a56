package scanning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/music"
)

// mockLibrary keeps songs by path. Unused methods panic through the embedded interface.
type mockLibrary struct {
	music.Library
	songs   map[string]*music.Song
	artists map[string]*music.Artist
	albums  map[string]*music.Album
	deleted []string
}

func newMockLibrary() *mockLibrary {
	return &mockLibrary{
		songs:   map[string]*music.Song{},
		artists: map[string]*music.Artist{},
		albums:  map[string]*music.Album{},
	}
}

func (m *mockLibrary) FindSongByPath(ctx context.Context, path string) (*music.Song, error) {
	return m.songs[path], nil
}

func (m *mockLibrary) AddSong(ctx context.Context, song *music.Song) error {
	song.AddedDate = time.Now()
	song.ModifiedDate = time.Now()
	m.songs[song.Path] = song
	return nil
}

func (m *mockLibrary) UpdateSong(ctx context.Context, song *music.Song) error {
	song.ModifiedDate = time.Now()
	m.songs[song.Path] = song
	return nil
}

func (m *mockLibrary) DeleteSong(ctx context.Context, id string) error {
	for path, s := range m.songs {
		if s.ID == id {
			delete(m.songs, path)
		}
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockLibrary) GetSongsPaginated(ctx context.Context, limit, offset int) ([]*music.Song, error) {
	var all []*music.Song
	for _, s := range m.songs {
		all = append(all, s)
	}
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(len(all), offset+limit)], nil
}

func (m *mockLibrary) FindOrCreateArtist(ctx context.Context, name string) (*music.Artist, error) {
	if a, ok := m.artists[name]; ok {
		return a, nil
	}
	a := &music.Artist{ID: "artist-" + name, Name: name}
	m.artists[name] = a
	return a, nil
}

func (m *mockLibrary) FindOrCreateAlbum(ctx context.Context, artist *music.Artist, title string, year int) (*music.Album, error) {
	key := artist.ID + "/" + title
	if a, ok := m.albums[key]; ok {
		return a, nil
	}
	a := &music.Album{ID: "album-" + title, Title: title, Year: year, Artists: []music.ArtistRole{{Artist: artist, Role: "main"}}}
	m.albums[key] = a
	return a, nil
}

func (m *mockLibrary) UpdateAlbum(ctx context.Context, album *music.Album) error { return nil }

// mockReader derives tags from the file name: "Artist - Title.ext".
type mockReader struct {
	mu    sync.Mutex
	reads int
}

func (r *mockReader) ReadFileTags(ctx context.Context, path string) (*music.Song, error) {
	r.mu.Lock()
	r.reads++
	r.mu.Unlock()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if string(data) == "corrupt" {
		return nil, errors.New("no tags found")
	}
	return &music.Song{
		Path:    path,
		Title:   filepath.Base(path),
		Artists: []music.ArtistRole{{Artist: &music.Artist{Name: "Artist"}, Role: "main"}},
		Album: &music.Album{
			Title:   "Album",
			MBID:    "33333333-3333-3333-3333-333333333333",
			Artists: []music.ArtistRole{{Artist: &music.Artist{Name: "Artist"}, Role: "main"}},
		},
	}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestService(lib *mockLibrary, reader *mockReader) *Service {
	cfg := config.NewManager(&config.Config{Scan: config.Scan{Workers: 2, Extensions: []string{".mp3", ".flac"}}})
	return NewService(lib, reader, cfg, nil)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func noProgress(int, string) {}

func TestScan_AddsAndSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"a.mp3", "sub/b.FLAC", "sub/c.mp3", ".hidden/d.mp3", "cover.jpg"} {
		path := filepath.Join(root, name)
		writeFile(t, path, "tags")
		os.Chtimes(path, old, old)
	}
	writeFile(t, filepath.Join(root, "broken.mp3"), "corrupt")

	lib := newMockLibrary()
	reader := &mockReader{}
	svc := newTestService(lib, reader)

	stats, err := svc.Scan(context.Background(), root, false, discard(), noProgress)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if stats.Found != 4 || stats.Added != 3 || stats.Errors != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	song := lib.songs[filepath.Join(root, "a.mp3")]
	if song == nil {
		t.Fatal("a.mp3 was not catalogued")
	}
	if song.ID != music.GenerateSongID(song.Path) {
		t.Errorf("expected a path based ID, got %s", song.ID)
	}
	if song.Album == nil || song.Album.MBID != "33333333-3333-3333-3333-333333333333" {
		t.Errorf("expected album MBID from tags, got %+v", song.Album)
	}

	reader.reads = 0
	stats, err = svc.Scan(context.Background(), root, false, discard(), noProgress)
	if err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	if stats.Unchanged != 3 || reader.reads != 1 {
		t.Errorf("expected unchanged files to be skipped, stats %+v, reads %d", stats, reader.reads)
	}
}

func TestScan_KeepsUserDataAndRemovesMissing(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.mp3")
	gone := filepath.Join(root, "gone.mp3")
	writeFile(t, keep, "tags")
	writeFile(t, gone, "tags")

	lib := newMockLibrary()
	svc := newTestService(lib, &mockReader{})
	if _, err := svc.Scan(context.Background(), root, false, discard(), noProgress); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	lib.songs[keep].Rating = 9
	lib.songs[keep].MBID = "22222222-2222-2222-2222-222222222222"
	goneID := lib.songs[gone].ID
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.Scan(context.Background(), root, true, discard(), noProgress)
	if err != nil {
		t.Fatalf("forced Scan failed: %v", err)
	}
	if stats.Updated != 1 || stats.Removed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if got := lib.songs[keep]; got.Rating != 9 || got.MBID != "22222222-2222-2222-2222-222222222222" {
		t.Errorf("user data lost on rescan: rating %d, mbid %q", got.Rating, got.MBID)
	}
	if len(lib.deleted) != 1 || lib.deleted[0] != goneID {
		t.Errorf("expected %s to be removed, got %v", goneID, lib.deleted)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	svc := newTestService(newMockLibrary(), &mockReader{})
	if _, err := svc.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), false, discard(), noProgress); err == nil {
		t.Fatal("expected an error for a missing library path")
	}
}

func TestIsUnder(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/music/a/b.mp3", "/music", true},
		{"/music2/b.mp3", "/music", false},
		{"/other/b.mp3", "/music", false},
		{"/music/..hidden.mp3", "/music", true},
	}
	for _, tt := range tests {
		if got := isUnder(tt.path, tt.root); got != tt.want {
			t.Errorf("isUnder(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}
