package library

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/contre95/musicdex/src/features/search"
	"github.com/contre95/musicdex/src/music"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MockLibrary is a mock implementation of music.Library
type MockLibrary struct {
	music.Library // Embed interface to avoid implementing all methods, will panic if unused methods called
	artists       map[string]*music.Artist
	artistsByName map[string]*music.Artist
	songs         map[string]*music.Song
	links         []music.SongLink

	searchWhere string
	searchArgs  []any
}

func NewMockLibrary() *MockLibrary {
	return &MockLibrary{
		artists:       make(map[string]*music.Artist),
		artistsByName: make(map[string]*music.Artist),
		songs:         make(map[string]*music.Song),
	}
}

func (m *MockLibrary) GetArtistByName(ctx context.Context, name string) (*music.Artist, error) {
	if artist, ok := m.artistsByName[name]; ok {
		return artist, nil
	}
	return nil, nil // Return nil, nil when not found, simulating database behavior
}

func (m *MockLibrary) AddArtist(ctx context.Context, artist *music.Artist) error {
	if _, ok := m.artists[artist.ID]; ok {
		return errors.New("artist already exists")
	}
	m.artists[artist.ID] = artist
	m.artistsByName[artist.Name] = artist
	return nil
}

func (m *MockLibrary) GetArtist(ctx context.Context, id string) (*music.Artist, error) {
	return m.artists[id], nil
}

func (m *MockLibrary) UpdateArtist(ctx context.Context, artist *music.Artist) error {
	m.artists[artist.ID] = artist
	return nil
}

func (m *MockLibrary) GetSong(ctx context.Context, id string) (*music.Song, error) {
	return m.songs[id], nil
}

func (m *MockLibrary) UpdateSong(ctx context.Context, song *music.Song) error {
	m.songs[song.ID] = song
	return nil
}

func (m *MockLibrary) AddSongLink(ctx context.Context, link music.SongLink) error {
	m.links = append(m.links, link)
	return nil
}

func (m *MockLibrary) SearchSongs(ctx context.Context, where string, args []any, limit, offset int) ([]*music.Song, error) {
	m.searchWhere, m.searchArgs = where, args
	var out []*music.Song
	for _, s := range m.songs {
		out = append(out, s)
	}
	return out, nil
}

func (m *MockLibrary) CountSearchSongs(ctx context.Context, where string, args []any) (int, error) {
	return len(m.songs), nil
}

func (m *MockLibrary) GetSongsCount(ctx context.Context) (int, error)   { return len(m.songs), nil }
func (m *MockLibrary) GetArtistsCount(ctx context.Context) (int, error) { return len(m.artists), nil }
func (m *MockLibrary) GetAlbumsCount(ctx context.Context) (int, error)  { return 3, nil }

type mockScrobbles struct {
	music.ScrobbleStore
	since time.Time
}

func (m *mockScrobbles) GetScrobblesCount(ctx context.Context) (int, error) { return 42, nil }

func (m *mockScrobbles) TopArtists(ctx context.Context, since time.Time, limit int) ([]music.ArtistPlays, error) {
	m.since = since
	return []music.ArtistPlays{{Artist: "Low", Plays: 12}}, nil
}

func addSong(lib *MockLibrary, title string) *music.Song {
	song := &music.Song{ID: uuid.New().String(), Title: title, Path: "/music/" + title + ".flac"}
	lib.songs[song.ID] = song
	return song
}

func TestFindOrCreateArtist_CreatesNewArtist(t *testing.T) {
	mockLib := NewMockLibrary()
	service := NewService(mockLib, nil, nil, nil, nil)
	ctx := context.Background()
	artistName := "New Artist"

	artist, err := service.FindOrCreateArtist(ctx, artistName)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if artist == nil {
		t.Fatal("expected artist to be returned")
	}

	if artist.Name != artistName {
		t.Errorf("expected artist name %s, got %s", artistName, artist.Name)
	}

	if _, ok := mockLib.artistsByName[artistName]; !ok {
		t.Error("artist was not added to library")
	}
}

func TestFindOrCreateArtist_ReturnsExistingArtist(t *testing.T) {
	mockLib := NewMockLibrary()
	existingArtist := &music.Artist{
		ID:   uuid.New().String(),
		Name: "Existing Artist",
	}
	mockLib.AddArtist(context.Background(), existingArtist)

	service := NewService(mockLib, nil, nil, nil, nil)

	artist, err := service.FindOrCreateArtist(context.Background(), "  Existing Artist ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if artist.ID != existingArtist.ID {
		t.Errorf("expected artist ID %s, got %s", existingArtist.ID, artist.ID)
	}
}

func TestRateSong(t *testing.T) {
	mockLib := NewMockLibrary()
	song := addSong(mockLib, "Sunflower")
	service := NewService(mockLib, nil, nil, nil, nil)
	ctx := context.Background()

	if _, err := service.RateSong(ctx, song.ID, 11); err == nil {
		t.Error("expected error for rating above the maximum")
	}
	if _, err := service.RateSong(ctx, song.ID, -1); err == nil {
		t.Error("expected error for negative rating")
	}

	rated, err := service.RateSong(ctx, song.ID, 8)
	if err != nil {
		t.Fatalf("RateSong() error = %v", err)
	}
	if rated.Rating != 8 || mockLib.songs[song.ID].Rating != 8 {
		t.Errorf("rating not stored: got %d", mockLib.songs[song.ID].Rating)
	}

	_, err = service.RateSong(ctx, "missing", 5)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	mockLib := NewMockLibrary()
	addSong(mockLib, "Sunflower")
	service := NewService(mockLib, nil, nil, nil, nil)

	result, err := service.Search(context.Background(), `a:"Sigur Rós" y:2000-2005`, 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Total != 1 || len(result.Songs) != 1 {
		t.Errorf("expected one result, got total=%d songs=%d", result.Total, len(result.Songs))
	}
	if mockLib.searchWhere == "" || len(mockLib.searchArgs) == 0 {
		t.Errorf("expected a parameterised condition, got %q %v", mockLib.searchWhere, mockLib.searchArgs)
	}
	for _, arg := range mockLib.searchArgs {
		if s, ok := arg.(string); ok && strings.Contains(s, "Rós") {
			t.Errorf("argument %q was not folded", s)
		}
	}

	_, err = service.Search(context.Background(), "y:nineties", 10, 0)
	if !errors.Is(err, search.ErrInvalidYear) {
		t.Errorf("expected ErrInvalidYear, got %v", err)
	}
}

func TestAddSongLink_NormalizesService(t *testing.T) {
	mockLib := NewMockLibrary()
	song := addSong(mockLib, "Hoppípolla")
	service := NewService(mockLib, nil, nil, nil, nil)

	if err := service.AddSongLink(context.Background(), song.ID, " YouTube ", " https://youtu.be/x "); err != nil {
		t.Fatalf("AddSongLink() error = %v", err)
	}
	if len(mockLib.links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(mockLib.links))
	}
	if got := mockLib.links[0]; got.Service != "youtube" || got.URL != "https://youtu.be/x" {
		t.Errorf("unexpected link %+v", got)
	}
}

func TestSetFollowed(t *testing.T) {
	mockLib := NewMockLibrary()
	artist := &music.Artist{ID: "a1", Name: "Low"}
	mockLib.AddArtist(context.Background(), artist)
	service := NewService(mockLib, nil, nil, nil, nil)

	got, err := service.SetFollowed(context.Background(), "a1", true)
	if err != nil {
		t.Fatalf("SetFollowed() error = %v", err)
	}
	if !got.Followed || !mockLib.artists["a1"].Followed {
		t.Error("artist should be followed")
	}
	if _, err := service.SetFollowed(context.Background(), "nope", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTopArtists_Window(t *testing.T) {
	scrobbles := &mockScrobbles{}
	service := NewService(NewMockLibrary(), scrobbles, nil, nil, nil)

	top, err := service.TopArtists(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("TopArtists() error = %v", err)
	}
	if len(top) != 1 || top[0].Artist != "Low" {
		t.Errorf("unexpected result %+v", top)
	}
	if d := time.Since(scrobbles.since); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour+time.Minute {
		t.Errorf("expected a 7 day window, got %v", d)
	}

	if _, err := service.TopArtists(context.Background(), 0, 5); err != nil {
		t.Fatal(err)
	}
	if !scrobbles.since.IsZero() {
		t.Error("days <= 0 should cover all time")
	}
}

func TestHandlers(t *testing.T) {
	mockLib := NewMockLibrary()
	song := addSong(mockLib, "Sunflower")
	service := NewService(mockLib, &mockScrobbles{}, nil, nil, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	RegisterRoutes(app, service)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"stats", "GET", "/api/library/stats", "", fiber.StatusOK},
		{"song", "GET", "/api/library/songs/" + song.ID, "", fiber.StatusOK},
		{"missing song", "GET", "/api/library/songs/missing", "", fiber.StatusNotFound},
		{"search", "GET", "/api/library/search?q=t:sun", "", fiber.StatusOK},
		{"bad search", "GET", "/api/library/search?q=r:abc", "", fiber.StatusBadRequest},
		{"unclosed quote", "GET", "/api/library/search?q=%22abc", "", fiber.StatusBadRequest},
		{"rate", "PUT", "/api/library/songs/" + song.ID + "/rating", `{"rating":7}`, fiber.StatusOK},
		{"rate out of range", "PUT", "/api/library/songs/" + song.ID + "/rating", `{"rating":12}`, fiber.StatusBadRequest},
		{"bad json", "PUT", "/api/library/songs/" + song.ID + "/rating", `{`, fiber.StatusBadRequest},
		{"link", "POST", "/api/library/songs/" + song.ID + "/links", `{"service":"bandcamp","url":"https://x.bandcamp.com/track/y"}`, fiber.StatusNoContent},
		{"link without url", "POST", "/api/library/songs/" + song.ID + "/links", `{"service":"bandcamp"}`, fiber.StatusBadRequest},
		{"create artist", "POST", "/api/library/artists", `{"name":"Slowdive","follow":true}`, fiber.StatusCreated},
		{"create artist without name", "POST", "/api/library/artists", `{"name":""}`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.status {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.status, body)
			}
		})
	}

	if mockLib.songs[song.ID].Rating != 7 {
		t.Errorf("rating = %d, want 7", mockLib.songs[song.ID].Rating)
	}
	created := mockLib.artistsByName["Slowdive"]
	if created == nil || !created.Followed {
		t.Errorf("expected followed artist, got %+v", created)
	}
}

func TestGetStats_JSON(t *testing.T) {
	mockLib := NewMockLibrary()
	addSong(mockLib, "a")
	addSong(mockLib, "b")
	app := fiber.New()
	RegisterRoutes(app, NewService(mockLib, &mockScrobbles{}, nil, nil, nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/library/stats", nil))
	if err != nil {
		t.Fatal(err)
	}
	var st Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	want := Stats{Songs: 2, Artists: 0, Albums: 3, Scrobbles: 42}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
}
