package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/musicdex/src/features/search"
	"github.com/contre95/musicdex/src/music"
)

func newTestLibrary(t *testing.T) *SqliteLibrary {
	t.Helper()
	lib, err := NewSqliteLibrary(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

// addTestSong creates the artist and album if needed and stores a song.
func addTestSong(t *testing.T, lib *SqliteLibrary, path, artistName, albumTitle, title string, year int) *music.Song {
	t.Helper()
	ctx := context.Background()
	artist, err := lib.FindOrCreateArtist(ctx, artistName)
	if err != nil {
		t.Fatalf("FindOrCreateArtist: %v", err)
	}
	album, err := lib.FindOrCreateAlbum(ctx, artist, albumTitle, year)
	if err != nil {
		t.Fatalf("FindOrCreateAlbum: %v", err)
	}
	song := &music.Song{
		Path:     path,
		Title:    title,
		Artists:  []music.ArtistRole{{Artist: artist, Role: "main"}},
		Album:    album,
		Metadata: music.Metadata{Year: year, Genre: "Electronic", Duration: 240},
		Format:   "flac",
	}
	if err := lib.AddSong(ctx, song); err != nil {
		t.Fatalf("AddSong: %v", err)
	}
	return song
}

func TestSongRoundTrip(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	song := addTestSong(t, lib, "/music/bjork/homogenic/01.flac", "Björk", "Homogenic", "Hunter", 1997)
	if song.ID != music.GenerateSongID(song.Path) {
		t.Errorf("expected ID derived from path, got %s", song.ID)
	}

	got, err := lib.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if got == nil {
		t.Fatal("expected song")
	}
	if got.Title != "Hunter" || got.Album == nil || got.Album.Title != "Homogenic" {
		t.Errorf("unexpected song: %+v", got)
	}
	if got.PrimaryArtist() == nil || got.PrimaryArtist().Name != "Björk" {
		t.Errorf("unexpected artists: %+v", got.Artists)
	}

	got.Rating = 9
	got.MBID = "0a1b2c3d-0000-4000-8000-000000000001"
	if err := lib.UpdateSong(ctx, got); err != nil {
		t.Fatalf("UpdateSong: %v", err)
	}
	if err := lib.AddSongLink(ctx, music.SongLink{SongID: got.ID, Service: "musicbrainz", URL: "https://musicbrainz.org/recording/x"}); err != nil {
		t.Fatalf("AddSongLink: %v", err)
	}
	if err := lib.AddSongLink(ctx, music.SongLink{SongID: got.ID, Service: "musicbrainz", URL: "https://musicbrainz.org/recording/y"}); err != nil {
		t.Fatalf("AddSongLink: %v", err)
	}

	again, _ := lib.GetSong(ctx, got.ID)
	if again.Rating != 9 || again.MBID != got.MBID {
		t.Errorf("update not persisted: %+v", again)
	}
	if len(again.Links) != 1 || again.Links[0].URL != "https://musicbrainz.org/recording/y" {
		t.Errorf("expected one replaced link, got %+v", again.Links)
	}

	byKey, err := lib.FindSongByArtistAndTitle(ctx, "bjork", "HUNTER")
	if err != nil || byKey == nil || byKey.ID != song.ID {
		t.Errorf("FindSongByArtistAndTitle: got %v, %v", byKey, err)
	}

	if err := lib.DeleteSong(ctx, song.ID); err != nil {
		t.Fatalf("DeleteSong: %v", err)
	}
	if err := lib.DeleteSong(ctx, song.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if missing, _ := lib.GetSong(ctx, song.ID); missing != nil {
		t.Error("expected song to be gone")
	}
}

func TestSongsWithoutMBID(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	a := addTestSong(t, lib, "/m/a.mp3", "Air", "Moon Safari", "La Femme d'Argent", 1998)
	addTestSong(t, lib, "/m/b.mp3", "Air", "Moon Safari", "Sexy Boy", 1998)

	a.MBID = "0a1b2c3d-0000-4000-8000-000000000002"
	if err := lib.UpdateSong(ctx, a); err != nil {
		t.Fatalf("UpdateSong: %v", err)
	}

	songs, err := lib.GetSongsWithoutMBID(ctx, 10, 0)
	if err != nil {
		t.Fatalf("GetSongsWithoutMBID: %v", err)
	}
	if len(songs) != 1 || songs[0].Title != "Sexy Boy" {
		t.Errorf("unexpected songs: %+v", songs)
	}

	albums, _ := lib.GetAlbumsCount(ctx)
	if albums != 1 {
		t.Errorf("expected a single shared album, got %d", albums)
	}
}

func TestSearchSongs(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	addTestSong(t, lib, "/m/1.flac", "Björk", "Homogenic", "Jóga", 1997)
	addTestSong(t, lib, "/m/2.flac", "Björk", "Vespertine", "Pagan Poetry", 2001)
	addTestSong(t, lib, "/m/3.flac", "Sigur Rós", "Takk...", "Hoppípolla", 2005)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"a:bjork", 2},
		{"bjork y:>2000", 1},
		{"-a:bjork", 1},
		{"joga", 1},
		{"al:takk", 1},
		{`t:"pagan poetry"`, 1},
		{"y:1990-1999 homogenic", 1},
		{"g:electronic", 3},
		{"100%", 0},
	}
	for _, tt := range tests {
		q, err := search.Parse(tt.query)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.query, err)
		}
		where, args := q.Where()
		songs, err := lib.SearchSongs(ctx, where, args, 50, 0)
		if err != nil {
			t.Fatalf("SearchSongs(%q): %v", tt.query, err)
		}
		count, err := lib.CountSearchSongs(ctx, where, args)
		if err != nil {
			t.Fatalf("CountSearchSongs(%q): %v", tt.query, err)
		}
		if len(songs) != tt.want || count != tt.want {
			t.Errorf("query %q: got %d songs (count %d), want %d", tt.query, len(songs), count, tt.want)
		}
	}
}

func TestArtistsWithoutAttribute(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	a, _ := lib.FindOrCreateArtist(ctx, "Autechre")
	lib.FindOrCreateArtist(ctx, "Boards of Canada")

	a.Attributes[music.AttrDiscogsID] = "1234"
	a.Followed = true
	if err := lib.UpdateArtist(ctx, a); err != nil {
		t.Fatalf("UpdateArtist: %v", err)
	}

	missing, err := lib.GetArtistsWithoutAttribute(ctx, music.AttrDiscogsID, 10, 0)
	if err != nil {
		t.Fatalf("GetArtistsWithoutAttribute: %v", err)
	}
	if len(missing) != 1 || missing[0].Name != "Boards of Canada" {
		t.Errorf("unexpected artists: %+v", missing)
	}

	followed, _ := lib.GetFollowedArtists(ctx)
	if len(followed) != 1 || followed[0].Attributes[music.AttrDiscogsID] != "1234" {
		t.Errorf("unexpected followed artists: %+v", followed)
	}

	same, _ := lib.FindOrCreateArtist(ctx, "Autechre")
	if same.ID != a.ID {
		t.Error("expected FindOrCreateArtist to return the existing artist")
	}
}

func TestScrobbles(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	batch := []*music.Scrobble{
		{Artist: "Air", Title: "Sexy Boy", ScrobbledAt: base, Source: "lastfm"},
		{Artist: "Air", Title: "Kelly Watch the Stars", ScrobbledAt: base.Add(5 * time.Minute), Source: "lastfm"},
		{Artist: "Björk", Title: "Jóga", ScrobbledAt: base.Add(10 * time.Minute), Source: "lastfm"},
		{Artist: "", Title: "invalid", ScrobbledAt: base},
	}
	added, err := lib.AddScrobbles(ctx, batch)
	if err != nil {
		t.Fatalf("AddScrobbles: %v", err)
	}
	if added != 3 {
		t.Errorf("expected 3 new scrobbles, got %d", added)
	}

	added, err = lib.AddScrobbles(ctx, batch[:2])
	if err != nil {
		t.Fatalf("AddScrobbles: %v", err)
	}
	if added != 0 {
		t.Errorf("expected duplicates to be ignored, got %d new", added)
	}

	latest, err := lib.LatestScrobbleTime(ctx)
	if err != nil {
		t.Fatalf("LatestScrobbleTime: %v", err)
	}
	if !latest.Equal(base.Add(10 * time.Minute)) {
		t.Errorf("unexpected latest scrobble time %v", latest)
	}

	top, err := lib.TopArtists(ctx, time.Time{}, 5)
	if err != nil {
		t.Fatalf("TopArtists: %v", err)
	}
	if len(top) != 2 || top[0].Artist != "Air" || top[0].Plays != 2 {
		t.Errorf("unexpected top artists: %+v", top)
	}

	recent, _ := lib.GetScrobbles(ctx, 1, 0)
	if len(recent) != 1 || recent[0].Title != "Jóga" {
		t.Errorf("expected newest scrobble first, got %+v", recent)
	}
}

func TestConcerts(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	artist, _ := lib.FindOrCreateArtist(ctx, "Massive Attack")
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	past := &music.Concert{ID: "ev1", ArtistID: artist.ID, ArtistName: artist.Name, StartsAt: now.Add(-48 * time.Hour), Source: "ticketmaster"}
	future := &music.Concert{ID: "ev2", ArtistID: artist.ID, ArtistName: artist.Name, Venue: "Old", StartsAt: now.Add(48 * time.Hour), Source: "ticketmaster"}
	for _, c := range []*music.Concert{past, future} {
		if err := lib.UpsertConcert(ctx, c); err != nil {
			t.Fatalf("UpsertConcert: %v", err)
		}
	}
	future.Venue = "Brixton Academy"
	if err := lib.UpsertConcert(ctx, future); err != nil {
		t.Fatalf("UpsertConcert: %v", err)
	}

	upcoming, err := lib.GetUpcomingConcerts(ctx, now, artist.ID)
	if err != nil {
		t.Fatalf("GetUpcomingConcerts: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].Venue != "Brixton Academy" {
		t.Errorf("unexpected upcoming concerts: %+v", upcoming)
	}

	removed, err := lib.DeleteConcertsBefore(ctx, now)
	if err != nil {
		t.Fatalf("DeleteConcertsBefore: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned concert, got %d", removed)
	}
}

func TestPlaylists(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	s1 := addTestSong(t, lib, "/m/1.flac", "Air", "Moon Safari", "Sexy Boy", 1998)
	s2 := addTestSong(t, lib, "/m/2.flac", "Air", "Moon Safari", "Talisman", 1998)

	p := &music.Playlist{ID: music.GeneratePlaylistID(), Name: "Morning", CreatedDate: time.Now(), ModifiedDate: time.Now()}
	if err := lib.CreatePlaylist(ctx, p); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	for _, id := range []string{s2.ID, s1.ID, s2.ID} {
		if err := lib.AddSongToPlaylist(ctx, p.ID, id); err != nil {
			t.Fatalf("AddSongToPlaylist: %v", err)
		}
	}

	got, err := lib.GetPlaylist(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlaylist: %v", err)
	}
	if len(got.Songs) != 2 || got.Songs[0].ID != s2.ID || got.Songs[1].ID != s1.ID {
		t.Errorf("unexpected playlist order: %+v", got.Songs)
	}

	if err := lib.RemoveSongFromPlaylist(ctx, p.ID, s2.ID); err != nil {
		t.Fatalf("RemoveSongFromPlaylist: %v", err)
	}
	if err := lib.DeletePlaylist(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if gone, _ := lib.GetPlaylist(ctx, p.ID); gone != nil {
		t.Error("expected playlist to be deleted")
	}
}

func TestMetrics(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	addTestSong(t, lib, "/m/1.flac", "Air", "Moon Safari", "Sexy Boy", 1998)
	addTestSong(t, lib, "/m/2.flac", "Air", "10 000 Hz Legend", "Radio #1", 2001)

	years, err := lib.GetYearDistribution(ctx)
	if err != nil {
		t.Fatalf("GetYearDistribution: %v", err)
	}
	if years["1990s"] != 1 || years["2000s"] != 1 {
		t.Errorf("unexpected decades: %v", years)
	}

	stats, err := lib.GetMetadataCompleteness(ctx)
	if err != nil {
		t.Fatalf("GetMetadataCompleteness: %v", err)
	}
	if stats.MissingMBID != 2 || stats.Complete != 0 || stats.MissingGenre != 0 {
		t.Errorf("unexpected completeness: %+v", stats)
	}

	formats, _ := lib.GetFormatDistribution(ctx)
	if formats["flac"] != 2 {
		t.Errorf("unexpected formats: %v", formats)
	}
}
