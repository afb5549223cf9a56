package music

import "testing"

func TestSearchKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Björk", "bjork"},
		{"  Sigur   Rós ", "sigur ros"},
		{"MOTÖRHEAD", "motorhead"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SearchKey(tt.in); got != tt.want {
			t.Errorf("SearchKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateSongIDIsStable(t *testing.T) {
	a := GenerateSongID("/music/a.flac")
	b := GenerateSongID("/music/a.flac")
	c := GenerateSongID("/music/b.flac")
	if a != b {
		t.Errorf("expected same id for same path, got %s and %s", a, b)
	}
	if a == c {
		t.Errorf("expected different ids for different paths")
	}
	if !IsMBID(a) {
		t.Errorf("expected generated id to be a UUID, got %s", a)
	}
}

func TestSongValidateRating(t *testing.T) {
	song := &Song{
		Title:   "Army of Me",
		Artists: []ArtistRole{{Artist: &Artist{Name: "Björk"}, Role: "main"}},
		Rating:  11,
	}
	if err := song.Validate(); err == nil {
		t.Fatal("expected error for rating above maximum")
	}
	song.Rating = 7
	if err := song.Validate(); err != nil {
		t.Fatalf("expected valid song, got %v", err)
	}
}

func TestSongValidateRejectsBadMBID(t *testing.T) {
	song := &Song{
		Title:   "Hyperballad",
		Artists: []ArtistRole{{Artist: &Artist{Name: "Björk"}, Role: "main"}},
		MBID:    "not-a-uuid",
	}
	if err := song.Validate(); err == nil {
		t.Fatal("expected error for invalid MBID")
	}
}

func TestPlaylistAddRemove(t *testing.T) {
	p := &Playlist{Name: "Road"}
	song := &Song{ID: "1", Title: "Roads"}
	if err := p.AddSong(song); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.AddSong(song); err == nil {
		t.Error("expected duplicate add to fail")
	}
	if !p.ContainsSong("1") {
		t.Error("expected playlist to contain song")
	}
	if err := p.RemoveSong("1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.RemoveSong("1"); err == nil {
		t.Error("expected removing missing song to fail")
	}
}
