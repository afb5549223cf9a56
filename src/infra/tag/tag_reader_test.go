package tag

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseArtists(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Björk", []string{"Björk"}},
		{"Massive Attack feat. Tracey Thorn", []string{"Massive Attack", "Tracey Thorn"}},
		{"Simon & Garfunkel", []string{"Simon", "Garfunkel"}},
		{"A; B ;C", []string{"A", "B", "C"}},
		{"Crosby, Stills, Nash & Young", []string{"Crosby, Stills, Nash", "Young"}},
	}
	for _, tt := range tests {
		got := parseArtists(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseArtists(%q) returned %d artists, want %d", tt.in, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].Name != tt.want[i] {
				t.Errorf("parseArtists(%q)[%d] = %q, want %q", tt.in, i, got[i].Name, tt.want[i])
			}
		}
	}
}

func TestNormalizeISRC(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"gbaye9700127":              "GBAYE9700127",
		"GB-AYE-97-00127":           "GBAYE9700127",
		"GBAYE9700127/USRC17607839": "GBAYE9700127",
		"GBAYE9700127USRC17607839":  "GBAYE9700127",
	}
	for in, want := range tests {
		if got := normalizeISRC(in); got != want {
			t.Errorf("normalizeISRC(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRawString(t *testing.T) {
	raw := map[string]interface{}{
		"musicbrainz_trackid": "  22222222-2222-2222-2222-222222222222 ",
		"TSRC":                []byte("GBAYE9700127"),
		"EMPTY":               "",
	}
	if got := rawString(raw, "MUSICBRAINZ_TRACKID"); got != "22222222-2222-2222-2222-222222222222" {
		t.Errorf("unexpected track id %q", got)
	}
	if got := rawString(raw, "ISRC", "TSRC"); got != "GBAYE9700127" {
		t.Errorf("unexpected isrc %q", got)
	}
	if got := rawString(raw, "EMPTY", "MISSING"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestReadFileTags_NotAnAudioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mp3")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTagReader().ReadFileTags(context.Background(), path); err == nil {
		t.Error("expected an error for a file without tags")
	}
	if _, err := NewTagReader().ReadFileTags(context.Background(), path+".missing"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
