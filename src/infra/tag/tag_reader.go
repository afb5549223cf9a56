package tag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/musicdex/src/music"
	"github.com/dhowden/tag"
)

// TagReader reads song metadata from audio files using the dhowden/tag library.
type TagReader struct{}

// NewTagReader creates a new TagReader
func NewTagReader() *TagReader {
	return &TagReader{}
}

// parseArtists parses a string containing multiple artists separated by common delimiters
func parseArtists(artistString string) []*music.Artist {
	if strings.TrimSpace(artistString) == "" {
		return nil
	}

	delimiters := []string{";", "/", " feat. ", " ft. ", " & "}
	for _, delim := range delimiters {
		if strings.Contains(artistString, delim) {
			names := strings.Split(artistString, delim)
			artists := make([]*music.Artist, 0, len(names))
			for _, name := range names {
				name = strings.TrimSpace(name)
				if name != "" {
					artists = append(artists, &music.Artist{Name: name})
				}
			}
			if len(artists) > 0 {
				return artists
			}
		}
	}

	return []*music.Artist{{Name: strings.TrimSpace(artistString)}}
}

// ReadFileTags reads the tags of a music file into a song. The song has no
// ID yet; artists and album carry names only.
func (r *TagReader) ReadFileTags(ctx context.Context, filePath string) (*music.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	trackNumber, _ := tags.Track()
	discNumber, _ := tags.Disc()

	albumArtist := tags.AlbumArtist()
	if albumArtist == "" {
		albumArtist = tags.Artist()
	}

	title := strings.TrimSpace(tags.Title())
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	song := &music.Song{
		Path:  filePath,
		Title: title,
		Album: &music.Album{
			Title: strings.TrimSpace(tags.Album()),
			Year:  tags.Year(),
			Genre: tags.Genre(),
		},
		Metadata: music.Metadata{
			Year:        tags.Year(),
			Genre:       tags.Genre(),
			TrackNumber: trackNumber,
			DiscNumber:  discNumber,
		},
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), "."),
	}
	for _, artist := range parseArtists(tags.Artist()) {
		song.Artists = append(song.Artists, music.ArtistRole{Artist: artist, Role: "main"})
	}
	for _, artist := range parseArtists(albumArtist) {
		song.Album.Artists = append(song.Album.Artists, music.ArtistRole{Artist: artist, Role: "main"})
	}

	raw := tags.Raw()
	song.ISRC = normalizeISRC(rawString(raw, "ISRC", "TSRC"))
	if mbid := rawString(raw, "MUSICBRAINZ_TRACKID", "MusicBrainz Track Id"); music.IsMBID(mbid) {
		song.MBID = mbid
	}
	if mbid := rawString(raw, "MUSICBRAINZ_RELEASEGROUPID", "MusicBrainz Release Group Id"); music.IsMBID(mbid) {
		song.Album.MBID = mbid
	}

	song.EnsureMetadataDefaults()
	return song, nil
}

// rawString returns the first non empty string value among the given raw
// tag names, compared case-insensitively.
func rawString(raw map[string]interface{}, names ...string) string {
	for _, name := range names {
		for key, value := range raw {
			if !strings.EqualFold(key, name) {
				continue
			}
			switch v := value.(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" {
					return s
				}
			case []byte:
				if s := strings.TrimSpace(string(v)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// normalizeISRC keeps the first code when a tag holds several, either
// slash separated or concatenated.
func normalizeISRC(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.ReplaceAll(s, "-", "")
	if len(s) > 12 {
		s = s[:12]
	}
	return strings.ToUpper(s)
}
