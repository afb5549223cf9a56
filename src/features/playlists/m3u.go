package playlists

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/contre95/musicdex/src/music"
)

// GenerateM3U renders songs as an extended M3U playlist.
func GenerateM3U(songs []*music.Song) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, song := range songs {
		duration := song.Metadata.Duration
		if duration <= 0 {
			duration = -1 // unknown
		}
		title := song.Title
		if artists := music.ArtistNames(song.Artists); artists != "" {
			title = artists + " - " + title
		}
		fmt.Fprintf(&b, "#EXTINF:%d,%s\n%s\n", duration, title, song.Path)
	}
	return b.String()
}

// ParseM3U returns the file paths listed in M3U content, skipping comments
// and surrounding quotes.
func ParseM3U(content string) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if path := strings.Trim(line, "\"'"); path != "" {
			paths = append(paths, path)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error parsing M3U content: %w", err)
	}
	return paths, nil
}
