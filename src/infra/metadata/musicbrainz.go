package metadata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/contre95/musicdex/src/features/config"
)

// minRecordingScore is the lowest search score accepted as a match.
const minRecordingScore = 80

// Recording is the best MusicBrainz match for an artist and title.
type Recording struct {
	MBID              string   `json:"mbid"`
	Title             string   `json:"title"`
	Artist            string   `json:"artist"`
	Score             int      `json:"score"`
	Length            int      `json:"length"` // milliseconds
	ISRCs             []string `json:"isrcs"`
	ReleaseGroupMBID  string   `json:"release_group_mbid"`
	ReleaseGroupTitle string   `json:"release_group_title"`
	Year              int      `json:"year"`
}

// ArtistInfo is a MusicBrainz artist lookup result.
type ArtistInfo struct {
	MBID      string `json:"mbid"`
	Name      string `json:"name"`
	SortName  string `json:"sort_name"`
	Type      string `json:"type"`
	Country   string `json:"country"`
	BeginDate string `json:"begin_date"`
	EndDate   string `json:"end_date"`
}

type mbRecordingSearch struct {
	Recordings []struct {
		ID               string   `json:"id"`
		Score            int      `json:"score"`
		Title            string   `json:"title"`
		Length           int      `json:"length"`
		ISRCs            []string `json:"isrcs"`
		FirstReleaseDate string   `json:"first-release-date"`
		ArtistCredit     []struct {
			Name       string `json:"name"`
			JoinPhrase string `json:"joinphrase"`
		} `json:"artist-credit"`
		Releases []struct {
			ID           string `json:"id"`
			Title        string `json:"title"`
			Date         string `json:"date"`
			ReleaseGroup struct {
				ID          string `json:"id"`
				Title       string `json:"title"`
				PrimaryType string `json:"primary-type"`
			} `json:"release-group"`
		} `json:"releases"`
	} `json:"recordings"`
}

type mbArtist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
	Type     string `json:"type"`
	Country  string `json:"country"`
	LifeSpan struct {
		Begin string `json:"begin"`
		End   string `json:"end"`
	} `json:"life-span"`
}

// MusicBrainz queries the MusicBrainz web service. It needs no key but asks
// clients to stay at one request per second.
type MusicBrainz struct {
	BaseURL string
	config  *config.Manager
	client  *httpClient
}

// NewMusicBrainz creates a MusicBrainz client.
func NewMusicBrainz(cfg *config.Manager, cache Cache) *MusicBrainz {
	p := cfg.Get().Providers.MusicBrainz
	return &MusicBrainz{
		BaseURL: "https://musicbrainz.org/ws/2",
		config:  cfg,
		client:  newHTTPClient("musicbrainz", cfg, p.RequestsPerSecond, cache),
	}
}

// SearchRecording returns the highest scored recording for artist and title,
// or ErrNotFound when no candidate reaches the minimum score.
func (m *MusicBrainz) SearchRecording(ctx context.Context, artist, title string) (*Recording, error) {
	if !m.config.Get().Providers.MusicBrainz.Enabled {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(artist) == "" || strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("artist and title are required")
	}

	query := fmt.Sprintf(`artist:"%s" AND recording:"%s"`, luceneEscape(artist), luceneEscape(title))
	params := url.Values{}
	params.Set("query", query)
	params.Set("fmt", "json")
	params.Set("limit", "10")
	reqURL := m.BaseURL + "/recording?" + params.Encode()

	var res mbRecordingSearch
	if err := m.client.getJSON(ctx, reqURL, nil, reqURL, &res); err != nil {
		return nil, fmt.Errorf("failed to search recording: %w", err)
	}

	best := -1
	for i, r := range res.Recordings {
		if r.Score < minRecordingScore {
			continue
		}
		if best < 0 || r.Score > res.Recordings[best].Score {
			best = i
		}
	}
	if best < 0 {
		return nil, ErrNotFound
	}

	r := res.Recordings[best]
	rec := &Recording{
		MBID:   r.ID,
		Title:  r.Title,
		Score:  r.Score,
		Length: r.Length,
		ISRCs:  r.ISRCs,
		Year:   parseYear(r.FirstReleaseDate),
	}
	var credit strings.Builder
	for _, ac := range r.ArtistCredit {
		credit.WriteString(ac.Name)
		credit.WriteString(ac.JoinPhrase)
	}
	rec.Artist = credit.String()
	if len(r.Releases) > 0 {
		rg := r.Releases[0].ReleaseGroup
		rec.ReleaseGroupMBID = rg.ID
		rec.ReleaseGroupTitle = rg.Title
		if rec.Year == 0 {
			rec.Year = parseYear(r.Releases[0].Date)
		}
	}
	return rec, nil
}

// LookupArtist fetches an artist by MBID.
func (m *MusicBrainz) LookupArtist(ctx context.Context, mbid string) (*ArtistInfo, error) {
	if !m.config.Get().Providers.MusicBrainz.Enabled {
		return nil, ErrDisabled
	}
	if mbid == "" {
		return nil, fmt.Errorf("artist mbid is required")
	}
	reqURL := fmt.Sprintf("%s/artist/%s?fmt=json", m.BaseURL, url.PathEscape(mbid))

	var a mbArtist
	if err := m.client.getJSON(ctx, reqURL, nil, reqURL, &a); err != nil {
		return nil, fmt.Errorf("failed to lookup artist: %w", err)
	}
	return &ArtistInfo{
		MBID:      a.ID,
		Name:      a.Name,
		SortName:  a.SortName,
		Type:      a.Type,
		Country:   a.Country,
		BeginDate: a.LifeSpan.Begin,
		EndDate:   a.LifeSpan.End,
	}, nil
}

// luceneEscape quotes the characters that are special inside a Lucene phrase.
func luceneEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// parseYear reads the year from dates like 1997, 1997-09 or 1997-09-22.
func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
