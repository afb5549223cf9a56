package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/music"
)

// DiscogsResult is one artist hit from the Discogs database search.
type DiscogsResult struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// DiscogsArtist holds the artist fields stored as attributes.
type DiscogsArtist struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	RealName string   `json:"realname"`
	Profile  string   `json:"profile"`
	URI      string   `json:"uri"`
	URLs     []string `json:"urls"`
}

type discogsSearch struct {
	Results []DiscogsResult `json:"results"`
}

// Discogs queries the Discogs database API with a personal access token.
type Discogs struct {
	BaseURL string
	config  *config.Manager
	client  *httpClient
}

// NewDiscogs creates a Discogs client.
func NewDiscogs(cfg *config.Manager, cache Cache) *Discogs {
	p := cfg.Get().Providers.Discogs
	return &Discogs{
		BaseURL: "https://api.discogs.com",
		config:  cfg,
		client:  newHTTPClient("discogs", cfg, p.RequestsPerSecond, cache),
	}
}

func (d *Discogs) header() (http.Header, error) {
	p := d.config.Get().Providers.Discogs
	if !p.Enabled {
		return nil, ErrDisabled
	}
	if p.Secret == "" {
		return nil, fmt.Errorf("discogs token not configured")
	}
	h := http.Header{}
	h.Set("Authorization", "Discogs token="+p.Secret)
	return h, nil
}

// SearchArtist searches artists by name.
func (d *Discogs) SearchArtist(ctx context.Context, name string) ([]DiscogsResult, error) {
	h, err := d.header()
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("q", name)
	params.Set("type", "artist")
	params.Set("per_page", "10")
	reqURL := d.BaseURL + "/database/search?" + params.Encode()

	var res discogsSearch
	if err := d.client.getJSON(ctx, reqURL, h, reqURL, &res); err != nil {
		return nil, fmt.Errorf("failed to search discogs artist: %w", err)
	}
	return res.Results, nil
}

// GetArtist fetches the full artist record.
func (d *Discogs) GetArtist(ctx context.Context, id int) (*DiscogsArtist, error) {
	h, err := d.header()
	if err != nil {
		return nil, err
	}
	reqURL := d.BaseURL + "/artists/" + strconv.Itoa(id)

	var a DiscogsArtist
	if err := d.client.getJSON(ctx, reqURL, h, reqURL, &a); err != nil {
		return nil, fmt.Errorf("failed to get discogs artist %d: %w", id, err)
	}
	return &a, nil
}

var discogsSuffix = regexp.MustCompile(`\s+\(\d+\)$`)

// BestDiscogsMatch picks the result whose title equals name, ignoring case,
// accents and the "(2)" suffix Discogs adds to homonyms. Without an exact
// match the first result is returned. It returns nil for no results.
func BestDiscogsMatch(results []DiscogsResult, name string) *DiscogsResult {
	if len(results) == 0 {
		return nil
	}
	want := music.SearchKey(name)
	for i := range results {
		title := discogsSuffix.ReplaceAllString(results[i].Title, "")
		if music.SearchKey(title) == want {
			return &results[i]
		}
	}
	return &results[0]
}

// DiscogsURL returns the public page of the artist.
func (a *DiscogsArtist) DiscogsURL() string {
	if strings.HasPrefix(a.URI, "http") {
		return a.URI
	}
	return fmt.Sprintf("https://www.discogs.com/artist/%d", a.ID)
}
