package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/infra/cache"
)

func testConfig() *config.Manager {
	enabled := config.Provider{Enabled: true, Secret: "secret"}
	return config.NewManager(&config.Config{
		HTTP: config.HTTP{Timeout: "2s", MaxAttempts: 3, RetryWait: "1ms"},
		Providers: config.Providers{
			MusicBrainz:  enabled,
			Discogs:      enabled,
			LastFM:       config.LastFM{Provider: enabled, Username: "someone"},
			Ticketmaster: enabled,
		},
	})
}

const recordingSearchBody = `{"recordings":[
 {"id":"11111111-1111-1111-1111-111111111111","score":72,"title":"Karma Police (live)",
  "artist-credit":[{"name":"Radiohead"}]},
 {"id":"22222222-2222-2222-2222-222222222222","score":100,"title":"Karma Police","length":264000,
  "isrcs":["GBAYE9700127"],"first-release-date":"1997-08-25",
  "artist-credit":[{"name":"Radiohead"}],
  "releases":[{"id":"r1","title":"OK Computer","date":"1997-05-21",
   "release-group":{"id":"33333333-3333-3333-3333-333333333333","title":"OK Computer","primary-type":"Album"}}]}
]}`

func TestMusicBrainz_SearchRecording(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, recordingSearchBody)
	}))
	defer srv.Close()

	mb := NewMusicBrainz(testConfig(), nil)
	mb.BaseURL = srv.URL

	rec, err := mb.SearchRecording(context.Background(), "Radiohead", `Karma "Police"`)
	if err != nil {
		t.Fatalf("SearchRecording failed: %v", err)
	}
	if rec.MBID != "22222222-2222-2222-2222-222222222222" {
		t.Errorf("expected best scored recording, got %s", rec.MBID)
	}
	if rec.ReleaseGroupMBID != "33333333-3333-3333-3333-333333333333" || rec.ReleaseGroupTitle != "OK Computer" {
		t.Errorf("unexpected release group: %+v", rec)
	}
	if rec.Year != 1997 {
		t.Errorf("expected year 1997, got %d", rec.Year)
	}
	if len(rec.ISRCs) != 1 || rec.ISRCs[0] != "GBAYE9700127" {
		t.Errorf("unexpected ISRCs: %v", rec.ISRCs)
	}
	if gotUA == "" {
		t.Error("expected a User-Agent header")
	}
	want := `artist:"Radiohead" AND recording:"Karma \"Police\""`
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
}

func TestMusicBrainz_LowScoresAreNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"recordings":[{"id":"x","score":50,"title":"Other"}]}`)
	}))
	defer srv.Close()

	mb := NewMusicBrainz(testConfig(), nil)
	mb.BaseURL = srv.URL

	_, err := mb.SearchRecording(context.Background(), "Someone", "Something")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProvider_Disabled(t *testing.T) {
	cfg := testConfig()
	c := cfg.Get()
	c.Providers.MusicBrainz.Enabled = false
	c.Providers.Discogs.Enabled = false
	cfg.Update(c)

	if _, err := NewMusicBrainz(cfg, nil).SearchRecording(context.Background(), "a", "b"); !errors.Is(err, ErrDisabled) {
		t.Errorf("musicbrainz: expected ErrDisabled, got %v", err)
	}
	if _, err := NewDiscogs(cfg, nil).SearchArtist(context.Background(), "a"); !errors.Is(err, ErrDisabled) {
		t.Errorf("discogs: expected ErrDisabled, got %v", err)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id":"a","name":"Björk","sort-name":"Björk","type":"Person","country":"IS"}`)
	}))
	defer srv.Close()

	mb := NewMusicBrainz(testConfig(), nil)
	mb.BaseURL = srv.URL

	a, err := mb.LookupArtist(context.Background(), "a")
	if err != nil {
		t.Fatalf("LookupArtist failed: %v", err)
	}
	if a.Country != "IS" {
		t.Errorf("expected country IS, got %s", a.Country)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	mb := NewMusicBrainz(testConfig(), nil)
	mb.BaseURL = srv.URL

	_, err := mb.LookupArtist(context.Background(), "a")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected a 429 StatusError, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"bad request", http.StatusBadRequest, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
		}},
		{"not found", http.StatusNotFound, func(err error) bool { return errors.Is(err, ErrNotFound) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			mb := NewMusicBrainz(testConfig(), nil)
			mb.BaseURL = srv.URL

			_, err := mb.LookupArtist(context.Background(), "a")
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
			if calls.Load() != 1 {
				t.Errorf("expected a single call, got %d", calls.Load())
			}
		})
	}
}

func TestClient_CancelledContextStopsRetries(t *testing.T) {
	cfg := testConfig()
	c := cfg.Get()
	c.HTTP.RetryWait = "1h"
	cfg.Update(c)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	mb := NewMusicBrainz(cfg, nil)
	mb.BaseURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := mb.LookupArtist(ctx, "a")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestClient_CachesResponses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, recordingSearchBody)
	}))
	defer srv.Close()

	c, err := cache.NewJSONFileCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewJSONFileCache failed: %v", err)
	}
	mb := NewMusicBrainz(testConfig(), c)
	mb.BaseURL = srv.URL

	for i := 0; i < 2; i++ {
		rec, err := mb.SearchRecording(context.Background(), "Radiohead", "Karma Police")
		if err != nil {
			t.Fatalf("SearchRecording #%d failed: %v", i, err)
		}
		if rec.ReleaseGroupTitle != "OK Computer" {
			t.Errorf("call #%d: unexpected release group %q", i, rec.ReleaseGroupTitle)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected the second call to be served from cache, server saw %d", calls.Load())
	}
}

func TestDiscogs_SearchAndGetArtist(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/database/search":
			fmt.Fprint(w, `{"results":[{"id":1,"title":"Sigur Ros Tribute"},{"id":2,"title":"Sigur Rós (2)"}]}`)
		case "/artists/2":
			fmt.Fprint(w, `{"id":2,"name":"Sigur Rós","realname":"","profile":"Icelandic band.","uri":"https://www.discogs.com/artist/2-Sigur-Ros","urls":["http://sigur-ros.co.uk"]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	d := NewDiscogs(testConfig(), nil)
	d.BaseURL = srv.URL

	results, err := d.SearchArtist(context.Background(), "Sigur Rós")
	if err != nil {
		t.Fatalf("SearchArtist failed: %v", err)
	}
	best := BestDiscogsMatch(results, "sigur ros")
	if best == nil || best.ID != 2 {
		t.Fatalf("expected exact match id 2, got %+v", best)
	}
	if gotAuth != "Discogs token=secret" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}

	a, err := d.GetArtist(context.Background(), best.ID)
	if err != nil {
		t.Fatalf("GetArtist failed: %v", err)
	}
	if a.Profile != "Icelandic band." || len(a.URLs) != 1 {
		t.Errorf("unexpected artist: %+v", a)
	}
	if a.DiscogsURL() != "https://www.discogs.com/artist/2-Sigur-Ros" {
		t.Errorf("unexpected url %s", a.DiscogsURL())
	}

	if _, err := d.GetArtist(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBestDiscogsMatch_FallsBackToFirst(t *testing.T) {
	if BestDiscogsMatch(nil, "x") != nil {
		t.Error("expected nil for no results")
	}
	got := BestDiscogsMatch([]DiscogsResult{{ID: 7, Title: "Something Else"}}, "x")
	if got == nil || got.ID != 7 {
		t.Errorf("expected first result, got %+v", got)
	}
}

func TestLastFM_RecentTracks(t *testing.T) {
	var gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		fmt.Fprint(w, `{"recenttracks":{"track":[
 {"name":"Now","artist":{"#text":"Playing"},"album":{"#text":""},"@attr":{"nowplaying":"true"}},
 {"name":"Hyperballad","mbid":"","artist":{"#text":"Björk"},"album":{"#text":"Post"},"date":{"uts":"1700000000"}}
],"@attr":{"page":"1","totalPages":"4"}}}`)
	}))
	defer srv.Close()

	l := NewLastFM(testConfig())
	l.BaseURL = srv.URL + "/"

	from := time.Unix(1690000000, 0)
	page, err := l.RecentTracks(context.Background(), "someone", from, 1)
	if err != nil {
		t.Fatalf("RecentTracks failed: %v", err)
	}
	if page.TotalPages != 4 {
		t.Errorf("expected 4 pages, got %d", page.TotalPages)
	}
	if len(page.Scrobbles) != 1 {
		t.Fatalf("expected the now playing track to be dropped, got %d scrobbles", len(page.Scrobbles))
	}
	s := page.Scrobbles[0]
	if s.Artist != "Björk" || s.Album != "Post" || !s.ScrobbledAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("unexpected scrobble: %+v", s)
	}
	if gotFrom != "1690000000" {
		t.Errorf("expected from=1690000000, got %q", gotFrom)
	}
}

func TestLastFM_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":10,"message":"Invalid API key"}`)
	}))
	defer srv.Close()

	l := NewLastFM(testConfig())
	l.BaseURL = srv.URL + "/"
	if _, err := l.RecentTracks(context.Background(), "someone", time.Time{}, 1); err == nil {
		t.Fatal("expected an error for an error body")
	}
}

func TestTicketmaster_UpcomingEvents(t *testing.T) {
	var gotCountry string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCountry = r.URL.Query().Get("countryCode")
		fmt.Fprint(w, `{"_embedded":{"events":[
 {"id":"e1","name":"Tour","url":"https://tm/e1","dates":{"start":{"dateTime":"2030-06-01T19:00:00Z"}},
  "_embedded":{"venues":[{"name":"Arena","city":{"name":"Berlin"},"country":{"countryCode":"DE"}}]}},
 {"id":"e2","name":"Festival","dates":{"start":{"localDate":"2030-07-10"}}},
 {"id":"e3","name":"TBA","dates":{"start":{}}}
]}}`)
	}))
	defer srv.Close()

	tm := NewTicketmaster(testConfig())
	tm.BaseURL = srv.URL

	events, err := tm.UpcomingEvents(context.Background(), "Radiohead", "DE")
	if err != nil {
		t.Fatalf("UpcomingEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 dated events, got %d", len(events))
	}
	if events[0].City != "Berlin" || events[0].Venue != "Arena" || events[0].ArtistName != "Radiohead" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].StartsAt.Format(time.DateOnly) != "2030-07-10" {
		t.Errorf("unexpected local date %s", events[1].StartsAt)
	}
	if gotCountry != "DE" {
		t.Errorf("expected countryCode DE, got %q", gotCountry)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"page":{"totalElements":0}}`)
	}))
	defer empty.Close()
	tm.BaseURL = empty.URL
	events, err = tm.UpcomingEvents(context.Background(), "Nobody", "")
	if err != nil || len(events) != 0 {
		t.Errorf("expected no events and no error, got %d, %v", len(events), err)
	}
}
