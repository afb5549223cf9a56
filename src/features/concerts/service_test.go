package concerts

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contre95/musicdex/src/music"
	"github.com/gofiber/fiber/v2"
)

type mockStore struct {
	music.ConcertStore
	concerts []*music.Concert
	from     time.Time
	artistID string
}

func (m *mockStore) GetUpcomingConcerts(ctx context.Context, from time.Time, artistID string) ([]*music.Concert, error) {
	m.from, m.artistID = from, artistID
	var out []*music.Concert
	for _, c := range m.concerts {
		if !c.StartsAt.Before(from) && (artistID == "" || c.ArtistID == artistID) {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockRefresher struct {
	jobType string
}

func (m *mockRefresher) StartJob(jobType string, force bool, limit int) (string, error) {
	m.jobType = jobType
	return "job-1", nil
}

func newTestService(now time.Time) (*Service, *mockStore, *mockRefresher) {
	store := &mockStore{concerts: []*music.Concert{
		{ID: "tm:1", ArtistID: "a1", ArtistName: "Low", StartsAt: now.Add(-48 * time.Hour)},
		{ID: "tm:2", ArtistID: "a1", ArtistName: "Low", StartsAt: now.Add(3 * time.Hour)},
		{ID: "tm:3", ArtistID: "a2", ArtistName: "Slowdive", StartsAt: now.AddDate(0, 0, 40)},
	}}
	refresher := &mockRefresher{}
	s := NewService(store, nil, refresher)
	s.now = func() time.Time { return now }
	return s, store, refresher
}

func TestUpcoming(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	service, store, _ := newTestService(now)

	all, err := service.Upcoming(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 upcoming concerts, got %d", len(all))
	}
	if want := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC); !store.from.Equal(want) {
		t.Errorf("from = %v, want start of today %v", store.from, want)
	}

	month, _ := service.Upcoming(context.Background(), "", 30)
	if len(month) != 1 || month[0].ID != "tm:2" {
		t.Errorf("30 day window returned %+v", month)
	}

	low, _ := service.Upcoming(context.Background(), "a2", 0)
	if len(low) != 1 || store.artistID != "a2" {
		t.Errorf("artist filter returned %d concerts", len(low))
	}
}

func TestRefreshRoute(t *testing.T) {
	service, _, refresher := newTestService(time.Now())
	app := fiber.New()
	RegisterRoutes(app, service)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/concerts/refresh", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	if refresher.jobType != RefreshJobType {
		t.Errorf("job type = %q", refresher.jobType)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/concerts?days=60", nil))
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}
