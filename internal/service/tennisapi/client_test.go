package tennisapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CourtCast/internal/domain/models"
	"CourtCast/internal/service/cache"
	"CourtCast/internal/service/ratelimit"
	"CourtCast/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string, rateCap float64) *Client {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	provider := New(Config{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		Timeout:       2 * time.Second,
		CacheTTL:      time.Minute,
		RateCapacity:  rateCap,
		RatePerSecond: 0,
	}, cache.NewTTLCache(), ratelimit.New(), log)
	return provider.(*Client)
}

func TestCompetitorFetchAndCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/players/p1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(`{
			"id": "p1", "name": "Alpha", "ranking": 3, "age": 24,
			"turned_pro": 2020, "prize_money": 8400000,
			"height_cm": 188, "weight_kg": 85, "major_titles": 1,
			"recent_matches": [{"won": true}, {"won": true}, {"won": false}]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10)

	comp, err := c.Competitor(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Competitor: %v", err)
	}
	if comp.Name != "Alpha" || comp.Ranking != 3 {
		t.Errorf("competitor = %+v", comp)
	}
	if comp.Height != 1.88 {
		t.Errorf("height = %v, want meters", comp.Height)
	}
	if comp.Experience < 1 {
		t.Errorf("experience = %v, want years since turning pro", comp.Experience)
	}
	if len(comp.RecentResults) != 3 || !comp.RecentResults[0] {
		t.Errorf("recent results = %v", comp.RecentResults)
	}

	// second call must come from cache
	if _, err := c.Competitor(context.Background(), "p1"); err != nil {
		t.Fatalf("cached Competitor: %v", err)
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestHeadToHeadWinnerMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("player1"); got != "p1" {
			t.Errorf("player1 = %s", got)
		}
		w.Write([]byte(`{"matches": [
			{"date": "2024-06-01", "winner_id": "p1", "surface": "Clay"},
			{"date": "2025-01-15", "winner_id": "p2", "surface": "Hardcourt outdoor"},
			{"date": "2025-03-02", "winner_id": "someone_else", "surface": "grass"}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10)

	h2h, err := c.HeadToHead(context.Background(), "p1", "p2")
	if err != nil {
		t.Fatalf("HeadToHead: %v", err)
	}
	if len(h2h.Meetings) != 2 {
		t.Fatalf("meetings = %d, want 2 (unknown winner dropped)", len(h2h.Meetings))
	}
	if h2h.Meetings[0].Winner != 1 || h2h.Meetings[0].Surface != models.SurfaceClay {
		t.Errorf("meeting 0 = %+v", h2h.Meetings[0])
	}
	if h2h.Meetings[1].Winner != 2 || h2h.Meetings[1].Surface != models.SurfaceHard {
		t.Errorf("meeting 1 = %+v", h2h.Meetings[1])
	}
}

func TestUpstreamFailureIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10)

	if _, err := c.Competitor(context.Background(), "p1"); !errors.Is(err, models.ErrDataUnavailable) {
		t.Errorf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestRateLimitIsDataUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "p1"}`))
	}))
	defer srv.Close()

	// capacity 1, no refill: the second uncached call must be denied
	c := newTestClient(t, srv.URL, 1)

	if _, err := c.Competitor(context.Background(), "p1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := c.Competitor(context.Background(), "p2"); !errors.Is(err, models.ErrDataUnavailable) {
		t.Errorf("err = %v, want ErrDataUnavailable on rate limit", err)
	}
}
