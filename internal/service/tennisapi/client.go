package tennisapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CourtCast/internal/domain/models"
	drepo "CourtCast/internal/domain/repository"
	"CourtCast/internal/service/cache"
	"CourtCast/internal/service/ratelimit"
	pkgcache "CourtCast/pkg/cache"
	pkghttp "CourtCast/pkg/http"
	"CourtCast/pkg/logger"
)

const limiterKey = "tennisapi"

// Client implements a DataProvider backed by the tennis data HTTP API.
// Responses are cached so repeated predictions for the same players do not
// burn API quota, and outbound calls go through a token bucket.
type Client struct {
	httpc   *pkghttp.Client
	cache   cache.BytesCache
	limiter *ratelimit.Limiter
	log     *logger.Logger

	baseURL  string
	apiKey   string
	cacheTTL time.Duration
	rateCap  float64
	ratePerS float64
}

type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	CacheTTL      time.Duration
	RateCapacity  float64
	RatePerSecond float64
}

// New creates a tennis API DataProvider.
func New(cfg Config, c cache.BytesCache, limiter *ratelimit.Limiter, log *logger.Logger) drepo.DataProvider {
	return &Client{
		httpc:    pkghttp.NewClient(pkghttp.WithTimeout(cfg.Timeout)),
		cache:    c,
		limiter:  limiter,
		log:      log,
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		cacheTTL: cfg.CacheTTL,
		rateCap:  cfg.RateCapacity,
		ratePerS: cfg.RatePerSecond,
	}
}

// playerResponse is the upstream player payload.
type playerResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Ranking     int     `json:"ranking"`
	Age         float64 `json:"age"`
	TurnedPro   int     `json:"turned_pro"`
	PrizeMoney  float64 `json:"prize_money"`
	HeightCm    float64 `json:"height_cm"`
	WeightKg    float64 `json:"weight_kg"`
	MajorTitles int     `json:"major_titles"`

	RecentMatches []struct {
		Won bool `json:"won"`
	} `json:"recent_matches"`
}

// h2hResponse is the upstream head-to-head payload.
type h2hResponse struct {
	Matches []struct {
		Date     string `json:"date"`
		WinnerID string `json:"winner_id"`
		Surface  string `json:"surface"`
	} `json:"matches"`
}

// Competitor fetches one player snapshot. Failures are wrapped as
// models.ErrDataUnavailable so the caller can degrade instead of aborting.
func (c *Client) Competitor(ctx context.Context, id string) (*models.Competitor, error) {
	key := pkgcache.GenerateKey("tennisapi:player", id)
	if b, ok, _ := c.cache.GetBytes(key); ok {
		var comp models.Competitor
		if err := json.Unmarshal(b, &comp); err == nil {
			return &comp, nil
		}
	}

	if !c.limiter.Allow(limiterKey, c.rateCap, c.ratePerS) {
		return nil, fmt.Errorf("tennisapi player %s: rate limited: %w", id, models.ErrDataUnavailable)
	}

	var pr playerResponse
	err := c.httpc.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     fmt.Sprintf("%s/players/%s", c.baseURL, id),
		Headers: c.headers(),
	}, &pr)
	if err != nil {
		return nil, fmt.Errorf("tennisapi player %s: %s: %w", id, err, models.ErrDataUnavailable)
	}

	comp := mapPlayer(id, pr)
	c.store(key, comp)
	return comp, nil
}

// HeadToHead fetches prior meetings between two players, ordered oldest
// first, with winners mapped onto the (id1, id2) order.
func (c *Client) HeadToHead(ctx context.Context, id1, id2 string) (*models.HeadToHead, error) {
	key := pkgcache.GenerateKeyWithParams("tennisapi:h2h", id1, id2)
	if b, ok, _ := c.cache.GetBytes(key); ok {
		var h2h models.HeadToHead
		if err := json.Unmarshal(b, &h2h); err == nil {
			return &h2h, nil
		}
	}

	if !c.limiter.Allow(limiterKey, c.rateCap, c.ratePerS) {
		return nil, fmt.Errorf("tennisapi h2h %s/%s: rate limited: %w", id1, id2, models.ErrDataUnavailable)
	}

	var hr h2hResponse
	err := c.httpc.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    fmt.Sprintf("%s/h2h", c.baseURL),
		QueryParams: map[string][]string{
			"player1": {id1},
			"player2": {id2},
		},
		Headers: c.headers(),
	}, &hr)
	if err != nil {
		return nil, fmt.Errorf("tennisapi h2h %s/%s: %s: %w", id1, id2, err, models.ErrDataUnavailable)
	}

	h2h := mapH2H(id1, id2, hr)
	c.store(key, h2h)
	return h2h, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"X-Api-Key": c.apiKey}
}

func (c *Client) store(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.SetBytes(key, b, c.cacheTTL); err != nil {
		c.log.Warn("cache write", logger.String("key", key), logger.Error(err))
	}
}

func mapPlayer(id string, pr playerResponse) *models.Competitor {
	if pr.ID == "" {
		pr.ID = id
	}
	experience := 0.0
	if pr.TurnedPro > 0 {
		experience = float64(time.Now().Year() - pr.TurnedPro)
		if experience < 0 {
			experience = 0
		}
	}
	recent := make([]bool, 0, len(pr.RecentMatches))
	for _, m := range pr.RecentMatches {
		recent = append(recent, m.Won)
	}
	return &models.Competitor{
		ID:            pr.ID,
		Name:          pr.Name,
		Ranking:       pr.Ranking,
		Age:           pr.Age,
		Experience:    experience,
		Earnings:      pr.PrizeMoney,
		Height:        pr.HeightCm / 100,
		Weight:        pr.WeightKg,
		MajorTitles:   pr.MajorTitles,
		RecentResults: recent,
	}
}

func mapH2H(id1, id2 string, hr h2hResponse) *models.HeadToHead {
	h2h := &models.HeadToHead{}
	for _, m := range hr.Matches {
		winner := 0
		switch m.WinnerID {
		case id1:
			winner = 1
		case id2:
			winner = 2
		default:
			continue
		}
		date, _ := time.Parse("2006-01-02", m.Date)
		h2h.Meetings = append(h2h.Meetings, models.Meeting{
			Date:    date,
			Winner:  winner,
			Surface: models.NormalizeSurface(m.Surface),
		})
	}
	return h2h
}
