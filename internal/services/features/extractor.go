package features

import (
	"fmt"
	"math"

	"CourtCast/internal/domain/models"
)

// Neutral defaults substituted for missing inputs. Models must never see
// NaN, so every unknown maps to one of these documented values.
const (
	defaultRanking = 100.0
	defaultAge     = 25.0
	defaultHeight  = 1.85
	defaultWeight  = 80.0
	neutralForm    = 0.5 // win rate with no recorded matches
	formWindow     = 10  // rolling win-rate window
)

// TennisExtractor maps a tennis MatchContext plus head-to-head history onto
// the v1 feature schema. Pure: no I/O, no clock reads beyond MatchContext.Date,
// identical inputs produce identical vectors.
type TennisExtractor struct{}

func NewTennisExtractor() *TennisExtractor { return &TennisExtractor{} }

func (e *TennisExtractor) Schema() models.FeatureSchema { return Schema() }

// Extract builds the feature vector in schema order. Fields that fell back to
// a neutral default are reported as caveats so callers can discount
// confidence.
func (e *TennisExtractor) Extract(mc models.MatchContext, h2h models.HeadToHead) (models.FeatureVector, []string, error) {
	var caveats []string

	r1, c := ranking(mc.Competitor1)
	if c != "" {
		caveats = append(caveats, c)
	}
	r2, c := ranking(mc.Competitor2)
	if c != "" {
		caveats = append(caveats, c)
	}

	a1 := orDefault(mc.Competitor1.Age, defaultAge)
	a2 := orDefault(mc.Competitor2.Age, defaultAge)

	e1 := mc.Competitor1.Experience
	e2 := mc.Competitor2.Experience

	logEarn1 := math.Log1p(math.Max(0, mc.Competitor1.Earnings))
	logEarn2 := math.Log1p(math.Max(0, mc.Competitor2.Earnings))
	earnRatio := 1.0
	if mc.Competitor2.Earnings > 0 {
		earnRatio = mc.Competitor1.Earnings / mc.Competitor2.Earnings
	}

	h1 := orDefault(mc.Competitor1.Height, defaultHeight)
	h2 := orDefault(mc.Competitor2.Height, defaultHeight)
	w1 := orDefault(mc.Competitor1.Weight, defaultWeight)
	w2 := orDefault(mc.Competitor2.Weight, defaultWeight)

	h2hW1, h2hW2 := h2h.Wins()
	if len(h2h.Meetings) == 0 {
		caveats = append(caveats, "no prior head-to-head meetings")
	}
	surfW1, surfW2 := h2h.WinsOn(mc.Surface)

	form1, ok := recentForm(mc.Competitor1.RecentResults)
	if !ok {
		caveats = append(caveats, fmt.Sprintf("no recent matches for %s", name(mc.Competitor1, "competitor1")))
	}
	form2, ok := recentForm(mc.Competitor2.RecentResults)
	if !ok {
		caveats = append(caveats, fmt.Sprintf("no recent matches for %s", name(mc.Competitor2, "competitor2")))
	}

	bestOfFive := 0.0
	if mc.BestOf == 5 {
		bestOfFive = 1.0
	}

	values := []float64{
		r1,
		r2,
		r1 - r2,
		r1 / r2, // r2 >= 1 after defaulting
		a1,
		a2,
		a1 - a2,
		e1,
		e2,
		e1 - e2,
		logEarn1 - logEarn2,
		earnRatio,
		h1 - h2,
		w1 - w2,
		float64(mc.Competitor1.MajorTitles),
		float64(mc.Competitor2.MajorTitles),
		float64(mc.Competitor1.MajorTitles - mc.Competitor2.MajorTitles),
		float64(len(h2h.Meetings)),
		float64(h2hW1),
		float64(h2hW2),
		float64(surfW1),
		float64(surfW2),
		form1,
		form2,
		mc.Surface.Code(),
		mc.Tier.Code(),
		bestOfFive,
	}

	if len(values) != len(fieldNames) {
		return models.FeatureVector{}, nil, fmt.Errorf("%w: built %d values for %d fields",
			models.ErrInvalidFeatureVector, len(values), len(fieldNames))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.FeatureVector{}, nil, fmt.Errorf("%w: field %s is not finite",
				models.ErrInvalidFeatureVector, fieldNames[i])
		}
	}

	return models.FeatureVector{SchemaVersion: SchemaVersion, Values: values}, caveats, nil
}

func ranking(c models.Competitor) (float64, string) {
	if c.Ranking <= 0 {
		return defaultRanking, fmt.Sprintf("ranking missing for %s", name(c, "competitor"))
	}
	return float64(c.Ranking), ""
}

func recentForm(results []bool) (float64, bool) {
	if len(results) == 0 {
		return neutralForm, false
	}
	start := 0
	if len(results) > formWindow {
		start = len(results) - formWindow
	}
	wins := 0
	for _, won := range results[start:] {
		if won {
			wins++
		}
	}
	return float64(wins) / float64(len(results)-start), true
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func name(c models.Competitor, fallback string) string {
	if c.Name != "" {
		return c.Name
	}
	return fallback
}
