package explain

import (
	"fmt"
	"math"

	"CourtCast/internal/domain/models"
)

// Factor names, stable across releases.
const (
	FactorRanking    = "ranking"
	FactorHeadToHead = "head_to_head"
	FactorRecentForm = "recent_form"
	FactorSurface    = "surface"
	FactorExperience = "experience"
)

// Weights are the heuristic factor weights. They must sum to 1.0; the exact
// split is configurable because the reference weighting was never pinned down.
type Weights struct {
	Ranking    float64 `yaml:"ranking"`
	HeadToHead float64 `yaml:"head_to_head"`
	RecentForm float64 `yaml:"recent_form"`
	Surface    float64 `yaml:"surface"`
	Experience float64 `yaml:"experience"`
}

// DefaultWeights returns the reference weighting.
func DefaultWeights() Weights {
	return Weights{
		Ranking:    0.20,
		HeadToHead: 0.20,
		RecentForm: 0.25,
		Surface:    0.20,
		Experience: 0.15,
	}
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.Ranking + w.HeadToHead + w.RecentForm + w.Surface + w.Experience
}

// Breakdown computes each factor's normalized advantage in [-1,1] toward
// competitor 1. This is the single factor computation: the heuristic
// prediction path and the explanation both consume its output.
func (e *FactorExplainer) Breakdown(mc models.MatchContext, h2h models.HeadToHead) []models.FactorScore {
	n1, n2 := displayName(mc.Competitor1, "competitor 1"), displayName(mc.Competitor2, "competitor 2")

	factors := make([]models.FactorScore, 0, 5)

	// Ranking: lower number is better. Normalized by the rank sum so a
	// 1-vs-7 gap counts for much more than a 101-vs-107 gap.
	r1, r2 := effectiveRank(mc.Competitor1), effectiveRank(mc.Competitor2)
	rankAdv := (r2 - r1) / (r1 + r2)
	factors = append(factors, factor(FactorRanking, e.weights.Ranking, rankAdv,
		fmt.Sprintf("%s is ranked #%.0f, %s is ranked #%.0f", n1, r1, n2, r2)))

	// Head-to-head: overall win share of prior meetings.
	w1, w2 := h2h.Wins()
	h2hAdv := 0.0
	h2hDetail := "no prior meetings"
	if total := w1 + w2; total > 0 {
		h2hAdv = float64(w1-w2) / float64(total)
		h2hDetail = fmt.Sprintf("%s %d-%d", leader(n1, n2, w1, w2), maxInt(w1, w2), minInt(w1, w2))
	}
	factors = append(factors, factor(FactorHeadToHead, e.weights.HeadToHead, h2hAdv, h2hDetail))

	// Recent form: difference of rolling win rates, already in [-1,1].
	f1, f2 := rollingForm(mc.Competitor1.RecentResults), rollingForm(mc.Competitor2.RecentResults)
	factors = append(factors, factor(FactorRecentForm, e.weights.RecentForm, f1-f2,
		fmt.Sprintf("recent win rate %.0f%% vs %.0f%%", f1*100, f2*100)))

	// Surface: head-to-head restricted to this surface.
	s1, s2 := h2h.WinsOn(mc.Surface)
	surfAdv := 0.0
	surfDetail := fmt.Sprintf("no prior meetings on %s", mc.Surface)
	if total := s1 + s2; total > 0 {
		surfAdv = float64(s1-s2) / float64(total)
		surfDetail = fmt.Sprintf("%s %d-%d on %s", leader(n1, n2, s1, s2), maxInt(s1, s2), minInt(s1, s2), mc.Surface)
	}
	factors = append(factors, factor(FactorSurface, e.weights.Surface, surfAdv, surfDetail))

	// Experience: tanh keeps a 10+ year gap from saturating the factor.
	expAdv := math.Tanh((mc.Competitor1.Experience - mc.Competitor2.Experience) / 10)
	factors = append(factors, factor(FactorExperience, e.weights.Experience, expAdv,
		fmt.Sprintf("%.0f vs %.0f years on tour", mc.Competitor1.Experience, mc.Competitor2.Experience)))

	return factors
}

// Score combines factors into the weighted logit-like score toward
// competitor 1.
func Score(factors []models.FactorScore) float64 {
	s := 0.0
	for _, f := range factors {
		s += f.Weight * f.Advantage
	}
	return s
}

// Squash maps a score to a probability strictly inside (0,1) via the
// logistic function.
func Squash(score, gain float64) float64 {
	p := 1 / (1 + math.Exp(-gain*score))
	// logistic never reaches 0 or 1 for finite input; clamp anyway so the
	// invariant survives pathological scores
	if p <= 0 {
		p = math.SmallestNonzeroFloat64
	}
	if p >= 1 {
		p = 1 - 1e-12
	}
	return p
}

func factor(name string, weight, adv float64, detail string) models.FactorScore {
	adv = clamp(adv, -1, 1)
	favors := 0
	switch {
	case adv > 1e-9:
		favors = 1
	case adv < -1e-9:
		favors = 2
	}
	return models.FactorScore{Name: name, Weight: weight, Advantage: adv, Favors: favors, Detail: detail}
}

func effectiveRank(c models.Competitor) float64 {
	if c.Ranking <= 0 {
		return 100
	}
	return float64(c.Ranking)
}

func rollingForm(results []bool) float64 {
	if len(results) == 0 {
		return 0.5
	}
	start := 0
	if len(results) > 10 {
		start = len(results) - 10
	}
	wins := 0
	for _, won := range results[start:] {
		if won {
			wins++
		}
	}
	return float64(wins) / float64(len(results)-start)
}

func leader(n1, n2 string, w1, w2 int) string {
	if w2 > w1 {
		return n2 + " leads"
	}
	if w1 > w2 {
		return n1 + " leads"
	}
	return "tied"
}

func displayName(c models.Competitor, fallback string) string {
	if c.Name != "" {
		return c.Name
	}
	return fallback
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
