package explain

import (
	"math"
	"strings"
	"testing"

	"CourtCast/internal/domain/models"
)

func scenarioMatch() models.MatchContext {
	return models.MatchContext{
		Competitor1: models.Competitor{ID: "a", Name: "Alpha", Ranking: 1, Experience: 6},
		Competitor2: models.Competitor{ID: "b", Name: "Beta", Ranking: 7, Experience: 6},
		Surface:     models.SurfaceHard,
		Tier:        models.TierMasters,
		BestOf:      3,
	}
}

func scenarioH2H() models.HeadToHead {
	var m []models.Meeting
	for i := 0; i < 4; i++ {
		m = append(m, models.Meeting{Winner: 1, Surface: models.SurfaceHard})
	}
	for i := 0; i < 5; i++ {
		m = append(m, models.Meeting{Winner: 2, Surface: models.SurfaceHard})
	}
	return models.HeadToHead{Meetings: m}
}

func factorByName(t *testing.T, factors []models.FactorScore, name string) models.FactorScore {
	t.Helper()
	for _, f := range factors {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("factor %q not found", name)
	return models.FactorScore{}
}

func TestBreakdownScenario(t *testing.T) {
	e := New(DefaultWeights())
	factors := e.Breakdown(scenarioMatch(), scenarioH2H())
	if len(factors) != 5 {
		t.Fatalf("factors = %d, want 5", len(factors))
	}

	ranking := factorByName(t, factors, FactorRanking)
	if ranking.Favors != 1 || math.Abs(ranking.Advantage-0.75) > 1e-9 {
		t.Errorf("ranking = %+v", ranking)
	}

	h2h := factorByName(t, factors, FactorHeadToHead)
	if h2h.Favors != 2 || math.Abs(h2h.Advantage-(-1.0/9)) > 1e-9 {
		t.Errorf("head_to_head = %+v", h2h)
	}
	if !strings.Contains(h2h.Detail, "Beta 5-4") {
		t.Errorf("h2h detail = %q", h2h.Detail)
	}

	exp := factorByName(t, factors, FactorExperience)
	if exp.Favors != 0 || exp.Advantage != 0 {
		t.Errorf("experience = %+v", exp)
	}

	// strong ranking edge, slight h2h deficit: a narrow pick for Alpha
	p1 := Squash(Score(factors), 2.0)
	if math.Abs(p1-0.5526) > 0.001 {
		t.Errorf("heuristic p1 = %v, want ~0.5526", p1)
	}
}

func TestBreakdownNoHistory(t *testing.T) {
	e := New(DefaultWeights())
	factors := e.Breakdown(scenarioMatch(), models.HeadToHead{})

	h2h := factorByName(t, factors, FactorHeadToHead)
	if h2h.Advantage != 0 || h2h.Detail != "no prior meetings" {
		t.Errorf("head_to_head = %+v", h2h)
	}
	surf := factorByName(t, factors, FactorSurface)
	if surf.Advantage != 0 || !strings.Contains(surf.Detail, "no prior meetings on hard") {
		t.Errorf("surface = %+v", surf)
	}
}

func TestWeightsDefaultWhenZero(t *testing.T) {
	e := New(Weights{})
	if e.weights != DefaultWeights() {
		t.Errorf("weights = %+v", e.weights)
	}
	if s := DefaultWeights().Sum(); math.Abs(s-1) > 1e-9 {
		t.Errorf("default weights sum = %v", s)
	}
}

func TestSquashBounds(t *testing.T) {
	for _, score := range []float64{-1000, -1, 0, 1, 1000} {
		p := Squash(score, 2.0)
		if p <= 0 || p >= 1 {
			t.Errorf("Squash(%v) = %v, out of (0,1)", score, p)
		}
	}
	if Squash(0, 2.0) != 0.5 {
		t.Errorf("Squash(0) = %v", Squash(0, 2.0))
	}
}

func TestReasoningDeterministic(t *testing.T) {
	e := New(DefaultWeights())
	mc := scenarioMatch()
	factors := e.Breakdown(mc, scenarioH2H())
	pred := &models.Prediction{
		WinnerName: "Alpha", Winner: 1, Confidence: 55,
		Prob1: 0.5526, Prob2: 0.4474,
		Mode:    models.ModeHeuristic,
		Caveats: []string{"no trained model available, heuristic factors used"},
	}

	a := e.Reasoning(mc, factors, pred)
	b := e.Reasoning(mc, factors, pred)
	if a != b {
		t.Error("reasoning not deterministic")
	}
	for _, want := range []string{
		"Alpha to win (55% confidence, heuristic)",
		"Factor analysis:",
		"Final probabilities: Alpha 55.3%, Beta 44.7%",
		"Caveats:",
		"heuristic factors used",
	} {
		if !strings.Contains(a, want) {
			t.Errorf("reasoning missing %q:\n%s", want, a)
		}
	}
}

func TestReasoningCoinFlip(t *testing.T) {
	e := New(DefaultWeights())
	mc := scenarioMatch()
	pred := &models.Prediction{
		WinnerName: "Alpha", Confidence: 50, Prob1: 0.501, Prob2: 0.499,
		Mode: models.ModeModel, CoinFlip: true,
	}
	out := e.Reasoning(mc, e.Breakdown(mc, models.HeadToHead{}), pred)
	if !strings.Contains(out, "coin flip") {
		t.Errorf("reasoning missing coin flip note:\n%s", out)
	}
}
