package explain

import (
	"fmt"
	"strings"

	"CourtCast/internal/domain/models"
)

// FactorExplainer produces the factor breakdown and reasoning text for a
// prediction. Output is templated and deterministic: identical inputs yield
// byte-identical text, independent of which model produced the probability.
type FactorExplainer struct {
	weights Weights
}

func New(w Weights) *FactorExplainer {
	if w.Sum() == 0 {
		w = DefaultWeights()
	}
	return &FactorExplainer{weights: w}
}

// Reasoning renders the report for a finished prediction.
func (e *FactorExplainer) Reasoning(mc models.MatchContext, factors []models.FactorScore, p *models.Prediction) string {
	n1 := displayName(mc.Competitor1, "competitor 1")
	n2 := displayName(mc.Competitor2, "competitor 2")

	var b strings.Builder
	fmt.Fprintf(&b, "Prediction: %s to win (%d%% confidence", p.WinnerName, p.Confidence)
	if p.Mode == models.ModeHeuristic {
		b.WriteString(", heuristic")
	}
	b.WriteString(")\n")
	if p.CoinFlip {
		b.WriteString("The factors are dead even; this pick is a coin flip.\n")
	}

	b.WriteString("\nFactor analysis:\n")
	for _, f := range factors {
		fmt.Fprintf(&b, "- %s (%.0f%% weight): %s; %s\n",
			factorTitle(f.Name), f.Weight*100, favorsText(f.Favors, n1, n2), f.Detail)
	}

	fmt.Fprintf(&b, "\nFinal probabilities: %s %.1f%%, %s %.1f%%\n", n1, p.Prob1*100, n2, p.Prob2*100)

	if len(p.Caveats) > 0 {
		b.WriteString("\nCaveats:\n")
		for _, c := range p.Caveats {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

func factorTitle(name string) string {
	switch name {
	case FactorRanking:
		return "Ranking"
	case FactorHeadToHead:
		return "Head-to-head"
	case FactorRecentForm:
		return "Recent form"
	case FactorSurface:
		return "Surface record"
	case FactorExperience:
		return "Experience"
	default:
		return name
	}
}

func favorsText(favors int, n1, n2 string) string {
	switch favors {
	case 1:
		return "favors " + n1
	case 2:
		return "favors " + n2
	default:
		return "even"
	}
}
