package models

import (
	"strings"
	"time"
)

// Surface is the court surface category. The string values and their numeric
// codes are a versioned enumeration: encoded feature values must stay stable
// across releases, so new surfaces may only be appended.
type Surface string

const (
	SurfaceHard  Surface = "hard"
	SurfaceClay  Surface = "clay"
	SurfaceGrass Surface = "grass"
	SurfaceOther Surface = "other"
)

// Code returns the stable numeric encoding for the surface.
func (s Surface) Code() float64 {
	switch s {
	case SurfaceHard:
		return 0
	case SurfaceClay:
		return 1
	case SurfaceGrass:
		return 2
	default:
		return 3
	}
}

// NormalizeSurface maps free-form surface strings ("Red clay", "Hardcourt outdoor")
// onto the enumeration.
func NormalizeSurface(s string) Surface {
	switch {
	case containsFold(s, "hard"):
		return SurfaceHard
	case containsFold(s, "clay"):
		return SurfaceClay
	case containsFold(s, "grass"):
		return SurfaceGrass
	default:
		return SurfaceOther
	}
}

// Tier is the tournament tier, ordered by prestige.
type Tier string

const (
	TierOther     Tier = "other"
	TierATP250    Tier = "atp250"
	TierATP500    Tier = "atp500"
	TierMasters   Tier = "masters1000"
	TierGrandSlam Tier = "grand_slam"
)

// Code returns the stable ordinal encoding for the tier.
func (t Tier) Code() float64 {
	switch t {
	case TierATP250:
		return 1
	case TierATP500:
		return 2
	case TierMasters:
		return 3
	case TierGrandSlam:
		return 4
	default:
		return 0
	}
}

// Competitor is an immutable snapshot of one player as of prediction time.
// Zero values mean "unknown"; the feature extractor substitutes documented
// neutral defaults rather than letting zeros skew the vector.
type Competitor struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Ranking     int     `json:"ranking"`    // positive, lower is better
	Age         float64 `json:"age"`        // years
	Experience  float64 `json:"experience"` // years on tour
	Earnings    float64 `json:"earnings"`   // career prize money
	Height      float64 `json:"height"`     // meters
	Weight      float64 `json:"weight"`     // kilograms
	MajorTitles int     `json:"major_titles"`

	// RecentResults holds the competitor's latest match outcomes, oldest
	// first, true = win. Used for the rolling win-rate feature.
	RecentResults []bool `json:"recent_results,omitempty"`
}

// MatchContext describes the match being predicted.
type MatchContext struct {
	ID          string     `json:"id,omitempty"`
	Event       string     `json:"event,omitempty"`
	Competitor1 Competitor `json:"competitor1"`
	Competitor2 Competitor `json:"competitor2"`
	Surface     Surface    `json:"surface"`
	Tier        Tier       `json:"tier"`
	BestOf      int        `json:"best_of"` // 3 or 5
	Date        time.Time  `json:"date"`
}

// Meeting is one prior match between the two competitors.
type Meeting struct {
	Date    time.Time `json:"date"`
	Winner  int       `json:"winner"` // 1 or 2, matching MatchContext order
	Surface Surface   `json:"surface"`
}

// HeadToHead is the ordered history of direct meetings, oldest first.
type HeadToHead struct {
	Meetings []Meeting `json:"meetings"`
}

// Wins returns the win counts for competitor 1 and competitor 2.
func (h HeadToHead) Wins() (w1, w2 int) {
	for _, m := range h.Meetings {
		switch m.Winner {
		case 1:
			w1++
		case 2:
			w2++
		}
	}
	return w1, w2
}

// WinsOn returns the win counts restricted to meetings on the given surface.
func (h HeadToHead) WinsOn(s Surface) (w1, w2 int) {
	for _, m := range h.Meetings {
		if m.Surface != s {
			continue
		}
		switch m.Winner {
		case 1:
			w1++
		case 2:
			w2++
		}
	}
	return w1, w2
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}
