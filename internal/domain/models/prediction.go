package models

import "time"

// Prediction mode values.
const (
	ModeModel     = "model"
	ModeHeuristic = "heuristic"
)

// FactorScore is one entry of the transparent factor decomposition.
// Advantage is in [-1,1]; positive favors competitor 1.
type FactorScore struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Advantage float64 `json:"advantage"`
	Favors    int     `json:"favors"` // 1, 2, or 0 when even
	Detail    string  `json:"detail"`
}

// Prediction is the combined output for one match.
type Prediction struct {
	ID         string       `json:"id"`
	Match      MatchContext `json:"match"`
	Prob1      float64      `json:"prob1"`
	Prob2      float64      `json:"prob2"`
	Winner     int          `json:"winner"` // 1 or 2
	WinnerName string       `json:"winner_name"`
	Confidence int          `json:"confidence"` // round(max(p1,p2)*100)

	Mode     string   `json:"mode"` // model or heuristic
	Models   []string `json:"models,omitempty"`
	Degraded bool     `json:"degraded,omitempty"` // one or more adapters excluded
	CoinFlip bool     `json:"coin_flip,omitempty"`
	Caveats  []string `json:"caveats,omitempty"` // e.g. missing upstream data

	// Features is the exact vector the models scored. Kept so validated
	// outcomes can be labeled without re-extracting from partial inputs.
	Features FeatureVector `json:"features"`

	Factors   []FactorScore `json:"factors"`
	Reasoning string        `json:"reasoning"`
	CreatedAt time.Time     `json:"created_at"`
}

// Result records the actual outcome of a predicted match.
type Result struct {
	PredictionID string    `json:"prediction_id"`
	ActualWinner string    `json:"actual_winner"`
	IsCorrect    bool      `json:"is_correct"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// AccuracyReport aggregates hit rate over stored predictions with results.
type AccuracyReport struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}
