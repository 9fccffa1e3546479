package models

// Requests for prediction HTTP endpoints. Defined in domain for consistency and reuse.

type PredictRequest struct {
	Match      MatchContext `json:"match"`
	HeadToHead HeadToHead   `json:"head_to_head"`
	Persist    *bool        `json:"persist,omitempty"` // nil = persist when a store is wired
}

type PredictByIDRequest struct {
	Competitor1ID string `json:"competitor1_id" validate:"required"`
	Competitor2ID string `json:"competitor2_id" validate:"required"`
	Surface       string `json:"surface" default:"hard" validate:"oneof=hard clay grass other"`
	Tier          string `json:"tier" default:"other" validate:"oneof=other atp250 atp500 masters1000 grand_slam"`
	BestOf        int    `json:"best_of" default:"3" validate:"oneof=3 5"`
	Event         string `json:"event"`
	Date          string `json:"date"` // RFC3339 or unix seconds; defaults to now
}

type TrainRequest struct {
	Records    []TrainingRecord `json:"records"`
	Source     string           `json:"source" default:"inline" validate:"oneof=inline store"`
	SplitRatio float64          `json:"split_ratio" default:"0.8" validate:"gt=0,lt=1"`
	Async      bool             `json:"async"`
}

type ValidateRequest struct {
	PredictionID string `json:"prediction_id" validate:"required"`
	ActualWinner string `json:"actual_winner" validate:"required"`
}

type HistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
