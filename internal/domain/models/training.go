package models

import (
	"encoding/json"
	"time"
)

// TrainingRecord is one labeled example. Winner is 1 or 2 in MatchContext
// order; training must not depend on record order.
type TrainingRecord struct {
	Features FeatureVector `json:"features"`
	Winner   int           `json:"winner"`
}

// FitMetrics reports how a single model family fitted.
type FitMetrics struct {
	Family             string  `json:"family"`
	TrainAccuracy      float64 `json:"train_accuracy"`
	ValidationAccuracy float64 `json:"validation_accuracy"`
	SampleCount        int     `json:"sample_count"`
	ValidationCount    int     `json:"validation_count"`
}

// ModelArtifact is a trained model's serialized parameters tagged with the
// feature schema it was trained against. Loading an artifact whose schema
// does not match the live extractor is a hard error.
type ModelArtifact struct {
	Family      string          `json:"family"`
	Schema      FeatureSchema   `json:"schema"`
	TrainedAt   time.Time       `json:"trained_at"`
	SampleCount int             `json:"sample_count"`
	Params      json.RawMessage `json:"params"`
}

// TrainingReport is the output of one full pipeline run.
type TrainingReport struct {
	Seed       int64                    `json:"seed"`
	SplitRatio float64                  `json:"split_ratio"`
	TrainSize  int                      `json:"train_size"`
	ValSize    int                      `json:"val_size"`
	Metrics    map[string]FitMetrics    `json:"metrics"`
	Artifacts  map[string]ModelArtifact `json:"-"`
	Skipped    []string                 `json:"skipped,omitempty"` // families abandoned on cancellation
}
