package service

import (
	"CourtCast/internal/domain/models"
)

// ModelAdapter is the uniform contract every trained model family honors so
// the ensemble can treat them interchangeably. Implementations are pure
// CPU-bound transforms; none of these methods block on I/O.
type ModelAdapter interface {
	// Family identifies the underlying algorithm (logistic, forest, boost).
	Family() string

	// Fit trains on the given records. Training must not depend on record
	// order.
	Fit(records []models.TrainingRecord) (models.FitMetrics, error)

	// PredictProba returns (p1, p2) with p1+p2 == 1, both in [0,1].
	PredictProba(fv models.FeatureVector) (p1, p2 float64, err error)

	// Save serializes the fitted parameters tagged with the training schema.
	Save() (models.ModelArtifact, error)

	// Load restores parameters from an artifact; a schema or family mismatch
	// is models.ErrSchemaMismatch.
	Load(a models.ModelArtifact) error
}

// FeatureExtractor turns raw match data into the fixed feature vector.
// Implementations are pure: same inputs, same vector, every time.
// Per-sport extractors are selected at configuration time.
type FeatureExtractor interface {
	Schema() models.FeatureSchema
	// Extract returns the vector plus caveat notes for any field that fell
	// back to its neutral default.
	Extract(mc models.MatchContext, h2h models.HeadToHead) (models.FeatureVector, []string, error)
}

// Explainer derives the transparent factor decomposition and templated
// reasoning text. The same factor computation feeds the heuristic prediction
// path, so explanation and prediction can never drift apart.
type Explainer interface {
	Breakdown(mc models.MatchContext, h2h models.HeadToHead) []models.FactorScore
	Reasoning(mc models.MatchContext, factors []models.FactorScore, p *models.Prediction) string
}
