package repository

import (
	"context"

	"CourtCast/internal/domain/models"
)

// PredictionStore persists predictions, their eventual results and labeled
// training records.
type PredictionStore interface {
	SavePrediction(ctx context.Context, p *models.Prediction) error
	GetPrediction(ctx context.Context, id string) (*models.Prediction, error)
	ListPredictions(ctx context.Context, limit int) ([]models.Prediction, error)
	SaveResult(ctx context.Context, r *models.Result) error
	Accuracy(ctx context.Context) (models.AccuracyReport, error)
	SaveTrainingRecords(ctx context.Context, recs []models.TrainingRecord) error
	ListTrainingRecords(ctx context.Context, limit int) ([]models.TrainingRecord, error)
}

// ModelStore is byte-level persistence for model artifacts. Writes replace
// the previous artifact atomically; a reader never observes a partial write.
type ModelStore interface {
	Read(ctx context.Context, id string) ([]byte, error)
	Write(ctx context.Context, id string, b []byte) error
	List(ctx context.Context) ([]string, error)
}

// DataProvider supplies competitor and head-to-head records on request.
// Failures surface as models.ErrDataUnavailable so callers can degrade to
// neutral feature values.
type DataProvider interface {
	Competitor(ctx context.Context, id string) (*models.Competitor, error)
	HeadToHead(ctx context.Context, id1, id2 string) (*models.HeadToHead, error)
}

// Publisher pushes finished predictions to downstream consumers.
type Publisher interface {
	PublishPrediction(ctx context.Context, p *models.Prediction) error
	Close() error
}

// Metrics abstracts engine metric recording.
type Metrics interface {
	RecordPrediction(mode string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordValidationAccuracy(family string, acc float64)
}
