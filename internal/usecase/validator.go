package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CourtCast/internal/domain/models"
	domrepo "CourtCast/internal/domain/repository"
	domsvc "CourtCast/internal/domain/service"
	"CourtCast/pkg/logger"
)

// ResultValidator records actual match outcomes against stored predictions
// and keeps the labeled training set growing.
type ResultValidator struct {
	store     domrepo.PredictionStore
	extractor domsvc.FeatureExtractor
	metrics   domrepo.Metrics
	log       *logger.Logger
}

func NewResultValidator(store domrepo.PredictionStore, extractor domsvc.FeatureExtractor, metrics domrepo.Metrics, log *logger.Logger) *ResultValidator {
	return &ResultValidator{store: store, extractor: extractor, metrics: metrics, log: log}
}

// Validate resolves the actual winner against the stored prediction and
// records the outcome. actualWinner accepts "1", "2", a competitor ID or a
// competitor name.
func (v *ResultValidator) Validate(ctx context.Context, predictionID, actualWinner string) (*models.Result, error) {
	pred, err := v.store.GetPrediction(ctx, predictionID)
	if err != nil {
		v.metrics.RecordError("validate_lookup")
		return nil, fmt.Errorf("prediction %s: %w", predictionID, err)
	}

	actual, err := resolveWinner(pred.Match, actualWinner)
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		PredictionID: predictionID,
		ActualWinner: actualWinner,
		IsCorrect:    pred.Winner == actual,
		RecordedAt:   time.Now().UTC(),
	}
	if err := v.store.SaveResult(ctx, result); err != nil {
		v.metrics.RecordError("validate_save")
		return nil, fmt.Errorf("save result: %w", err)
	}

	// Every validated outcome becomes a labeled example for the next
	// store-sourced training run. The prediction-time vector is reused so the
	// label carries exactly what the models scored; predictions stored before
	// vectors were kept are rebuilt without head-to-head history.
	fv := pred.Features
	if len(fv.Values) == 0 {
		if rebuilt, _, err := v.extractor.Extract(pred.Match, models.HeadToHead{}); err == nil {
			fv = rebuilt
		}
	}
	if len(fv.Values) > 0 {
		rec := []models.TrainingRecord{{Features: fv, Winner: actual}}
		if err := v.store.SaveTrainingRecords(ctx, rec); err != nil {
			v.log.Warn("save training record", logger.String("prediction_id", predictionID), logger.Error(err))
		}
	}

	v.log.Info("result recorded",
		logger.String("prediction_id", predictionID),
		logger.Int("actual", actual),
		logger.Bool("correct", result.IsCorrect))
	return result, nil
}

// Accuracy reports the hit rate over all validated predictions.
func (v *ResultValidator) Accuracy(ctx context.Context) (models.AccuracyReport, error) {
	report, err := v.store.Accuracy(ctx)
	if err != nil {
		return models.AccuracyReport{}, fmt.Errorf("accuracy: %w", err)
	}
	return report, nil
}

func resolveWinner(mc models.MatchContext, actual string) (int, error) {
	switch strings.TrimSpace(actual) {
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	}
	if matchesCompetitor(mc.Competitor1, actual) {
		return 1, nil
	}
	if matchesCompetitor(mc.Competitor2, actual) {
		return 2, nil
	}
	return 0, fmt.Errorf("actual winner %q matches neither competitor", actual)
}

func matchesCompetitor(c models.Competitor, s string) bool {
	return strings.EqualFold(c.ID, s) || (c.Name != "" && strings.EqualFold(c.Name, s))
}
