package usecase

import (
	"context"
	"fmt"
	"testing"

	"CourtCast/internal/domain/models"
	"CourtCast/internal/services/features"
)

func storedPrediction() *models.Prediction {
	return &models.Prediction{
		ID:         "pred-1",
		Match:      testMatch(),
		Prob1:      0.62,
		Prob2:      0.38,
		Winner:     1,
		WinnerName: "Alpha",
		Mode:       models.ModeModel,
	}
}

func newTestValidator(t *testing.T, store *mockPredictionStore) *ResultValidator {
	t.Helper()
	return NewResultValidator(store, features.NewTennisExtractor(), newMockMetrics(), newTestLogger(t))
}

func TestValidateIncorrectPick(t *testing.T) {
	var saved *models.Result
	var trainingSaved int
	store := &mockPredictionStore{
		getPredictionFn: func(_ context.Context, id string) (*models.Prediction, error) {
			if id != "pred-1" {
				return nil, fmt.Errorf("not found")
			}
			return storedPrediction(), nil
		},
		saveResultFn: func(_ context.Context, r *models.Result) error {
			saved = r
			return nil
		},
		saveTrainingRecordsFn: func(_ context.Context, recs []models.TrainingRecord) error {
			trainingSaved += len(recs)
			return nil
		},
	}
	v := newTestValidator(t, store)

	result, err := v.Validate(context.Background(), "pred-1", "Beta")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.IsCorrect {
		t.Error("predicted Alpha, actual Beta: IsCorrect must be false")
	}
	if saved == nil || saved.PredictionID != "pred-1" {
		t.Errorf("saved result = %+v", saved)
	}
	if trainingSaved != 1 {
		t.Errorf("training records saved = %d, want 1", trainingSaved)
	}
}

func TestValidateReusesStoredFeatures(t *testing.T) {
	stored := storedPrediction()
	stored.Features = models.FeatureVector{SchemaVersion: "v1", Values: []float64{6, 0.25, -3}}

	var labeled []models.TrainingRecord
	store := &mockPredictionStore{
		getPredictionFn: func(context.Context, string) (*models.Prediction, error) {
			return stored, nil
		},
		saveTrainingRecordsFn: func(_ context.Context, recs []models.TrainingRecord) error {
			labeled = append(labeled, recs...)
			return nil
		},
	}
	v := newTestValidator(t, store)

	if _, err := v.Validate(context.Background(), "pred-1", "2"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(labeled) != 1 {
		t.Fatalf("training records saved = %d, want 1", len(labeled))
	}
	got := labeled[0].Features
	if got.SchemaVersion != "v1" || len(got.Values) != 3 {
		t.Fatalf("labeled vector = %+v, want the prediction-time vector", got)
	}
	for i, want := range []float64{6, 0.25, -3} {
		if got.Values[i] != want {
			t.Errorf("values[%d] = %v, want %v", i, got.Values[i], want)
		}
	}
	if labeled[0].Winner != 2 {
		t.Errorf("label winner = %d, want 2", labeled[0].Winner)
	}
}

func TestValidateCorrectPick(t *testing.T) {
	store := &mockPredictionStore{
		getPredictionFn: func(context.Context, string) (*models.Prediction, error) {
			return storedPrediction(), nil
		},
	}
	v := newTestValidator(t, store)

	for _, actual := range []string{"1", "alpha", "P1"} {
		result, err := v.Validate(context.Background(), "pred-1", actual)
		if err != nil {
			t.Fatalf("Validate(%q): %v", actual, err)
		}
		if !result.IsCorrect {
			t.Errorf("actual %q resolves to competitor 1, want correct", actual)
		}
	}
}

func TestValidateUnknownWinner(t *testing.T) {
	store := &mockPredictionStore{
		getPredictionFn: func(context.Context, string) (*models.Prediction, error) {
			return storedPrediction(), nil
		},
	}
	v := newTestValidator(t, store)

	if _, err := v.Validate(context.Background(), "pred-1", "Gamma"); err == nil {
		t.Error("expected error for winner matching neither competitor")
	}
}

func TestValidateMissingPrediction(t *testing.T) {
	v := newTestValidator(t, &mockPredictionStore{})

	if _, err := v.Validate(context.Background(), "nope", "1"); err == nil {
		t.Error("expected error for unknown prediction id")
	}
}

func TestAccuracyPassThrough(t *testing.T) {
	store := &mockPredictionStore{
		accuracyFn: func(context.Context) (models.AccuracyReport, error) {
			return models.AccuracyReport{Total: 10, Correct: 7, Accuracy: 0.7}, nil
		},
	}
	v := newTestValidator(t, store)

	report, err := v.Accuracy(context.Background())
	if err != nil {
		t.Fatalf("Accuracy: %v", err)
	}
	if report.Correct != 7 || report.Total != 10 {
		t.Errorf("report = %+v", report)
	}
}
