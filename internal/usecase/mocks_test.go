package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"CourtCast/internal/domain/models"
	"CourtCast/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type mockPredictionStore struct {
	savePredictionFn      func(ctx context.Context, p *models.Prediction) error
	getPredictionFn       func(ctx context.Context, id string) (*models.Prediction, error)
	listPredictionsFn     func(ctx context.Context, limit int) ([]models.Prediction, error)
	saveResultFn          func(ctx context.Context, r *models.Result) error
	accuracyFn            func(ctx context.Context) (models.AccuracyReport, error)
	saveTrainingRecordsFn func(ctx context.Context, recs []models.TrainingRecord) error
	listTrainingRecordsFn func(ctx context.Context, limit int) ([]models.TrainingRecord, error)
}

func (m *mockPredictionStore) SavePrediction(ctx context.Context, p *models.Prediction) error {
	if m.savePredictionFn == nil {
		return nil
	}
	return m.savePredictionFn(ctx, p)
}

func (m *mockPredictionStore) GetPrediction(ctx context.Context, id string) (*models.Prediction, error) {
	if m.getPredictionFn == nil {
		return nil, fmt.Errorf("not found")
	}
	return m.getPredictionFn(ctx, id)
}

func (m *mockPredictionStore) ListPredictions(ctx context.Context, limit int) ([]models.Prediction, error) {
	if m.listPredictionsFn == nil {
		return nil, nil
	}
	return m.listPredictionsFn(ctx, limit)
}

func (m *mockPredictionStore) SaveResult(ctx context.Context, r *models.Result) error {
	if m.saveResultFn == nil {
		return nil
	}
	return m.saveResultFn(ctx, r)
}

func (m *mockPredictionStore) Accuracy(ctx context.Context) (models.AccuracyReport, error) {
	if m.accuracyFn == nil {
		return models.AccuracyReport{}, nil
	}
	return m.accuracyFn(ctx)
}

func (m *mockPredictionStore) SaveTrainingRecords(ctx context.Context, recs []models.TrainingRecord) error {
	if m.saveTrainingRecordsFn == nil {
		return nil
	}
	return m.saveTrainingRecordsFn(ctx, recs)
}

func (m *mockPredictionStore) ListTrainingRecords(ctx context.Context, limit int) ([]models.TrainingRecord, error) {
	if m.listTrainingRecordsFn == nil {
		return nil, nil
	}
	return m.listTrainingRecordsFn(ctx, limit)
}

// memModelStore is an in-memory byte store.
type memModelStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemModelStore() *memModelStore {
	return &memModelStore{data: map[string][]byte{}}
}

func (s *memModelStore) Read(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", id)
	}
	return b, nil
}

func (s *memModelStore) Write(_ context.Context, id string, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = append([]byte(nil), b...)
	return nil
}

func (s *memModelStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

type mockMetrics struct {
	mu          sync.Mutex
	predictions map[string]int
	errors      map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{predictions: map[string]int{}, errors: map[string]int{}}
}

func (m *mockMetrics) RecordPrediction(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[mode]++
}

func (m *mockMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *mockMetrics) RecordLatency(string, float64) {}

func (m *mockMetrics) RecordValidationAccuracy(string, float64) {}

type mockPublisher struct {
	publishFn func(ctx context.Context, p *models.Prediction) error
}

func (m *mockPublisher) PublishPrediction(ctx context.Context, p *models.Prediction) error {
	if m.publishFn == nil {
		return nil
	}
	return m.publishFn(ctx, p)
}

func (m *mockPublisher) Close() error { return nil }

// fakeAdapter is a model adapter with a fixed answer.
type fakeAdapter struct {
	family string
	p1     float64
	err    error
}

func (f *fakeAdapter) Family() string { return f.family }

func (f *fakeAdapter) Fit([]models.TrainingRecord) (models.FitMetrics, error) {
	return models.FitMetrics{Family: f.family}, nil
}

func (f *fakeAdapter) PredictProba(models.FeatureVector) (float64, float64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.p1, 1 - f.p1, nil
}

func (f *fakeAdapter) Save() (models.ModelArtifact, error) {
	return models.ModelArtifact{Family: f.family}, nil
}

func (f *fakeAdapter) Load(models.ModelArtifact) error { return nil }

// fakeExtractor carries a tiny schema for pipeline tests.
type fakeExtractor struct {
	schema models.FeatureSchema
}

func (f *fakeExtractor) Schema() models.FeatureSchema { return f.schema }

func (f *fakeExtractor) Extract(models.MatchContext, models.HeadToHead) (models.FeatureVector, []string, error) {
	return models.FeatureVector{SchemaVersion: f.schema.Version, Values: make([]float64, len(f.schema.Fields))}, nil, nil
}
