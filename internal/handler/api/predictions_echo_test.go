package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"CourtCast/internal/domain/models"
	xlogger "CourtCast/pkg/logger"
)

type mockPredictor struct {
	predictFn  func(ctx context.Context, mc models.MatchContext, h2h models.HeadToHead, persist bool) (*models.Prediction, error)
	familiesFn func() []string
}

func (m *mockPredictor) Predict(ctx context.Context, mc models.MatchContext, h2h models.HeadToHead, persist bool) (*models.Prediction, error) {
	return m.predictFn(ctx, mc, h2h, persist)
}

func (m *mockPredictor) ActiveFamilies() []string {
	if m.familiesFn == nil {
		return nil
	}
	return m.familiesFn()
}

type mockTrainer struct {
	trainFn          func(ctx context.Context, recs []models.TrainingRecord, ratio float64) (*models.TrainingReport, error)
	trainFromStoreFn func(ctx context.Context, ratio float64) (*models.TrainingReport, error)
}

func (m *mockTrainer) Train(ctx context.Context, recs []models.TrainingRecord, ratio float64) (*models.TrainingReport, error) {
	return m.trainFn(ctx, recs, ratio)
}

func (m *mockTrainer) TrainFromStore(ctx context.Context, ratio float64) (*models.TrainingReport, error) {
	return m.trainFromStoreFn(ctx, ratio)
}

type mockValidator struct {
	validateFn func(ctx context.Context, id, actual string) (*models.Result, error)
	accuracyFn func(ctx context.Context) (models.AccuracyReport, error)
}

func (m *mockValidator) Validate(ctx context.Context, id, actual string) (*models.Result, error) {
	return m.validateFn(ctx, id, actual)
}

func (m *mockValidator) Accuracy(ctx context.Context) (models.AccuracyReport, error) {
	return m.accuracyFn(ctx)
}

type mockQueue struct {
	published []string
}

func (m *mockQueue) PublishMessage(_ context.Context, msgType string, _ interface{}) error {
	m.published = append(m.published, msgType)
	return nil
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, h *PredictionsHandler, method, path, body string) envelope {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestPredictEndpoint(t *testing.T) {
	predictor := &mockPredictor{
		predictFn: func(_ context.Context, mc models.MatchContext, _ models.HeadToHead, persist bool) (*models.Prediction, error) {
			if persist {
				t.Error("persist true with no store wired")
			}
			return &models.Prediction{
				ID: "p-1", Match: mc, Prob1: 0.61, Prob2: 0.39,
				Winner: 1, WinnerName: mc.Competitor1.Name, Confidence: 61,
				Mode: models.ModeModel,
			}, nil
		},
	}
	h := NewPredictionsHandler(testLogger(t), predictor, nil, nil, nil, nil, nil, nil)

	body := `{"match": {
		"competitor1": {"id": "a", "name": "Alpha", "ranking": 2},
		"competitor2": {"id": "b", "name": "Beta", "ranking": 9},
		"surface": "hard", "best_of": 3
	}}`
	env := doRequest(t, h, http.MethodPost, "/api/predict", body)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, body = %s", env.Status, env.Data)
	}
	var pred models.Prediction
	if err := json.Unmarshal(env.Data, &pred); err != nil {
		t.Fatalf("decode prediction: %v", err)
	}
	if pred.WinnerName != "Alpha" || pred.Confidence != 61 {
		t.Errorf("prediction = %+v", pred)
	}
}

func TestPredictRequiresCompetitors(t *testing.T) {
	h := NewPredictionsHandler(testLogger(t), &mockPredictor{}, nil, nil, nil, nil, nil, nil)

	env := doRequest(t, h, http.MethodPost, "/api/predict",
		`{"match": {"competitor2": {"name": "Beta"}}}`)
	if env.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", env.Status)
	}
}

func TestPredictModelNotTrainedMapsTo503(t *testing.T) {
	predictor := &mockPredictor{
		predictFn: func(context.Context, models.MatchContext, models.HeadToHead, bool) (*models.Prediction, error) {
			return nil, models.ErrModelNotTrained
		},
	}
	h := NewPredictionsHandler(testLogger(t), predictor, nil, nil, nil, nil, nil, nil)

	env := doRequest(t, h, http.MethodPost, "/api/predict",
		`{"match": {"competitor1": {"name": "A"}, "competitor2": {"name": "B"}}}`)
	if env.Status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", env.Status)
	}
}

func TestTrainAsyncQueues(t *testing.T) {
	jobs := &mockQueue{}
	trainer := &mockTrainer{
		trainFn: func(context.Context, []models.TrainingRecord, float64) (*models.TrainingReport, error) {
			t.Error("sync train called for async request")
			return nil, nil
		},
	}
	h := NewPredictionsHandler(testLogger(t), &mockPredictor{}, trainer, nil, nil, nil, jobs, nil)

	body := `{"records": [{"features": {"schema_version": "v1", "values": [1]}, "winner": 1}], "async": true}`
	env := doRequest(t, h, http.MethodPost, "/api/train", body)
	if env.Status != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", env.Status)
	}
	if len(jobs.published) != 1 {
		t.Errorf("published jobs = %v", jobs.published)
	}
}

func TestTrainSync(t *testing.T) {
	trainer := &mockTrainer{
		trainFn: func(_ context.Context, recs []models.TrainingRecord, ratio float64) (*models.TrainingReport, error) {
			if len(recs) != 1 || ratio != 0.8 {
				t.Errorf("recs = %d, ratio = %v", len(recs), ratio)
			}
			return &models.TrainingReport{TrainSize: 1}, nil
		},
	}
	h := NewPredictionsHandler(testLogger(t), &mockPredictor{}, trainer, nil, nil, nil, nil, nil)

	body := `{"records": [{"features": {"schema_version": "v1", "values": [1]}, "winner": 2}]}`
	env := doRequest(t, h, http.MethodPost, "/api/train", body)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d", env.Status)
	}
}

func TestTrainInlineRequiresRecords(t *testing.T) {
	h := NewPredictionsHandler(testLogger(t), &mockPredictor{}, &mockTrainer{}, nil, nil, nil, nil, nil)

	env := doRequest(t, h, http.MethodPost, "/api/train", `{}`)
	if env.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", env.Status)
	}
}

func TestValidateEndpoint(t *testing.T) {
	validator := &mockValidator{
		validateFn: func(_ context.Context, id, actual string) (*models.Result, error) {
			if id != "p-1" || actual != "Beta" {
				t.Errorf("id = %q, actual = %q", id, actual)
			}
			return &models.Result{PredictionID: id, ActualWinner: actual, IsCorrect: false}, nil
		},
	}
	h := NewPredictionsHandler(testLogger(t), &mockPredictor{}, nil, validator, nil, nil, nil, nil)

	env := doRequest(t, h, http.MethodPost, "/api/validate",
		`{"prediction_id": "p-1", "actual_winner": "Beta"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d", env.Status)
	}
	var result models.Result
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.IsCorrect {
		t.Error("IsCorrect = true, want false")
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	h := NewPredictionsHandler(testLogger(t), &mockPredictor{}, nil, &mockValidator{}, nil, nil, nil, nil)

	env := doRequest(t, h, http.MethodPost, "/api/validate", `{"prediction_id": "p-1"}`)
	if env.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", env.Status)
	}
}

func TestAccuracyEndpoint(t *testing.T) {
	validator := &mockValidator{
		accuracyFn: func(context.Context) (models.AccuracyReport, error) {
			return models.AccuracyReport{Total: 20, Correct: 13, Accuracy: 0.65}, nil
		},
	}
	h := NewPredictionsHandler(testLogger(t), &mockPredictor{}, nil, validator, nil, nil, nil, nil)

	env := doRequest(t, h, http.MethodGet, "/api/accuracy", "")
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d", env.Status)
	}
	var report models.AccuracyReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Correct != 13 {
		t.Errorf("report = %+v", report)
	}
}

func TestModelsEndpoint(t *testing.T) {
	predictor := &mockPredictor{
		familiesFn: func() []string { return []string{"logistic", "forest"} },
	}
	h := NewPredictionsHandler(testLogger(t), predictor, nil, nil, nil, nil, nil, nil)

	env := doRequest(t, h, http.MethodGet, "/api/models", "")
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d", env.Status)
	}
	var data struct {
		Families []string `json:"families"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Families) != 2 {
		t.Errorf("families = %v", data.Families)
	}
}
