package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"CourtCast/internal/domain/models"
	domrepo "CourtCast/internal/domain/repository"
	domsvc "CourtCast/internal/domain/service"
	"CourtCast/internal/services/explain"
	"CourtCast/internal/services/features"
	"CourtCast/internal/services/ml"
)

func testMatch() models.MatchContext {
	return models.MatchContext{
		Event: "Test Open",
		Competitor1: models.Competitor{
			ID: "p1", Name: "Alpha", Ranking: 1,
			Age: 24, Experience: 6, Earnings: 2.1e7, Height: 1.88, Weight: 85,
		},
		Competitor2: models.Competitor{
			ID: "p2", Name: "Beta", Ranking: 7,
			Age: 27, Experience: 6, Earnings: 1.4e7, Height: 1.85, Weight: 80,
		},
		Surface: models.SurfaceHard,
		Tier:    models.TierMasters,
		BestOf:  3,
		Date:    time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
	}
}

func testH2H() models.HeadToHead {
	meetings := make([]models.Meeting, 0, 9)
	for i := 0; i < 4; i++ {
		meetings = append(meetings, models.Meeting{Winner: 1, Surface: models.SurfaceHard})
	}
	for i := 0; i < 5; i++ {
		meetings = append(meetings, models.Meeting{Winner: 2, Surface: models.SurfaceHard})
	}
	return models.HeadToHead{Meetings: meetings}
}

func newTestPredictor(t *testing.T, store domrepo.PredictionStore, pub domrepo.Publisher, fallback bool) (*EnsemblePredictor, *mockMetrics) {
	t.Helper()
	metrics := newMockMetrics()
	p := NewEnsemblePredictor(
		features.NewTennisExtractor(),
		explain.New(explain.DefaultWeights()),
		store,
		pub,
		metrics,
		newTestLogger(t),
		fallback,
	)
	return p, metrics
}

func TestPredictHeuristicFallback(t *testing.T) {
	p, metrics := newTestPredictor(t, nil, nil, true)

	pred, err := p.Predict(context.Background(), testMatch(), testH2H(), false)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if pred.Mode != models.ModeHeuristic {
		t.Errorf("mode = %q, want heuristic", pred.Mode)
	}
	if pred.Prob1 < 0.45 || pred.Prob1 > 0.60 {
		t.Errorf("prob1 = %.4f, want a modest edge in [0.45, 0.60]", pred.Prob1)
	}
	if pred.Winner != 1 || pred.WinnerName != "Alpha" {
		t.Errorf("winner = %d (%s), want 1 (Alpha)", pred.Winner, pred.WinnerName)
	}
	if math.Abs(pred.Prob1+pred.Prob2-1) > 1e-12 {
		t.Errorf("probabilities sum to %v", pred.Prob1+pred.Prob2)
	}
	if pred.Confidence != int(math.Round(pred.Prob1*100)) {
		t.Errorf("confidence = %d for prob1 %.4f", pred.Confidence, pred.Prob1)
	}
	if len(pred.Factors) != 5 {
		t.Errorf("factors = %d, want 5", len(pred.Factors))
	}
	if pred.Reasoning == "" {
		t.Error("empty reasoning")
	}
	if pred.ID == "" {
		t.Error("empty prediction id")
	}
	if metrics.predictions[models.ModeHeuristic] != 1 {
		t.Errorf("heuristic counter = %d", metrics.predictions[models.ModeHeuristic])
	}
}

func TestPredictEnsembleMean(t *testing.T) {
	p, _ := newTestPredictor(t, nil, nil, true)
	p.SwapModels([]domsvc.ModelAdapter{
		&fakeAdapter{family: "logistic", p1: 0.6},
		&fakeAdapter{family: "forest", p1: 0.8},
	})

	pred, err := p.Predict(context.Background(), testMatch(), testH2H(), false)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Mode != models.ModeModel {
		t.Errorf("mode = %q, want model", pred.Mode)
	}
	if math.Abs(pred.Prob1-0.7) > 1e-12 {
		t.Errorf("prob1 = %v, want mean 0.7", pred.Prob1)
	}
	if pred.Degraded {
		t.Error("degraded with all adapters healthy")
	}
	if len(pred.Models) != 2 {
		t.Errorf("models = %v, want both families", pred.Models)
	}
}

func TestPredictDegradedOnAdapterFailure(t *testing.T) {
	p, metrics := newTestPredictor(t, nil, nil, true)
	p.SwapModels([]domsvc.ModelAdapter{
		&fakeAdapter{family: "logistic", p1: 0.6},
		&fakeAdapter{family: "forest", err: errors.New("boom")},
	})

	pred, err := p.Predict(context.Background(), testMatch(), testH2H(), false)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Mode != models.ModeModel {
		t.Errorf("mode = %q, want model", pred.Mode)
	}
	if !pred.Degraded {
		t.Error("expected degraded flag")
	}
	if math.Abs(pred.Prob1-0.6) > 1e-12 {
		t.Errorf("prob1 = %v, want surviving adapter's 0.6", pred.Prob1)
	}
	if metrics.errors["adapter_forest"] != 1 {
		t.Errorf("adapter_forest errors = %d", metrics.errors["adapter_forest"])
	}
}

func TestPredictNoModelNoFallback(t *testing.T) {
	p, _ := newTestPredictor(t, nil, nil, false)

	_, err := p.Predict(context.Background(), testMatch(), testH2H(), false)
	if !errors.Is(err, models.ErrModelNotTrained) {
		t.Errorf("err = %v, want ErrModelNotTrained", err)
	}
}

func TestPredictTieGoesToCompetitorOne(t *testing.T) {
	p, _ := newTestPredictor(t, nil, nil, true)
	p.SwapModels([]domsvc.ModelAdapter{&fakeAdapter{family: "logistic", p1: 0.5}})

	pred, err := p.Predict(context.Background(), testMatch(), testH2H(), false)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Winner != 1 {
		t.Errorf("winner = %d, want 1 on exact tie", pred.Winner)
	}
	if !pred.CoinFlip {
		t.Error("expected coin flip flag at 50/50")
	}
}

func TestPredictPersistFailureIsCaveat(t *testing.T) {
	store := &mockPredictionStore{
		savePredictionFn: func(context.Context, *models.Prediction) error {
			return fmt.Errorf("store down")
		},
	}
	p, metrics := newTestPredictor(t, store, nil, true)

	pred, err := p.Predict(context.Background(), testMatch(), testH2H(), true)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	found := false
	for _, c := range pred.Caveats {
		if c == "prediction not persisted" {
			found = true
		}
	}
	if !found {
		t.Errorf("caveats = %v, want persistence caveat", pred.Caveats)
	}
	if metrics.errors["persist"] != 1 {
		t.Errorf("persist errors = %d", metrics.errors["persist"])
	}
}

func TestPredictPublishes(t *testing.T) {
	published := 0
	pub := &mockPublisher{
		publishFn: func(_ context.Context, pr *models.Prediction) error {
			published++
			if pr.ID == "" {
				t.Error("published prediction without id")
			}
			return nil
		},
	}
	p, _ := newTestPredictor(t, nil, pub, true)

	if _, err := p.Predict(context.Background(), testMatch(), testH2H(), false); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if published != 1 {
		t.Errorf("published = %d, want 1", published)
	}
}

func TestLoadFromStore(t *testing.T) {
	schema := models.FeatureSchema{Version: "test", Fields: []string{"a", "b"}}
	extractor := &fakeExtractor{schema: schema}

	recs := make([]models.TrainingRecord, 40)
	for i := range recs {
		edge := float64(i%2)*2 - 1
		recs[i] = models.TrainingRecord{
			Features: models.FeatureVector{SchemaVersion: "test", Values: []float64{edge, 0}},
			Winner:   2 - i%2,
		}
	}
	trained, err := ml.NewAdapter(ml.FamilyLogistic, schema)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if _, err := trained.Fit(recs); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	artifact, err := trained.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, _ := json.Marshal(artifact)

	store := newMemModelStore()
	if err := store.Write(context.Background(), ml.FamilyLogistic, raw); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// a corrupt artifact must be skipped, not fatal
	if err := store.Write(context.Background(), "garbage", []byte("{")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	p := NewEnsemblePredictor(extractor, explain.New(explain.DefaultWeights()), nil, nil, newMockMetrics(), newTestLogger(t), true)
	loaded, err := p.LoadFromStore(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != ml.FamilyLogistic {
		t.Errorf("loaded = %v, want [logistic]", loaded)
	}
	if fams := p.ActiveFamilies(); len(fams) != 1 {
		t.Errorf("active families = %v", fams)
	}
}

func TestLoadFromStoreStaleArtifactDegradesPredictions(t *testing.T) {
	schema := models.FeatureSchema{Version: "test", Fields: []string{"a", "b"}}
	extractor := &fakeExtractor{schema: schema}

	recs := make([]models.TrainingRecord, 40)
	for i := range recs {
		edge := float64(i%2)*2 - 1
		recs[i] = models.TrainingRecord{
			Features: models.FeatureVector{SchemaVersion: "test", Values: []float64{edge, 0}},
			Winner:   2 - i%2,
		}
	}
	trained, err := ml.NewAdapter(ml.FamilyLogistic, schema)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if _, err := trained.Fit(recs); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	artifact, err := trained.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	good, _ := json.Marshal(artifact)

	// trained against an older schema; must be excluded, not fatal
	stale, _ := json.Marshal(models.ModelArtifact{
		Family: ml.FamilyBoost,
		Schema: models.FeatureSchema{Version: "old", Fields: []string{"a"}},
	})

	store := newMemModelStore()
	if err := store.Write(context.Background(), ml.FamilyLogistic, good); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Write(context.Background(), ml.FamilyBoost, stale); err != nil {
		t.Fatalf("Write: %v", err)
	}

	p := NewEnsemblePredictor(extractor, explain.New(explain.DefaultWeights()), nil, nil, newMockMetrics(), newTestLogger(t), true)
	loaded, err := p.LoadFromStore(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != ml.FamilyLogistic {
		t.Fatalf("loaded = %v, want [logistic]", loaded)
	}

	pred, err := p.Predict(context.Background(), testMatch(), testH2H(), false)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Mode != models.ModeModel {
		t.Errorf("mode = %q, want model", pred.Mode)
	}
	if !pred.Degraded {
		t.Error("expected degraded flag after a load-time exclusion")
	}
	found := false
	for _, c := range pred.Caveats {
		if c == "1 model artifact(s) excluded at load, ensemble incomplete" {
			found = true
		}
	}
	if !found {
		t.Errorf("caveats = %v, want load exclusion caveat", pred.Caveats)
	}

	// a full retrain swap clears the flag
	p.SwapModels([]domsvc.ModelAdapter{trained})
	pred, err = p.Predict(context.Background(), testMatch(), testH2H(), false)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Degraded {
		t.Error("degraded flag should clear after a clean swap")
	}
}
