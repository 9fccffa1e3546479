package ml

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"CourtCast/internal/domain/models"
)

var testSchema = models.FeatureSchema{
	Version: "test",
	Fields:  []string{"edge", "noise_a", "noise_b"},
}

// separableRecords builds a set where the first feature alone decides the
// winner; every family should learn it to near-perfect accuracy.
func separableRecords(n int, seed int64) []models.TrainingRecord {
	rng := rand.New(rand.NewSource(seed))
	recs := make([]models.TrainingRecord, n)
	for i := range recs {
		edge := rng.Float64()*2 - 1
		if edge >= -0.05 && edge <= 0.05 {
			edge += 0.2
		}
		winner := 2
		if edge > 0 {
			winner = 1
		}
		recs[i] = models.TrainingRecord{
			Features: models.FeatureVector{
				SchemaVersion: testSchema.Version,
				Values:        []float64{edge, rng.Float64(), rng.Float64()},
			},
			Winner: winner,
		}
	}
	return recs
}

func TestFamiliesLearnSeparablePattern(t *testing.T) {
	recs := separableRecords(200, 7)

	for _, family := range Families() {
		adapter, err := NewAdapter(family, testSchema)
		if err != nil {
			t.Fatalf("NewAdapter(%s): %v", family, err)
		}
		metrics, err := adapter.Fit(recs)
		if err != nil {
			t.Fatalf("%s Fit: %v", family, err)
		}
		if metrics.Family != family {
			t.Errorf("%s: metrics family = %q", family, metrics.Family)
		}
		if metrics.SampleCount != len(recs) {
			t.Errorf("%s: sample count = %d, want %d", family, metrics.SampleCount, len(recs))
		}
		if metrics.TrainAccuracy < 0.95 {
			t.Errorf("%s: train accuracy = %.3f, want >= 0.95", family, metrics.TrainAccuracy)
		}
	}
}

func TestPredictProbaComplement(t *testing.T) {
	recs := separableRecords(120, 11)
	probe := models.FeatureVector{
		SchemaVersion: testSchema.Version,
		Values:        []float64{0.3, 0.5, 0.5},
	}

	for _, family := range Families() {
		adapter, _ := NewAdapter(family, testSchema)
		if _, err := adapter.Fit(recs); err != nil {
			t.Fatalf("%s Fit: %v", family, err)
		}
		p1, p2, err := adapter.PredictProba(probe)
		if err != nil {
			t.Fatalf("%s PredictProba: %v", family, err)
		}
		if p1 < 0 || p1 > 1 {
			t.Errorf("%s: p1 = %v out of range", family, p1)
		}
		if math.Abs(p1+p2-1) > 1e-9 {
			t.Errorf("%s: p1+p2 = %v, want 1", family, p1+p2)
		}
		if p1 <= 0.5 {
			t.Errorf("%s: clear edge for competitor 1 but p1 = %.3f", family, p1)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	recs := separableRecords(150, 3)
	probe := models.FeatureVector{
		SchemaVersion: testSchema.Version,
		Values:        []float64{-0.4, 0.2, 0.9},
	}

	for _, family := range Families() {
		trained, _ := NewAdapter(family, testSchema)
		if _, err := trained.Fit(recs); err != nil {
			t.Fatalf("%s Fit: %v", family, err)
		}
		want1, want2, err := trained.PredictProba(probe)
		if err != nil {
			t.Fatalf("%s PredictProba: %v", family, err)
		}

		artifact, err := trained.Save()
		if err != nil {
			t.Fatalf("%s Save: %v", family, err)
		}
		if artifact.Family != family {
			t.Errorf("%s: artifact family = %q", family, artifact.Family)
		}

		restored, _ := NewAdapter(family, testSchema)
		if err := restored.Load(artifact); err != nil {
			t.Fatalf("%s Load: %v", family, err)
		}
		got1, got2, err := restored.PredictProba(probe)
		if err != nil {
			t.Fatalf("%s restored PredictProba: %v", family, err)
		}
		if math.Abs(got1-want1) > 1e-12 || math.Abs(got2-want2) > 1e-12 {
			t.Errorf("%s: restored (%.6f, %.6f), want (%.6f, %.6f)", family, got1, got2, want1, want2)
		}
	}
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	recs := separableRecords(80, 5)
	trained, _ := NewAdapter(FamilyLogistic, testSchema)
	if _, err := trained.Fit(recs); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	artifact, err := trained.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	otherSchema := models.FeatureSchema{Version: "test2", Fields: []string{"x", "y"}}
	fresh, _ := NewAdapter(FamilyLogistic, otherSchema)
	if err := fresh.Load(artifact); !errors.Is(err, models.ErrSchemaMismatch) {
		t.Errorf("schema mismatch load: err = %v, want ErrSchemaMismatch", err)
	}

	wrongFamily, _ := NewAdapter(FamilyForest, testSchema)
	if err := wrongFamily.Load(artifact); !errors.Is(err, models.ErrSchemaMismatch) {
		t.Errorf("family mismatch load: err = %v, want ErrSchemaMismatch", err)
	}
}

func TestPredictBeforeFit(t *testing.T) {
	probe := models.FeatureVector{
		SchemaVersion: testSchema.Version,
		Values:        []float64{0, 0, 0},
	}
	for _, family := range Families() {
		adapter, _ := NewAdapter(family, testSchema)
		if _, _, err := adapter.PredictProba(probe); !errors.Is(err, models.ErrModelNotTrained) {
			t.Errorf("%s: err = %v, want ErrModelNotTrained", family, err)
		}
	}
}

func TestPredictRejectsBadVector(t *testing.T) {
	recs := separableRecords(80, 9)
	adapter, _ := NewAdapter(FamilyLogistic, testSchema)
	if _, err := adapter.Fit(recs); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	short := models.FeatureVector{SchemaVersion: testSchema.Version, Values: []float64{1}}
	if _, _, err := adapter.PredictProba(short); !errors.Is(err, models.ErrInvalidFeatureVector) {
		t.Errorf("short vector: err = %v, want ErrInvalidFeatureVector", err)
	}

	wrongVersion := models.FeatureVector{SchemaVersion: "v99", Values: []float64{0, 0, 0}}
	if _, _, err := adapter.PredictProba(wrongVersion); !errors.Is(err, models.ErrInvalidFeatureVector) {
		t.Errorf("wrong version: err = %v, want ErrInvalidFeatureVector", err)
	}
}

func TestFitRejectsBadRecords(t *testing.T) {
	adapter, _ := NewAdapter(FamilyBoost, testSchema)

	if _, err := adapter.Fit(nil); err == nil {
		t.Error("empty set: expected error")
	}

	bad := separableRecords(10, 1)
	bad[4].Winner = 3
	if _, err := adapter.Fit(bad); err == nil {
		t.Error("winner out of range: expected error")
	}
}

func TestNewAdapterUnknownFamily(t *testing.T) {
	if _, err := NewAdapter("neural", testSchema); err == nil {
		t.Error("expected error for unknown family")
	}
}

func TestForestFitDeterministic(t *testing.T) {
	recs := separableRecords(100, 13)
	probe := models.FeatureVector{
		SchemaVersion: testSchema.Version,
		Values:        []float64{0.1, 0.4, 0.6},
	}

	a := NewForest(testSchema)
	b := NewForest(testSchema)
	if _, err := a.Fit(recs); err != nil {
		t.Fatalf("Fit a: %v", err)
	}
	if _, err := b.Fit(recs); err != nil {
		t.Fatalf("Fit b: %v", err)
	}
	pa, _, _ := a.PredictProba(probe)
	pb, _, _ := b.PredictProba(probe)
	if pa != pb {
		t.Errorf("same data, same seed: %v vs %v", pa, pb)
	}
}
