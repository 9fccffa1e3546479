// Package ml implements the in-process model families behind the ensemble:
// gradient-descent logistic regression, a bagged CART forest and gradient
// boosted trees. All adapters honor the same contract so the ensemble treats
// them uniformly.
package ml

import (
	"fmt"
	"math"

	"CourtCast/internal/domain/models"
	domsvc "CourtCast/internal/domain/service"
)

// Family names. These double as artifact IDs in the model store.
const (
	FamilyLogistic = "logistic"
	FamilyForest   = "forest"
	FamilyBoost    = "boost"
)

// Families lists every known family in a stable order.
func Families() []string {
	return []string{FamilyLogistic, FamilyForest, FamilyBoost}
}

// NewAdapter constructs a fresh, unfitted adapter for the family, bound to
// the given extraction schema.
func NewAdapter(family string, schema models.FeatureSchema) (domsvc.ModelAdapter, error) {
	switch family {
	case FamilyLogistic:
		return NewLogistic(schema), nil
	case FamilyForest:
		return NewForest(schema), nil
	case FamilyBoost:
		return NewBoost(schema), nil
	default:
		return nil, fmt.Errorf("unknown model family %q", family)
	}
}

// checkVector rejects any vector whose schema or length differs from the
// adapter's before it can reach model internals.
func checkVector(schema models.FeatureSchema, fv models.FeatureVector) error {
	if fv.SchemaVersion != schema.Version || len(fv.Values) != len(schema.Fields) {
		return fmt.Errorf("%w: got %d values (schema %s), want %d (schema %s)",
			models.ErrInvalidFeatureVector, len(fv.Values), fv.SchemaVersion, len(schema.Fields), schema.Version)
	}
	return nil
}

// checkArtifact validates family and schema before parameters are restored.
func checkArtifact(family string, schema models.FeatureSchema, a models.ModelArtifact) error {
	if a.Family != family {
		return fmt.Errorf("artifact family %q, adapter %q: %w", a.Family, family, models.ErrSchemaMismatch)
	}
	if !a.Schema.Equal(schema) {
		return fmt.Errorf("artifact schema %s (%d fields) vs live %s (%d fields): %w",
			a.Schema.Version, len(a.Schema.Fields), schema.Version, len(schema.Fields), models.ErrSchemaMismatch)
	}
	return nil
}

// label maps a record's winner to the binary target: 1 when competitor 1 won.
func label(r models.TrainingRecord) float64 {
	if r.Winner == 1 {
		return 1
	}
	return 0
}

// sigmoid with the usual clamp so extreme logits stay finite.
func sigmoid(z float64) float64 {
	if z > 20 {
		return 1 - 1e-9
	}
	if z < -20 {
		return 1e-9
	}
	return 1 / (1 + math.Exp(-z))
}

// trainAccuracy scores an adapter against the records it was fitted on.
func trainAccuracy(m domsvc.ModelAdapter, recs []models.TrainingRecord) float64 {
	if len(recs) == 0 {
		return 0
	}
	correct := 0
	for _, r := range recs {
		p1, _, err := m.PredictProba(r.Features)
		if err != nil {
			continue
		}
		pred := 2
		if p1 >= 0.5 {
			pred = 1
		}
		if pred == r.Winner {
			correct++
		}
	}
	return float64(correct) / float64(len(recs))
}

// checkRecords validates every record vector up front so Fit never sees a
// malformed row mid-pass.
func checkRecords(schema models.FeatureSchema, recs []models.TrainingRecord) error {
	if len(recs) == 0 {
		return fmt.Errorf("empty training set")
	}
	for i, r := range recs {
		if err := checkVector(schema, r.Features); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if r.Winner != 1 && r.Winner != 2 {
			return fmt.Errorf("record %d: winner must be 1 or 2, got %d", i, r.Winner)
		}
	}
	return nil
}
