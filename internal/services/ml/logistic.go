package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"CourtCast/internal/domain/models"
)

const (
	logisticIters = 400
	logisticLR    = 0.5
)

// Logistic is the baseline linear family: standardized features, batch
// gradient descent on log-loss, sigmoid output.
type Logistic struct {
	schema models.FeatureSchema
	params logisticParams
	fitted bool
}

type logisticParams struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"`
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
}

func NewLogistic(schema models.FeatureSchema) *Logistic {
	return &Logistic{schema: schema}
}

func (m *Logistic) Family() string { return FamilyLogistic }

func (m *Logistic) Fit(recs []models.TrainingRecord) (models.FitMetrics, error) {
	if err := checkRecords(m.schema, recs); err != nil {
		return models.FitMetrics{}, fmt.Errorf("logistic fit: %w", err)
	}

	d := len(m.schema.Fields)
	means, stds := standardization(recs, d)

	// standardized design matrix and targets
	X := make([][]float64, len(recs))
	y := make([]float64, len(recs))
	for i, r := range recs {
		X[i] = standardize(r.Features.Values, means, stds)
		y[i] = label(r)
	}

	bias := 0.0
	w := make([]float64, d)
	n := float64(len(recs))
	for iter := 0; iter < logisticIters; iter++ {
		gb := 0.0
		gw := make([]float64, d)
		for i := range X {
			z := bias
			for j, x := range X[i] {
				z += w[j] * x
			}
			diff := sigmoid(z) - y[i]
			gb += diff
			for j, x := range X[i] {
				gw[j] += diff * x
			}
		}
		bias -= logisticLR * gb / n
		for j := range w {
			w[j] -= logisticLR * gw[j] / n
		}
	}

	m.params = logisticParams{Bias: bias, Weights: w, Means: means, Stds: stds}
	m.fitted = true

	return models.FitMetrics{
		Family:        FamilyLogistic,
		TrainAccuracy: trainAccuracy(m, recs),
		SampleCount:   len(recs),
	}, nil
}

func (m *Logistic) PredictProba(fv models.FeatureVector) (float64, float64, error) {
	if !m.fitted {
		return 0, 0, fmt.Errorf("logistic: %w", models.ErrModelNotTrained)
	}
	if err := checkVector(m.schema, fv); err != nil {
		return 0, 0, err
	}
	z := m.params.Bias
	for j, x := range standardize(fv.Values, m.params.Means, m.params.Stds) {
		z += m.params.Weights[j] * x
	}
	p1 := sigmoid(z)
	return p1, 1 - p1, nil
}

func (m *Logistic) Save() (models.ModelArtifact, error) {
	if !m.fitted {
		return models.ModelArtifact{}, fmt.Errorf("logistic save: %w", models.ErrModelNotTrained)
	}
	raw, err := json.Marshal(m.params)
	if err != nil {
		return models.ModelArtifact{}, fmt.Errorf("logistic save: %w", err)
	}
	return models.ModelArtifact{
		Family:    FamilyLogistic,
		Schema:    m.schema,
		TrainedAt: time.Now().UTC(),
		Params:    raw,
	}, nil
}

func (m *Logistic) Load(a models.ModelArtifact) error {
	if err := checkArtifact(FamilyLogistic, m.schema, a); err != nil {
		return err
	}
	var p logisticParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return fmt.Errorf("logistic load: %w", err)
	}
	if len(p.Weights) != len(m.schema.Fields) {
		return fmt.Errorf("logistic load: %d weights for %d fields: %w",
			len(p.Weights), len(m.schema.Fields), models.ErrSchemaMismatch)
	}
	m.params = p
	m.fitted = true
	return nil
}

func standardization(recs []models.TrainingRecord, d int) (means, stds []float64) {
	means = make([]float64, d)
	stds = make([]float64, d)
	n := float64(len(recs))
	for _, r := range recs {
		for j, v := range r.Features.Values {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, r := range recs {
		for j, v := range r.Features.Values {
			diff := v - means[j]
			stds[j] += diff * diff
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

func standardize(values, means, stds []float64) []float64 {
	out := make([]float64, len(values))
	for j, v := range values {
		out[j] = (v - means[j]) / stds[j]
	}
	return out
}
