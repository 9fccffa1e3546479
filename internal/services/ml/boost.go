package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"CourtCast/internal/domain/models"
)

const (
	boostRounds  = 60
	boostDepth   = 3
	boostMinLeaf = 2
	boostShrink  = 0.1
)

// Boost is the boosted-tree family: second-order gradient boosting on
// log-loss with shallow regression trees and Newton leaf values.
type Boost struct {
	schema models.FeatureSchema
	params boostParams
	fitted bool
}

type boostParams struct {
	Base   float64     `json:"base"` // prior log-odds
	Shrink float64     `json:"shrink"`
	Trees  []*TreeNode `json:"trees"`
}

func NewBoost(schema models.FeatureSchema) *Boost {
	return &Boost{schema: schema}
}

func (m *Boost) Family() string { return FamilyBoost }

func (m *Boost) Fit(recs []models.TrainingRecord) (models.FitMetrics, error) {
	if err := checkRecords(m.schema, recs); err != nil {
		return models.FitMetrics{}, fmt.Errorf("boost fit: %w", err)
	}

	n := len(recs)
	X := make([][]float64, n)
	y := make([]float64, n)
	pos := 0.0
	for i, r := range recs {
		X[i] = r.Features.Values
		y[i] = label(r)
		pos += y[i]
	}

	prior := clampProb(pos / float64(n))
	base := math.Log(prior / (1 - prior))

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	F := make([]float64, n)
	for i := range F {
		F[i] = base
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	trees := make([]*TreeNode, 0, boostRounds)
	for round := 0; round < boostRounds; round++ {
		for i := range F {
			p := sigmoid(F[i])
			grad[i] = p - y[i]
			hess[i] = p * (1 - p)
		}
		tree := buildGradTree(X, grad, hess, idx, 0, treeConfig{
			maxDepth: boostDepth,
			minLeaf:  boostMinLeaf,
		})
		trees = append(trees, tree)
		for i := range F {
			F[i] += boostShrink * tree.Eval(X[i])
		}
	}

	m.params = boostParams{Base: base, Shrink: boostShrink, Trees: trees}
	m.fitted = true

	return models.FitMetrics{
		Family:        FamilyBoost,
		TrainAccuracy: trainAccuracy(m, recs),
		SampleCount:   n,
	}, nil
}

func (m *Boost) PredictProba(fv models.FeatureVector) (float64, float64, error) {
	if !m.fitted {
		return 0, 0, fmt.Errorf("boost: %w", models.ErrModelNotTrained)
	}
	if err := checkVector(m.schema, fv); err != nil {
		return 0, 0, err
	}
	f := m.params.Base
	for _, t := range m.params.Trees {
		f += m.params.Shrink * t.Eval(fv.Values)
	}
	p1 := sigmoid(f)
	return p1, 1 - p1, nil
}

func (m *Boost) Save() (models.ModelArtifact, error) {
	if !m.fitted {
		return models.ModelArtifact{}, fmt.Errorf("boost save: %w", models.ErrModelNotTrained)
	}
	raw, err := json.Marshal(m.params)
	if err != nil {
		return models.ModelArtifact{}, fmt.Errorf("boost save: %w", err)
	}
	return models.ModelArtifact{
		Family:    FamilyBoost,
		Schema:    m.schema,
		TrainedAt: time.Now().UTC(),
		Params:    raw,
	}, nil
}

func (m *Boost) Load(a models.ModelArtifact) error {
	if err := checkArtifact(FamilyBoost, m.schema, a); err != nil {
		return err
	}
	var p boostParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return fmt.Errorf("boost load: %w", err)
	}
	if len(p.Trees) == 0 {
		return fmt.Errorf("boost load: artifact has no trees")
	}
	m.params = p
	m.fitted = true
	return nil
}

func clampProb(p float64) float64 {
	if p < 1e-4 {
		return 1e-4
	}
	if p > 1-1e-4 {
		return 1 - 1e-4
	}
	return p
}
