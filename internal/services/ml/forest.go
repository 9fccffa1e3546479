package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"CourtCast/internal/domain/models"
)

const (
	forestTrees    = 100
	forestMaxDepth = 8
	forestMinLeaf  = 2
	forestSeed     = 42
)

// Forest is the bagged tree-ensemble family: bootstrap samples, per-split
// feature subsampling, mean of leaf probabilities. Seeded, so fits are
// reproducible.
type Forest struct {
	schema models.FeatureSchema
	params forestParams
	fitted bool
}

type forestParams struct {
	Trees []*TreeNode `json:"trees"`
	Seed  int64       `json:"seed"`
}

func NewForest(schema models.FeatureSchema) *Forest {
	return &Forest{schema: schema}
}

func (m *Forest) Family() string { return FamilyForest }

func (m *Forest) Fit(recs []models.TrainingRecord) (models.FitMetrics, error) {
	if err := checkRecords(m.schema, recs); err != nil {
		return models.FitMetrics{}, fmt.Errorf("forest fit: %w", err)
	}

	X := make([][]float64, len(recs))
	y := make([]float64, len(recs))
	for i, r := range recs {
		X[i] = r.Features.Values
		y[i] = label(r)
	}

	rng := rand.New(rand.NewSource(forestSeed))
	frac := math.Sqrt(float64(len(m.schema.Fields))) / float64(len(m.schema.Fields))

	trees := make([]*TreeNode, forestTrees)
	for t := range trees {
		boot := make([]int, len(recs))
		for i := range boot {
			boot[i] = rng.Intn(len(recs))
		}
		trees[t] = buildClassTree(X, y, boot, 0, treeConfig{
			maxDepth:    forestMaxDepth,
			minLeaf:     forestMinLeaf,
			featureFrac: frac,
			rng:         rng,
		})
	}

	m.params = forestParams{Trees: trees, Seed: forestSeed}
	m.fitted = true

	return models.FitMetrics{
		Family:        FamilyForest,
		TrainAccuracy: trainAccuracy(m, recs),
		SampleCount:   len(recs),
	}, nil
}

func (m *Forest) PredictProba(fv models.FeatureVector) (float64, float64, error) {
	if !m.fitted {
		return 0, 0, fmt.Errorf("forest: %w", models.ErrModelNotTrained)
	}
	if err := checkVector(m.schema, fv); err != nil {
		return 0, 0, err
	}
	sum := 0.0
	for _, t := range m.params.Trees {
		sum += t.Eval(fv.Values)
	}
	p1 := sum / float64(len(m.params.Trees))
	return p1, 1 - p1, nil
}

func (m *Forest) Save() (models.ModelArtifact, error) {
	if !m.fitted {
		return models.ModelArtifact{}, fmt.Errorf("forest save: %w", models.ErrModelNotTrained)
	}
	raw, err := json.Marshal(m.params)
	if err != nil {
		return models.ModelArtifact{}, fmt.Errorf("forest save: %w", err)
	}
	return models.ModelArtifact{
		Family:    FamilyForest,
		Schema:    m.schema,
		TrainedAt: time.Now().UTC(),
		Params:    raw,
	}, nil
}

func (m *Forest) Load(a models.ModelArtifact) error {
	if err := checkArtifact(FamilyForest, m.schema, a); err != nil {
		return err
	}
	var p forestParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return fmt.Errorf("forest load: %w", err)
	}
	if len(p.Trees) == 0 {
		return fmt.Errorf("forest load: artifact has no trees")
	}
	m.params = p
	m.fitted = true
	return nil
}
