package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"CourtCast/internal/domain/models"
	domrepo "CourtCast/internal/domain/repository"
	domsvc "CourtCast/internal/domain/service"
	"CourtCast/internal/services/explain"
	"CourtCast/internal/services/ml"
	"CourtCast/pkg/logger"
)

// heuristicGain converts the weighted factor score into a probability via the
// logistic squash. 2.0 keeps a strong all-factor edge under ~75%.
const heuristicGain = 2.0

// coinFlipBand is the half-width around 0.5 inside which a prediction is
// flagged as a coin flip.
const coinFlipBand = 0.02

type modelSet struct {
	adapters []domsvc.ModelAdapter
	excluded int // artifacts rejected at load time, schema drift or corruption
}

// EnsemblePredictor runs the full prediction path: feature extraction, every
// loaded model family, probability averaging and the factor explanation. When
// no model is loaded it degrades to the weighted heuristic, provided fallback
// is enabled.
//
// The active model set is swapped atomically; Predict never blocks a swap and
// a swap never tears a prediction in progress.
type EnsemblePredictor struct {
	extractor domsvc.FeatureExtractor
	explainer domsvc.Explainer
	store     domrepo.PredictionStore // optional
	pub       domrepo.Publisher       // optional
	metrics   domrepo.Metrics
	log       *logger.Logger

	fallbackAllowed bool
	set             atomic.Pointer[modelSet]
}

func NewEnsemblePredictor(
	extractor domsvc.FeatureExtractor,
	explainer domsvc.Explainer,
	store domrepo.PredictionStore,
	pub domrepo.Publisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
	fallbackAllowed bool,
) *EnsemblePredictor {
	p := &EnsemblePredictor{
		extractor:       extractor,
		explainer:       explainer,
		store:           store,
		pub:             pub,
		metrics:         metrics,
		log:             log,
		fallbackAllowed: fallbackAllowed,
	}
	p.set.Store(&modelSet{})
	return p
}

// SwapModels atomically replaces the active model set. In-flight predictions
// keep the set they loaded.
func (p *EnsemblePredictor) SwapModels(adapters []domsvc.ModelAdapter) {
	p.swap(adapters, 0)
}

func (p *EnsemblePredictor) swap(adapters []domsvc.ModelAdapter, excluded int) {
	p.set.Store(&modelSet{adapters: adapters, excluded: excluded})
	p.log.Info("model set swapped",
		logger.Int("adapters", len(adapters)), logger.Int("excluded", excluded))
}

// ActiveFamilies lists the families currently serving predictions.
func (p *EnsemblePredictor) ActiveFamilies() []string {
	set := p.set.Load()
	names := make([]string, 0, len(set.adapters))
	for _, a := range set.adapters {
		names = append(names, a.Family())
	}
	return names
}

// Predict produces the combined prediction for one match. persist controls
// whether the prediction is written to the store; persistence and publishing
// failures degrade to caveats rather than failing the prediction.
func (p *EnsemblePredictor) Predict(ctx context.Context, mc models.MatchContext, h2h models.HeadToHead, persist bool) (*models.Prediction, error) {
	start := time.Now()

	fv, caveats, err := p.extractor.Extract(mc, h2h)
	if err != nil {
		p.metrics.RecordError("extract")
		return nil, fmt.Errorf("extract features: %w", err)
	}

	factors := p.explainer.Breakdown(mc, h2h)

	set := p.set.Load()
	var (
		sum      float64
		families []string
	)
	excluded := set.excluded
	if set.excluded > 0 {
		caveats = append(caveats, fmt.Sprintf("%d model artifact(s) excluded at load, ensemble incomplete", set.excluded))
	}
	for _, adapter := range set.adapters {
		p1, _, err := adapter.PredictProba(fv)
		if err != nil {
			excluded++
			p.metrics.RecordError("adapter_" + adapter.Family())
			p.log.Warn("adapter excluded from ensemble",
				logger.String("family", adapter.Family()), logger.Error(err))
			continue
		}
		sum += p1
		families = append(families, adapter.Family())
	}

	var prob1 float64
	mode := models.ModeModel
	switch {
	case len(families) > 0:
		prob1 = sum / float64(len(families))
	case p.fallbackAllowed:
		mode = models.ModeHeuristic
		prob1 = explain.Squash(explain.Score(factors), heuristicGain)
		caveats = append(caveats, "no trained model available, heuristic factors used")
	default:
		p.metrics.RecordError("no_model")
		return nil, fmt.Errorf("ensemble: %w", models.ErrModelNotTrained)
	}

	prob2 := 1 - prob1
	winner := 1
	if prob2 > prob1 {
		winner = 2
	}
	winnerProb := math.Max(prob1, prob2)

	pred := &models.Prediction{
		ID:         uuid.NewString(),
		Match:      mc,
		Prob1:      prob1,
		Prob2:      prob2,
		Winner:     winner,
		WinnerName: winnerName(mc, winner),
		Confidence: int(math.Round(winnerProb * 100)),
		Mode:       mode,
		Models:     families,
		Degraded:   mode == models.ModeModel && excluded > 0,
		CoinFlip:   math.Abs(prob1-0.5) <= coinFlipBand,
		Caveats:    caveats,
		Features:   fv,
		Factors:    factors,
		CreatedAt:  time.Now().UTC(),
	}
	pred.Reasoning = p.explainer.Reasoning(mc, factors, pred)

	p.metrics.RecordPrediction(mode)
	p.metrics.RecordLatency("predict", time.Since(start).Seconds())

	if persist && p.store != nil {
		if err := p.store.SavePrediction(ctx, pred); err != nil {
			p.metrics.RecordError("persist")
			p.log.Error("persist prediction", logger.String("id", pred.ID), logger.Error(err))
			pred.Caveats = append(pred.Caveats, "prediction not persisted")
		}
	}
	if p.pub != nil {
		if err := p.pub.PublishPrediction(ctx, pred); err != nil {
			p.metrics.RecordError("publish")
			p.log.Warn("publish prediction", logger.String("id", pred.ID), logger.Error(err))
		}
	}

	return pred, nil
}

// LoadFromStore restores adapters from every readable artifact and swaps them
// in. Artifacts with a stale schema are skipped, not fatal: the engine starts
// degraded and heals on the next training run.
func (p *EnsemblePredictor) LoadFromStore(ctx context.Context, store domrepo.ModelStore) ([]string, error) {
	ids, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list model artifacts: %w", err)
	}

	schema := p.extractor.Schema()
	var adapters []domsvc.ModelAdapter
	var loaded []string
	var skipped int
	for _, id := range ids {
		raw, err := store.Read(ctx, id)
		if err != nil {
			skipped++
			p.log.Warn("read model artifact", logger.String("id", id), logger.Error(err))
			continue
		}
		var artifact models.ModelArtifact
		if err := json.Unmarshal(raw, &artifact); err != nil {
			skipped++
			p.log.Warn("decode model artifact", logger.String("id", id), logger.Error(err))
			continue
		}
		adapter, err := ml.NewAdapter(artifact.Family, schema)
		if err != nil {
			skipped++
			p.log.Warn("unknown artifact family", logger.String("id", id), logger.Error(err))
			continue
		}
		if err := adapter.Load(artifact); err != nil {
			skipped++
			p.log.Warn("load model artifact",
				logger.String("id", id), logger.String("family", artifact.Family), logger.Error(err))
			continue
		}
		adapters = append(adapters, adapter)
		loaded = append(loaded, artifact.Family)
	}

	if len(adapters) == 0 {
		p.log.Warn("no model artifacts loaded, serving heuristic only",
			logger.Int("artifacts_seen", len(ids)))
		return nil, nil
	}
	// Skips leave the ensemble incomplete; predictions carry the degraded
	// flag until a full retrain swaps in a clean set.
	p.swap(adapters, skipped)
	return loaded, nil
}

func winnerName(mc models.MatchContext, winner int) string {
	c := mc.Competitor1
	if winner == 2 {
		c = mc.Competitor2
	}
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("competitor %d", winner)
}
