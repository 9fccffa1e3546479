package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"CourtCast/internal/domain/models"
	domrepo "CourtCast/internal/domain/repository"
	domsvc "CourtCast/internal/domain/service"
	"CourtCast/internal/services/ml"
	"CourtCast/pkg/logger"
)

// minTrainingSamples is the smallest set the pipeline accepts; below this a
// validation split is meaningless.
const minTrainingSamples = 10

// storeRecordLimit caps how many labeled records a store-sourced run pulls.
const storeRecordLimit = 50000

// TrainingPipeline fits every model family on a labeled set, scores each on a
// held-out split, persists the artifacts and swaps the new set into the
// predictor. One run at a time; concurrent calls are the caller's problem to
// serialize (the HTTP layer funnels them through the job queue).
type TrainingPipeline struct {
	extractor  domsvc.FeatureExtractor
	modelStore domrepo.ModelStore
	predStore  domrepo.PredictionStore // optional, for store-sourced runs
	predictor  *EnsemblePredictor
	metrics    domrepo.Metrics
	log        *logger.Logger
	seed       int64
}

func NewTrainingPipeline(
	extractor domsvc.FeatureExtractor,
	modelStore domrepo.ModelStore,
	predStore domrepo.PredictionStore,
	predictor *EnsemblePredictor,
	metrics domrepo.Metrics,
	log *logger.Logger,
	seed int64,
) *TrainingPipeline {
	return &TrainingPipeline{
		extractor:  extractor,
		modelStore: modelStore,
		predStore:  predStore,
		predictor:  predictor,
		metrics:    metrics,
		log:        log,
		seed:       seed,
	}
}

// Train runs the full pipeline on the given records. Cancellation is honored
// between families: finished artifacts are kept, unstarted families land in
// the report's Skipped list.
func (t *TrainingPipeline) Train(ctx context.Context, recs []models.TrainingRecord, splitRatio float64) (*models.TrainingReport, error) {
	if len(recs) < minTrainingSamples {
		return nil, fmt.Errorf("%d records, need at least %d: %w",
			len(recs), minTrainingSamples, models.ErrDataUnavailable)
	}
	if splitRatio <= 0 || splitRatio >= 1 {
		return nil, fmt.Errorf("split ratio %v outside (0,1)", splitRatio)
	}

	train, val := t.split(recs, splitRatio)
	t.log.Info("training started",
		logger.Int("train", len(train)), logger.Int("val", len(val)),
		logger.Int64("seed", t.seed))

	report := &models.TrainingReport{
		Seed:       t.seed,
		SplitRatio: splitRatio,
		TrainSize:  len(train),
		ValSize:    len(val),
		Metrics:    make(map[string]models.FitMetrics),
		Artifacts:  make(map[string]models.ModelArtifact),
	}

	schema := t.extractor.Schema()
	var adapters []domsvc.ModelAdapter
	for _, family := range ml.Families() {
		if err := ctx.Err(); err != nil {
			report.Skipped = append(report.Skipped, family)
			t.log.Warn("training cancelled, family skipped", logger.String("family", family))
			continue
		}

		start := time.Now()
		adapter, err := ml.NewAdapter(family, schema)
		if err != nil {
			return nil, err
		}
		metrics, err := adapter.Fit(train)
		if err != nil {
			return nil, fmt.Errorf("fit %s: %w", family, err)
		}
		metrics.ValidationAccuracy = holdoutAccuracy(adapter, val)
		metrics.ValidationCount = len(val)
		t.metrics.RecordValidationAccuracy(family, metrics.ValidationAccuracy)
		t.metrics.RecordLatency("train_"+family, time.Since(start).Seconds())

		artifact, err := adapter.Save()
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", family, err)
		}
		artifact.SampleCount = len(train)
		if err := t.writeArtifact(ctx, artifact); err != nil {
			return nil, err
		}

		report.Metrics[family] = metrics
		report.Artifacts[family] = artifact
		adapters = append(adapters, adapter)

		t.log.Info("family trained",
			logger.String("family", family),
			logger.Any("train_acc", metrics.TrainAccuracy),
			logger.Any("val_acc", metrics.ValidationAccuracy))
	}

	if len(adapters) > 0 && t.predictor != nil {
		t.predictor.SwapModels(adapters)
	}
	return report, nil
}

// TrainFromStore runs the pipeline on the labeled records accumulated in the
// prediction store.
func (t *TrainingPipeline) TrainFromStore(ctx context.Context, splitRatio float64) (*models.TrainingReport, error) {
	if t.predStore == nil {
		return nil, fmt.Errorf("no prediction store configured: %w", models.ErrDataUnavailable)
	}
	recs, err := t.predStore.ListTrainingRecords(ctx, storeRecordLimit)
	if err != nil {
		return nil, fmt.Errorf("list training records: %w", err)
	}
	return t.Train(ctx, recs, splitRatio)
}

// split shuffles a copy of the records with the pipeline seed and cuts it at
// the ratio. Same seed, same records, same split.
func (t *TrainingPipeline) split(recs []models.TrainingRecord, ratio float64) (train, val []models.TrainingRecord) {
	shuffled := make([]models.TrainingRecord, len(recs))
	copy(shuffled, recs)
	rng := rand.New(rand.NewSource(t.seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := int(float64(len(shuffled)) * ratio)
	if cut < 1 {
		cut = 1
	}
	if cut >= len(shuffled) {
		cut = len(shuffled) - 1
	}
	return shuffled[:cut], shuffled[cut:]
}

func (t *TrainingPipeline) writeArtifact(ctx context.Context, a models.ModelArtifact) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode %s artifact: %w", a.Family, err)
	}
	if err := t.modelStore.Write(ctx, a.Family, raw); err != nil {
		t.metrics.RecordError("artifact_write")
		return fmt.Errorf("write %s artifact: %w", a.Family, err)
	}
	return nil
}

func holdoutAccuracy(m domsvc.ModelAdapter, val []models.TrainingRecord) float64 {
	if len(val) == 0 {
		return 0
	}
	correct := 0
	for _, r := range val {
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
	return float64(correct) / float64(len(val))
}
