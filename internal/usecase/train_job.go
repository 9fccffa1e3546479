package usecase

import (
	"context"
	"fmt"

	"CourtCast/internal/domain/models"
	"CourtCast/pkg/logger"
	"CourtCast/pkg/queue"
)

// TrainJobType is the queue message type for asynchronous training runs.
const TrainJobType = "train_request"

// TrainJob runs a training request pulled off the job queue. Queueing
// serializes retraining: one worker, one run at a time, while the predictor
// keeps serving the previous model set.
type TrainJob struct {
	pipeline *TrainingPipeline
	log      *logger.Logger
}

func NewTrainJob(pipeline *TrainingPipeline, log *logger.Logger) *TrainJob {
	return &TrainJob{pipeline: pipeline, log: log}
}

func (j *TrainJob) Name() string { return "train_models" }

func (j *TrainJob) Type() string { return TrainJobType }

func (j *TrainJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.TrainRequest](payload)
	if err != nil {
		return fmt.Errorf("train job payload: %w", err)
	}

	var report *models.TrainingReport
	if req.Source == "store" {
		report, err = j.pipeline.TrainFromStore(ctx, req.SplitRatio)
	} else {
		report, err = j.pipeline.Train(ctx, req.Records, req.SplitRatio)
	}
	if err != nil {
		j.log.Error("async training failed", logger.Error(err))
		return err
	}

	j.log.Info("async training finished",
		logger.Int("train", report.TrainSize),
		logger.Int("val", report.ValSize),
		logger.Int("families", len(report.Metrics)))
	return nil
}

var _ queue.Job = (*TrainJob)(nil)
