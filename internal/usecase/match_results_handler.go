package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CourtCast/internal/domain/models"
	domrepo "CourtCast/internal/domain/repository"
	pkgkafka "CourtCast/pkg/kafka"
	"CourtCast/pkg/logger"
)

// ResultSink receives match results from the consumer. A nil result with a
// nil error means the event was accepted but deferred (buffered for retry).
type ResultSink interface {
	Process(ctx context.Context, predictionID, actualWinner string) (*models.Result, error)
}

// MatchResultsHandler consumes finished-match events and validates the
// corresponding predictions.
type MatchResultsHandler struct {
	topic   string
	sink    ResultSink
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewMatchResultsHandler(topic string, sink ResultSink, metrics domrepo.Metrics, log *logger.Logger) *MatchResultsHandler {
	return &MatchResultsHandler{topic: topic, sink: sink, metrics: metrics, log: log}
}

func (h *MatchResultsHandler) Topic() string { return h.topic }

// incoming message schema: {prediction_id, actual_winner}
func (h *MatchResultsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		PredictionID string `json:"prediction_id"`
		ActualWinner string `json:"actual_winner"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	start := time.Now()
	result, err := h.sink.Process(ctx, m.PredictionID, m.ActualWinner)
	h.metrics.RecordLatency("result_validate_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_validate")
		return err
	}
	if result == nil {
		h.log.Debug("match result deferred",
			logger.String("prediction_id", m.PredictionID))
		return nil
	}

	h.log.Info("consumed match result",
		logger.String("prediction_id", result.PredictionID),
		logger.Bool("correct", result.IsCorrect))
	return nil
}

var _ pkgkafka.MessageHandler = (*MatchResultsHandler)(nil)
