package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"CourtCast/internal/domain/models"
	domrepo "CourtCast/internal/domain/repository"
	icache "CourtCast/internal/service/cache"
	"CourtCast/internal/service/ratelimit"
	"CourtCast/internal/usecase"
	xhttp "CourtCast/pkg/http"
	xlogger "CourtCast/pkg/logger"
	"CourtCast/pkg/queue"
)

// Predictor is the prediction surface the handler needs.
type Predictor interface {
	Predict(ctx context.Context, mc models.MatchContext, h2h models.HeadToHead, persist bool) (*models.Prediction, error)
	ActiveFamilies() []string
}

// Trainer is the training surface the handler needs.
type Trainer interface {
	Train(ctx context.Context, recs []models.TrainingRecord, splitRatio float64) (*models.TrainingReport, error)
	TrainFromStore(ctx context.Context, splitRatio float64) (*models.TrainingReport, error)
}

// Validator is the result-recording surface the handler needs.
type Validator interface {
	Validate(ctx context.Context, predictionID, actualWinner string) (*models.Result, error)
	Accuracy(ctx context.Context) (models.AccuracyReport, error)
}

// PredictionsHandler implements the Echo-based HTTP API.
type PredictionsHandler struct {
	logger    *xlogger.Logger
	predictor Predictor
	trainer   Trainer
	validator Validator
	store     domrepo.PredictionStore // optional
	provider  domrepo.DataProvider    // optional
	jobs      queue.QueueService      // optional, enables async training
	cache     icache.BytesCache       // optional, read-endpoint caching
	rl        *ratelimit.Limiter
}

func NewPredictionsHandler(
	logger *xlogger.Logger,
	predictor Predictor,
	trainer Trainer,
	validator Validator,
	store domrepo.PredictionStore,
	provider domrepo.DataProvider,
	jobs queue.QueueService,
	cache icache.BytesCache,
) *PredictionsHandler {
	return &PredictionsHandler{
		logger:    logger,
		predictor: predictor,
		trainer:   trainer,
		validator: validator,
		store:     store,
		provider:  provider,
		jobs:      jobs,
		cache:     cache,
		rl:        ratelimit.New(),
	}
}

func (h *PredictionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.POST("/predict/by-id", h.PredictByID)
	g.POST("/train", h.Train)
	g.POST("/validate", h.Validate)
	g.GET("/history", h.History)
	g.GET("/accuracy", h.Accuracy)
	g.GET("/models", h.Models)
}

func (h *PredictionsHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Match.Competitor1.ID == "" && req.Match.Competitor1.Name == "" {
		return xhttp.BadRequestResponse(c, "competitor1 is required")
	}
	if req.Match.Competitor2.ID == "" && req.Match.Competitor2.Name == "" {
		return xhttp.BadRequestResponse(c, "competitor2 is required")
	}

	persist := h.store != nil
	if req.Persist != nil {
		persist = *req.Persist && h.store != nil
	}

	pred, err := h.predictor.Predict(c.Request().Context(), req.Match, req.HeadToHead, persist)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.Error(err))
		return h.engineError(c, err)
	}
	return xhttp.SuccessResponse(c, pred)
}

func (h *PredictionsHandler) PredictByID(c echo.Context) error {
	req := &models.PredictByIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.provider == nil {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_NO_PROVIDER", "", "no data provider configured", http.StatusServiceUnavailable))
	}

	ctx := c.Request().Context()
	c1, err := h.provider.Competitor(ctx, req.Competitor1ID)
	if err != nil {
		h.logger.Error("fetch competitor1", xlogger.Error(err))
		return h.engineError(c, err)
	}
	c2, err := h.provider.Competitor(ctx, req.Competitor2ID)
	if err != nil {
		h.logger.Error("fetch competitor2", xlogger.Error(err))
		return h.engineError(c, err)
	}

	// Missing head-to-head degrades to an empty history, never a failure.
	h2h := models.HeadToHead{}
	if got, err := h.provider.HeadToHead(ctx, req.Competitor1ID, req.Competitor2ID); err != nil {
		h.logger.Warn("fetch head-to-head", xlogger.Error(err))
	} else {
		h2h = *got
	}

	mc := models.MatchContext{
		Event:       req.Event,
		Competitor1: *c1,
		Competitor2: *c2,
		Surface:     models.NormalizeSurface(req.Surface),
		Tier:        models.Tier(req.Tier),
		BestOf:      req.BestOf,
		Date:        parseDate(req.Date),
	}

	pred, err := h.predictor.Predict(ctx, mc, h2h, h.store != nil)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.Error(err))
		return h.engineError(c, err)
	}
	return xhttp.SuccessResponse(c, pred)
}

func (h *PredictionsHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Source == "inline" && len(req.Records) == 0 {
		return xhttp.BadRequestResponse(c, "records are required for inline training")
	}

	ctx := c.Request().Context()

	// Inline records also land in the store so later store-sourced runs can
	// retrain on the full accumulated set.
	if h.store != nil && len(req.Records) > 0 {
		if err := h.store.SaveTrainingRecords(ctx, req.Records); err != nil {
			h.logger.Warn("save inline training records", xlogger.Error(err))
		}
	}

	if req.Async {
		if h.jobs == nil {
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_NO_QUEUE", "", "async training is not configured", http.StatusServiceUnavailable))
		}
		if err := h.jobs.PublishMessage(ctx, usecase.TrainJobType, req); err != nil {
			h.logger.Error("enqueue training", xlogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"status": "queued"})
	}

	var report *models.TrainingReport
	var err error
	if req.Source == "store" {
		report, err = h.trainer.TrainFromStore(ctx, req.SplitRatio)
	} else {
		report, err = h.trainer.Train(ctx, req.Records, req.SplitRatio)
	}
	if err != nil {
		h.logger.Error("train usecase error", xlogger.Error(err))
		return h.engineError(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *PredictionsHandler) Validate(c echo.Context) error {
	req := &models.ValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.validator == nil {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_NO_STORE", "", "no prediction store configured", http.StatusServiceUnavailable))
	}

	result, err := h.validator.Validate(c.Request().Context(), req.PredictionID, req.ActualWinner)
	if err != nil {
		h.logger.Error("validate usecase error", xlogger.Error(err))
		return h.engineError(c, err)
	}
	return xhttp.SuccessResponse(c, result)
}

func (h *PredictionsHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_NO_STORE", "", "no prediction store configured", http.StatusServiceUnavailable))
	}
	if !h.rl.Allow(c.RealIP()+":history", 5, 2) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", http.StatusTooManyRequests))
	}

	cacheKey := "history:" + strconv.Itoa(req.Limit)
	if h.serveCached(c, cacheKey) {
		return nil
	}

	preds, err := h.store.ListPredictions(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("history query error", xlogger.Error(err))
		return h.engineError(c, err)
	}
	return h.respondAndCache(c, cacheKey, preds, 15*time.Second)
}

func (h *PredictionsHandler) Accuracy(c echo.Context) error {
	if h.validator == nil {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_NO_STORE", "", "no prediction store configured", http.StatusServiceUnavailable))
	}
	if !h.rl.Allow(c.RealIP()+":accuracy", 5, 2) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", http.StatusTooManyRequests))
	}

	const cacheKey = "accuracy"
	if h.serveCached(c, cacheKey) {
		return nil
	}

	report, err := h.validator.Accuracy(c.Request().Context())
	if err != nil {
		h.logger.Error("accuracy query error", xlogger.Error(err))
		return h.engineError(c, err)
	}
	return h.respondAndCache(c, cacheKey, report, 30*time.Second)
}

// Models reports which model families are currently serving.
func (h *PredictionsHandler) Models(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]any{
		"families": h.predictor.ActiveFamilies(),
	})
}

func (h *PredictionsHandler) engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrModelNotTrained):
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_MODEL_NOT_TRAINED", "", err.Error(), http.StatusServiceUnavailable).WithError(err))
	case errors.Is(err, models.ErrDataUnavailable):
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_DATA_UNAVAILABLE", "", err.Error(), http.StatusBadGateway).WithError(err))
	case errors.Is(err, models.ErrInvalidFeatureVector), errors.Is(err, models.ErrSchemaMismatch):
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_BAD_INPUT", "", err.Error(), http.StatusBadRequest).WithError(err))
	default:
		return xhttp.AppErrorResponse(c, err)
	}
}

// serveCached writes the cached payload when present. Responses are cached
// as rendered JSON, the same trick the payload columns use in the store.
func (h *PredictionsHandler) serveCached(c echo.Context, key string) bool {
	if h.cache == nil {
		return false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("cache get", xlogger.String("key", key), xlogger.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := c.JSONBlob(http.StatusOK, b); err != nil {
		h.logger.Warn("cached write", xlogger.Error(err))
	}
	return true
}

func (h *PredictionsHandler) respondAndCache(c echo.Context, key string, data interface{}, ttl time.Duration) error {
	if h.cache != nil {
		if b, err := renderResponse(data); err == nil {
			if err := h.cache.SetBytes(key, b, ttl); err != nil {
				h.logger.Warn("cache set", xlogger.String("key", key), xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, data)
}

func renderResponse(data interface{}) ([]byte, error) {
	return xhttp.MarshalAPIResponse(http.StatusOK, data)
}

func parseDate(s string) time.Time {
	return xhttp.ParseTimeDefault(s, time.Now().UTC())
}
