package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	domrepo "CourtCast/internal/domain/repository"
	mid "CourtCast/internal/middleware"
	"CourtCast/internal/usecase"
	pkgch "CourtCast/pkg/clickhouse"
	"CourtCast/pkg/config"
	xhttp "CourtCast/pkg/http"
	pkgkafka "CourtCast/pkg/kafka"
	applogger "CourtCast/pkg/logger"
	"CourtCast/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	predictor   *usecase.EnsemblePredictor
	modelStore  domrepo.ModelStore
	consumer    *pkgkafka.Consumer
	rh          pkgkafka.MessageHandler
	pipeline    *mid.ResultsPipeline
	jobs        *queue.RedisQueue
	publisher   domrepo.Publisher
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with the core dependencies.
func New(
	cfg *config.Config,
	predictor *usecase.EnsemblePredictor,
	modelStore domrepo.ModelStore,
	consumer *pkgkafka.Consumer,
	rh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		predictor:  predictor,
		modelStore: modelStore,
		consumer:   consumer,
		rh:         rh,
		chClient:   chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetJobQueue attaches the background training job queue.
func (a *App) SetJobQueue(q *queue.RedisQueue) { a.jobs = q }

// SetPublisher attaches the prediction publisher for shutdown.
func (a *App) SetPublisher(p domrepo.Publisher) { a.publisher = p }

// SetResultsPipeline attaches the results ingestion pipeline.
func (a *App) SetResultsPipeline(p *mid.ResultsPipeline) { a.pipeline = p }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := applogger.New(&applogger.Config{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		Output: a.cfg.Logging.Output,
	})
	if err != nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	}

	// Restore model artifacts before serving. Starting without models is
	// fine: the predictor degrades to the heuristic until trained.
	if a.modelStore != nil {
		families, err := a.predictor.LoadFromStore(ctx, a.modelStore)
		if err != nil {
			l.Warn("model restore failed", applogger.Error(err))
		} else if len(families) > 0 {
			l.Info("models restored", applogger.Strings("families", families))
		} else {
			l.Warn("no model artifacts found, serving heuristic until trained")
		}
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
	}

	// Start the match-results consumer if configured
	if a.consumer != nil && a.rh != nil {
		a.consumer.RegisterHandler(a.rh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.rh.Topic()))
	}

	// Start the training job worker if configured
	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
		} else {
			l.Info("job queue started", applogger.Int("workers", a.cfg.Queue.Workers))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("serving", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	if a.jobs != nil {
		if err := a.jobs.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
