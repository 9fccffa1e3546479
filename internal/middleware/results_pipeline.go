package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CourtCast/internal/domain/models"
	domrepo "CourtCast/internal/domain/repository"
)

// Recorder is the minimal validation surface the pipeline needs.
type Recorder interface {
	Validate(ctx context.Context, predictionID, actualWinner string) (*models.Result, error)
}

// ResultsPipeline is a middleware between the results consumer and the
// validator. It validates incoming events, drops duplicates, and buffers
// events whose prediction row is not visible yet so they can be retried
// instead of bouncing through the consumer retry path.
type ResultsPipeline struct {
	rec     Recorder
	metrics domrepo.Metrics

	maxAttempts int
	bufSize     int
	bufCh       chan resultEvent
	stopCh      chan struct{}
	started     bool
	mu          sync.Mutex

	dedupeWindow time.Duration
	seen         map[string]time.Time // prediction id -> last accepted time
}

type resultEvent struct {
	PredictionID string
	ActualWinner string
	Attempts     int
}

type PipelineOption func(*ResultsPipeline)

// WithBufferSize sets the retry buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *ResultsPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithMaxAttempts sets how many times a buffered event is retried.
func WithMaxAttempts(n int) PipelineOption {
	return func(p *ResultsPipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithDedupeWindow sets how long a prediction id suppresses repeat events.
func WithDedupeWindow(d time.Duration) PipelineOption {
	return func(p *ResultsPipeline) {
		if d > 0 {
			p.dedupeWindow = d
		}
	}
}

// NewResultsPipeline creates a new pipeline.
func NewResultsPipeline(rec Recorder, metrics domrepo.Metrics, opts ...PipelineOption) *ResultsPipeline {
	p := &ResultsPipeline{
		rec:          rec,
		metrics:      metrics,
		maxAttempts:  5,
		bufSize:      1000,
		stopCh:       make(chan struct{}),
		dedupeWindow: time.Minute,
		seen:         make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan resultEvent, p.bufSize)
	return p
}

// Start launches background retrying of buffered events.
func (p *ResultsPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 250 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case ev := <-p.bufCh:
				if _, err := p.rec.Validate(ctx, ev.PredictionID, ev.ActualWinner); err != nil {
					// exponential backoff with cap
					if backoff < 10*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					ev.Attempts++
					if ev.Attempts >= p.maxAttempts {
						p.metrics.RecordError("pipeline_give_up")
						continue
					}
					select {
					case p.bufCh <- ev:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 250 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background retrying.
func (p *ResultsPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and records one match result. A result whose prediction
// row cannot be read yet is buffered for retry; the caller sees a nil result
// and no error so the consumer does not redeliver.
func (p *ResultsPipeline) Process(ctx context.Context, predictionID, actualWinner string) (*models.Result, error) {
	start := time.Now()
	if predictionID == "" || actualWinner == "" {
		p.metrics.RecordError("pipeline_validate")
		return nil, fmt.Errorf("result event missing prediction_id or actual_winner")
	}
	if p.duplicate(predictionID, start) {
		p.metrics.RecordError("pipeline_duplicate")
		return nil, nil
	}

	result, err := p.rec.Validate(ctx, predictionID, actualWinner)
	if err != nil {
		p.metrics.RecordError("pipeline_record")
		// Results can race the prediction write. Buffer non-blocking.
		select {
		case p.bufCh <- resultEvent{PredictionID: predictionID, ActualWinner: actualWinner}:
			return nil, nil
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return nil, fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return result, nil
}

func (p *ResultsPipeline) duplicate(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.seen[id]; ok && now.Sub(last) < p.dedupeWindow {
		return true
	}
	p.seen[id] = now
	// drop stale entries so the map does not grow unbounded
	if len(p.seen) > 10000 {
		for k, v := range p.seen {
			if now.Sub(v) >= p.dedupeWindow {
				delete(p.seen, k)
			}
		}
	}
	return false
}
