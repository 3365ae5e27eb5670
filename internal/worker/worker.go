// Package worker runs the consume loop: fetch a materialization unit, run
// every configured index kind through the engine, record outcomes, commit.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fieldsight/spectral-etl/internal/adapter/kafka"
	"github.com/fieldsight/spectral-etl/internal/domain"
	"github.com/fieldsight/spectral-etl/internal/observability"
)

// UnitSource delivers materialization units and commits them once handled.
type UnitSource interface {
	Fetch(ctx context.Context) (kafka.Unit, error)
	Commit(ctx context.Context, unit kafka.Unit) error
}

// OutcomeSink records a terminal outcome.
type OutcomeSink interface {
	Write(ctx context.Context, outcome domain.Outcome) error
}

// Materializer runs one unit for one index kind to a terminal outcome.
type Materializer interface {
	Materialize(ctx context.Context, key domain.PartitionKey, kind domain.IndexKind) (domain.Outcome, error)
}

// Worker drives the unit consume loop.
type Worker struct {
	source  UnitSource
	sink    OutcomeSink
	engine  Materializer
	kinds   []domain.IndexKind
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Worker processing the given index kinds per unit.
func New(source UnitSource, sink OutcomeSink, eng Materializer, kinds []domain.IndexKind, logger *slog.Logger, metrics *observability.Metrics) *Worker {
	return &Worker{
		source:  source,
		sink:    sink,
		engine:  eng,
		kinds:   kinds,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the worker has handled at least one unit.
func (w *Worker) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("worker has not processed any units yet")
	}
	return nil
}

// Run executes the consume loop until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "indices", w.kinds)
	w.metrics.WorkerRunning.Set(1)
	defer w.metrics.WorkerRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !w.processUnit(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processUnit handles one fetched unit end to end. Returns false if the
// worker should stop.
func (w *Worker) processUnit(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	unit, err := w.source.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Error("fetch unit failed", "error", err)
		return w.backoffOrStop(ctx, backoff, maxBackoff)
	}
	*backoff = 200 * time.Millisecond

	for _, kind := range w.kinds {
		outcome, err := w.engine.Materialize(ctx, unit.Key, kind)
		if err != nil {
			// A configuration fault: retrying this unit cannot help until
			// the field definitions change, so record it and move on.
			w.logger.Error("unit unprocessable", "key", unit.Key.String(), "index", string(kind), "error", err)
			continue
		}
		if err := w.sink.Write(ctx, outcome); err != nil {
			if ctx.Err() != nil {
				return false
			}
			// Leave the unit uncommitted so it is redelivered; idempotent
			// publication makes the replay harmless.
			w.logger.Error("write outcome failed", "key", unit.Key.String(), "error", err)
			return w.backoffOrStop(ctx, backoff, maxBackoff)
		}
	}

	if err := w.source.Commit(ctx, unit); err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Error("commit unit failed", "key", unit.Key.String(), "error", err)
		return w.backoffOrStop(ctx, backoff, maxBackoff)
	}

	w.ready.Store(true)
	return true
}

// backoffOrStop sleeps for the current backoff, doubling it up to the cap.
// Returns false if the context was cancelled while waiting.
func (w *Worker) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
	}
	*backoff *= 2
	if *backoff > maxBackoff {
		*backoff = maxBackoff
	}
	return true
}
