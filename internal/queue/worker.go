// Package queue delivers auto-check triggers to the decision engine.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"modcheck/backend/internal/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrEmpty is returned by a Source when no trigger arrived before its poll timeout.
var ErrEmpty = errors.New("no trigger available")

// Source yields triggers one at a time.
type Source interface {
	Next(ctx context.Context) (models.Trigger, error)
	Close() error
}

// Publisher enqueues triggers.
type Publisher interface {
	Publish(ctx context.Context, t models.Trigger) error
}

type Handler interface {
	HandleTrigger(ctx context.Context, t models.Trigger) error
}

// Worker runs triggers from a Source through a Handler with bounded parallelism.
type Worker struct {
	Source      Source
	Handler     Handler
	Concurrency int
	// Limiter paces runs, and with them calls to the scoring backend. Nil means unlimited.
	Limiter *rate.Limiter
	// RetryDelay is how long to back off after a source error.
	RetryDelay time.Duration
}

// NewWorker creates a worker. rps <= 0 disables rate limiting.
func NewWorker(src Source, h Handler, concurrency int, rps float64, burst int) *Worker {
	w := &Worker{
		Source:      src,
		Handler:     h,
		Concurrency: concurrency,
		RetryDelay:  time.Second,
	}
	if rps > 0 {
		w.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return w
}

// Run consumes triggers until ctx is cancelled, then waits for in-flight runs.
// Runs are independent: a failure or panic in one never stops the others.
func (w *Worker) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	limit := w.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	slog.Info("trigger worker started", "concurrency", limit)
	for ctx.Err() == nil {
		// pace before dequeuing: a trigger taken off the source is always handled
		if w.Limiter != nil {
			if err := w.Limiter.Wait(ctx); err != nil {
				break
			}
		}

		t, err := w.Source.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			slog.Error("failed to read trigger", "error", err)
			sleep(ctx, w.RetryDelay)
			continue
		}

		g.Go(func() error {
			w.handle(ctx, t)
			return nil
		})
	}

	g.Wait()
	slog.Info("trigger worker stopped")
	return nil
}

func (w *Worker) handle(ctx context.Context, t models.Trigger) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("auto-check run panicked", "report_id", t.ID, "panic", fmt.Sprint(r))
		}
	}()
	if err := w.Handler.HandleTrigger(ctx, t); err != nil {
		slog.Error("auto-check run failed", "model", t.Model, "report_id", t.ID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
