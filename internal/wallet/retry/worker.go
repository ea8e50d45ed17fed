package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"selo/internal/wallet/metrics"
	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
)

// Dispatcher re-invokes the synchronization path for a queued item.
// Implemented by the pass lifecycle service. It must return a domain
// error with CodeTransientProvider for failures worth retrying; any
// other error drops the item as permanently failed.
type Dispatcher interface {
	Dispatch(ctx context.Context, item Item) error
}

// SweepResult summarizes one sweep over the due items.
type SweepResult struct {
	Dispatched  int
	Succeeded   int
	Rescheduled int
	Exhausted   int
}

// Sweeper is the scheduled task that owns the queue's cadence. It wakes
// on a fixed interval, takes the due items, and dispatches them. Items
// already in flight are excluded by the queue, so a dispatch hung on the
// provider's network timeout never blocks or duplicates the next sweep.
type Sweeper struct {
	queue      *Queue
	dispatcher Dispatcher
	interval   time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithLogger overrides the logger used for sweep outcomes.
func WithLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

// NewSweeper constructs a Sweeper with required collaborators.
func NewSweeper(queue *Queue, dispatcher Dispatcher, opts ...SweeperOption) (*Sweeper, error) {
	if queue == nil || dispatcher == nil {
		return nil, fmt.Errorf("queue and dispatcher are required")
	}
	s := &Sweeper{
		queue:      queue,
		dispatcher: dispatcher,
		interval:   30 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start sweeps periodically until ctx is cancelled. Each sweep runs in
// its own goroutine; the queue's in-progress marking keeps overlapping
// sweeps from double-dispatching.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go func() {
				result := s.RunOnce(ctx)
				if result.Dispatched > 0 {
					s.logger.InfoContext(ctx, "retry sweep finished",
						"dispatched", result.Dispatched,
						"succeeded", result.Succeeded,
						"rescheduled", result.Rescheduled,
						"exhausted", result.Exhausted,
					)
				}
			}()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce dispatches every currently-due item and applies the state
// machine: success removes the item, a transient failure reschedules it
// until the budget is spent, anything else drops it as permanent.
func (s *Sweeper) RunOnce(ctx context.Context) SweepResult {
	var result SweepResult
	for _, item := range s.queue.Due(time.Now()) {
		result.Dispatched++
		err := s.dispatcher.Dispatch(ctx, item)
		switch {
		case err == nil:
			if s.queue.Complete(item.ID, time.Now()) {
				// A delta landed while this dispatch was in flight; the
				// item stays queued for the next sweep.
				result.Rescheduled++
			} else {
				result.Succeeded++
			}
		case dErrors.HasCode(err, dErrors.CodeTransientProvider):
			exhausted, attempts := s.queue.Fail(item.ID, time.Now())
			if exhausted {
				result.Exhausted++
				s.logPermanentFailure(ctx, item, attempts, err)
			} else {
				result.Rescheduled++
			}
		default:
			// Will never succeed on retry; burning more attempts only
			// delays error visibility.
			s.queue.Drop(item.ID)
			result.Exhausted++
			s.logPermanentFailure(ctx, item, item.Attempts+1, err)
		}
	}
	if s.metrics != nil {
		if result.Exhausted > 0 {
			s.metrics.PermanentFailures.Add(float64(result.Exhausted))
		}
		s.metrics.SetQueueDepth(s.queue.Len())
	}
	return result
}

// ManualRetry dispatches a single item immediately, bypassing its
// schedule. Unlike the sweep, failures are surfaced to the caller since
// this is an operator-triggered action.
func (s *Sweeper) ManualRetry(ctx context.Context, itemID id.ItemID) error {
	item, err := s.queue.Take(itemID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "retry item unavailable")
	}

	if err := s.dispatcher.Dispatch(ctx, item); err != nil {
		if dErrors.HasCode(err, dErrors.CodeTransientProvider) {
			exhausted, attempts := s.queue.Fail(item.ID, time.Now())
			if exhausted {
				s.recordPermanentFailure()
				s.logPermanentFailure(ctx, item, attempts, err)
				return dErrors.Wrap(err, dErrors.CodePermanentFailure, "retry budget exhausted")
			}
			return err
		}
		s.queue.Drop(item.ID)
		s.recordPermanentFailure()
		s.logPermanentFailure(ctx, item, item.Attempts+1, err)
		return err
	}

	s.queue.Complete(item.ID, time.Now())
	return nil
}

func (s *Sweeper) recordPermanentFailure() {
	if s.metrics != nil {
		s.metrics.PermanentFailures.Inc()
	}
}

// logPermanentFailure records a dropped item with full context. There is
// no dead-letter store in this core; the log line is the only trace.
func (s *Sweeper) logPermanentFailure(ctx context.Context, item Item, attempts int, err error) {
	s.logger.ErrorContext(ctx, "wallet sync permanently failed",
		"item_id", item.ID.String(),
		"card_id", item.CardID.String(),
		"delta", item.Delta,
		"attempts", attempts,
		"enqueued_at", item.EnqueuedAt,
		"error", err,
	)
}
