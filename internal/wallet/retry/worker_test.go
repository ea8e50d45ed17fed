package retry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeDispatcher) Dispatch(context.Context, Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// immediateQueue returns a queue whose backoff is negligible so items
// are due as soon as they are enqueued or rescheduled.
func immediateQueue(maxAttempts int) *Queue {
	return NewQueue(WithBackoff(time.Nanosecond, time.Nanosecond), WithMaxAttempts(maxAttempts))
}

func TestSweeperRequiresCollaborators(t *testing.T) {
	_, err := NewSweeper(nil, &fakeDispatcher{})
	assert.Error(t, err)
	_, err = NewSweeper(NewQueue(), nil)
	assert.Error(t, err)
}

func TestRunOnceSuccessRemovesItem(t *testing.T) {
	queue := immediateQueue(3)
	dispatcher := &fakeDispatcher{}
	sweeper, err := NewSweeper(queue, dispatcher, WithLogger(discardLogger()))
	require.NoError(t, err)

	queue.Enqueue(id.NewCardID(), 1, time.Now().Add(-time.Second))

	result := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepResult{Dispatched: 1, Succeeded: 1}, result)
	assert.Equal(t, 0, queue.Len())
	assert.Equal(t, 1, dispatcher.callCount())
}

func TestRunOnceTransientFailureReschedules(t *testing.T) {
	queue := immediateQueue(3)
	dispatcher := &fakeDispatcher{err: dErrors.New(dErrors.CodeTransientProvider, "provider unavailable")}
	sweeper, err := NewSweeper(queue, dispatcher, WithLogger(discardLogger()))
	require.NoError(t, err)

	queue.Enqueue(id.NewCardID(), 1, time.Now().Add(-time.Second))

	result := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepResult{Dispatched: 1, Rescheduled: 1}, result)
	assert.Equal(t, 1, queue.Len(), "item stays queued for the next attempt")
}

func TestThreeTransientFailuresExhaustBudget(t *testing.T) {
	queue := immediateQueue(3)
	dispatcher := &fakeDispatcher{err: dErrors.New(dErrors.CodeTransientProvider, "provider unavailable")}
	sweeper, err := NewSweeper(queue, dispatcher, WithLogger(discardLogger()))
	require.NoError(t, err)

	queue.Enqueue(id.NewCardID(), 1, time.Now().Add(-time.Second))

	first := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepResult{Dispatched: 1, Rescheduled: 1}, first)

	second := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepResult{Dispatched: 1, Rescheduled: 1}, second)

	third := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepResult{Dispatched: 1, Exhausted: 1}, third)
	assert.Equal(t, 0, queue.Len())

	// No fourth attempt.
	fourth := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepResult{}, fourth)
	assert.Equal(t, 3, dispatcher.callCount())

	stats := queue.Stats(time.Now())
	assert.Equal(t, 1, stats.PermanentlyFailed)
}

func TestRunOnceDropsNonRetryableError(t *testing.T) {
	queue := immediateQueue(3)
	dispatcher := &fakeDispatcher{err: dErrors.New(dErrors.CodeValidation, "malformed pass update")}
	sweeper, err := NewSweeper(queue, dispatcher, WithLogger(discardLogger()))
	require.NoError(t, err)

	queue.Enqueue(id.NewCardID(), 1, time.Now().Add(-time.Second))

	result := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepResult{Dispatched: 1, Exhausted: 1}, result)
	assert.Equal(t, 0, queue.Len(), "retrying a structurally invalid request wastes attempts")
}

func TestManualRetry(t *testing.T) {
	// Long backoff: the item is not due, manual retry bypasses the schedule.
	queue := NewQueue(WithBackoff(time.Hour, time.Hour))
	dispatcher := &fakeDispatcher{}
	sweeper, err := NewSweeper(queue, dispatcher, WithLogger(discardLogger()))
	require.NoError(t, err)

	item := queue.Enqueue(id.NewCardID(), 1, time.Now())

	require.NoError(t, sweeper.ManualRetry(context.Background(), item.ID))
	assert.Equal(t, 0, queue.Len())
	assert.Equal(t, 1, dispatcher.callCount())

	err = sweeper.ManualRetry(context.Background(), id.NewItemID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestManualRetryTransientFailureKeepsItem(t *testing.T) {
	queue := NewQueue(WithBackoff(time.Hour, time.Hour), WithMaxAttempts(3))
	dispatcher := &fakeDispatcher{err: dErrors.New(dErrors.CodeTransientProvider, "provider unavailable")}
	sweeper, err := NewSweeper(queue, dispatcher, WithLogger(discardLogger()))
	require.NoError(t, err)

	item := queue.Enqueue(id.NewCardID(), 1, time.Now())

	err = sweeper.ManualRetry(context.Background(), item.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransientProvider))
	assert.Equal(t, 1, queue.Len(), "transient manual failure keeps the item queued")
}

func TestStartSweepsUntilCancelled(t *testing.T) {
	queue := immediateQueue(3)
	dispatcher := &fakeDispatcher{}
	sweeper, err := NewSweeper(queue, dispatcher,
		WithLogger(discardLogger()),
		WithInterval(5*time.Millisecond),
	)
	require.NoError(t, err)

	queue.Enqueue(id.NewCardID(), 1, time.Now().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Start(ctx) }()

	assert.Eventually(t, func() bool { return queue.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
