// Package retry holds pending wallet synchronizations that failed
// transiently and re-dispatches them with exponential backoff.
//
// The queue is in-memory only: a process crash drops pending retries.
// The internal ledger stays authoritative and the next stamp award
// pushes the full balance again, so a lost retry heals on the
// customer's next visit.
package retry

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	id "selo/pkg/domain"
)

// Item is one pending, not-yet-confirmed external sync.
type Item struct {
	ID            id.ItemID
	CardID        id.CardID
	Delta         int
	Attempts      int
	EnqueuedAt    time.Time
	LastAttemptAt *time.Time
	NextRetryAt   time.Time
}

// Stats is a read-only snapshot of queue state.
type Stats struct {
	Total             int           // items enqueued over the process lifetime
	Pending           int           // items currently waiting or in flight
	PermanentlyFailed int           // items dropped after exhausting attempts
	OldestAge         time.Duration // age of the oldest pending item, 0 when empty
}

// Queue is an explicitly-owned retry queue. Construct it once and hand
// it to the sweeper and the lifecycle service; there is no package-level
// state.
type Queue struct {
	mu          sync.Mutex
	items       map[id.ItemID]*Item
	byCard      map[id.CardID]id.ItemID
	inProgress  map[id.ItemID]bool
	dirty       map[id.ItemID]bool
	base        time.Duration
	cap         time.Duration
	maxAttempts int

	enqueuedTotal     int
	permanentFailures int
}

// Option configures a Queue.
type Option func(*Queue)

// WithBackoff overrides the backoff base and cap when positive.
func WithBackoff(base, cap time.Duration) Option {
	return func(q *Queue) {
		if base > 0 {
			q.base = base
		}
		if cap > 0 {
			q.cap = cap
		}
	}
}

// WithMaxAttempts overrides the retry budget when positive.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// NewQueue constructs an empty retry queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		items:       make(map[id.ItemID]*Item),
		byCard:      make(map[id.CardID]id.ItemID),
		inProgress:  make(map[id.ItemID]bool),
		dirty:       make(map[id.ItemID]bool),
		base:        time.Second,
		cap:         30 * time.Second,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

// Backoff returns the jittered delay before attempt n:
// min(base*2^n, cap) adjusted by ±25% so many items failing together
// do not retry together.
func (q *Queue) Backoff(n int) time.Duration {
	delay := q.base << uint(n)
	if delay > q.cap || delay <= 0 {
		delay = q.cap
	}
	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(delay) * jitter)
}

// Enqueue registers a failed sync for the card. A pending item for the
// same card is coalesced (deltas summed) so each card has at most one
// queued mirror push; the dispatch path re-reads the ledger balance, so
// coalescing never loses stamps.
func (q *Queue) Enqueue(cardID id.CardID, delta int, now time.Time) *Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existingID, ok := q.byCard[cardID]; ok {
		existing := q.items[existingID]
		existing.Delta += delta
		if q.inProgress[existingID] {
			// The in-flight dispatch read the balance before this delta
			// committed; its success must not retire the item.
			q.dirty[existingID] = true
		}
		return existing
	}

	item := &Item{
		ID:          id.NewItemID(),
		CardID:      cardID,
		Delta:       delta,
		EnqueuedAt:  now,
		NextRetryAt: now.Add(q.Backoff(0)),
	}
	q.items[item.ID] = item
	q.byCard[cardID] = item.ID
	q.enqueuedTotal++
	return item
}

// Due returns a snapshot of all items whose retry time has passed and
// marks them in progress so an overlapping sweep (or a dispatch still in
// flight from the previous one) cannot pick them up again.
func (q *Queue) Due(now time.Time) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []Item
	for itemID, item := range q.items {
		if q.inProgress[itemID] {
			continue
		}
		if item.NextRetryAt.After(now) {
			continue
		}
		q.inProgress[itemID] = true
		due = append(due, *item)
	}
	return due
}

// Take marks a single item in progress for a manual, out-of-schedule
// dispatch. It fails when the item is unknown or already in flight.
func (q *Queue) Take(itemID id.ItemID) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[itemID]
	if !ok {
		return Item{}, fmt.Errorf("retry item %s: not found", itemID)
	}
	if q.inProgress[itemID] {
		return Item{}, fmt.Errorf("retry item %s: dispatch already in flight", itemID)
	}
	q.inProgress[itemID] = true
	return *item, nil
}

// Complete retires a successfully synced item. When a new delta was
// coalesced in while the dispatch was in flight, the pushed balance
// predates that delta, so the item is rescheduled instead of removed
// and true is returned.
func (q *Queue) Complete(itemID id.ItemID, now time.Time) (requeued bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[itemID]
	if !ok {
		return false
	}
	if q.dirty[itemID] {
		delete(q.dirty, itemID)
		delete(q.inProgress, itemID)
		item.NextRetryAt = now.Add(q.Backoff(item.Attempts))
		return true
	}
	q.remove(itemID)
	return false
}

// Fail records a failed attempt. When the retry budget is exhausted the
// item is removed and true is returned; otherwise the item is
// rescheduled with backoff and stays queued.
func (q *Queue) Fail(itemID id.ItemID, now time.Time) (exhausted bool, attempts int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[itemID]
	if !ok {
		return false, 0
	}
	item.Attempts++
	item.LastAttemptAt = &now
	if item.Attempts >= q.maxAttempts {
		q.remove(itemID)
		q.permanentFailures++
		return true, item.Attempts
	}
	item.NextRetryAt = now.Add(q.Backoff(item.Attempts))
	delete(q.inProgress, itemID)
	// The rescheduled dispatch re-reads the balance, which covers any
	// delta coalesced in while this attempt was in flight.
	delete(q.dirty, itemID)
	return false, item.Attempts
}

// Drop removes an item that can never succeed (validation failure on
// retry) and counts it as a permanent failure.
func (q *Queue) Drop(itemID id.ItemID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[itemID]; !ok {
		return
	}
	q.remove(itemID)
	q.permanentFailures++
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns a read-only snapshot for operators and metrics.
func (q *Queue) Stats(now time.Time) Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{
		Total:             q.enqueuedTotal,
		Pending:           len(q.items),
		PermanentlyFailed: q.permanentFailures,
	}
	for _, item := range q.items {
		if age := now.Sub(item.EnqueuedAt); age > stats.OldestAge {
			stats.OldestAge = age
		}
	}
	return stats
}

// remove must be called with the lock held.
func (q *Queue) remove(itemID id.ItemID) {
	item, ok := q.items[itemID]
	if !ok {
		return
	}
	delete(q.items, itemID)
	delete(q.inProgress, itemID)
	delete(q.dirty, itemID)
	delete(q.byCard, item.CardID)
}
