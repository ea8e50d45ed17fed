package service

import (
	"context"
	"time"

	"selo/internal/wallet/models"
	"selo/internal/wallet/retry"
	id "selo/pkg/domain"
)

// CardStore defines the ledger persistence the lifecycle manager needs.
// ApplyDelta must apply the stamp delta atomically; the store, not the
// caller, serializes concurrent awards for the same card.
// Error Contract: all methods return sentinel.ErrNotFound when the card
// does not exist.
type CardStore interface {
	FindByID(ctx context.Context, cardID id.CardID) (*models.CardRecord, error)
	Update(ctx context.Context, card *models.CardRecord) error
	ApplyDelta(ctx context.Context, cardID id.CardID, delta int, now time.Time) (*models.CardRecord, error)
}

// CustomerStore provides the raw customer record for envelope building.
// Error Contract: FindByID returns sentinel.ErrNotFound when the
// customer does not exist.
type CustomerStore interface {
	FindByID(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
}

// Enqueuer is the retry queue surface the lifecycle manager uses.
// Satisfied by *retry.Queue.
type Enqueuer interface {
	Enqueue(cardID id.CardID, delta int, now time.Time) *retry.Item
	Len() int
}
