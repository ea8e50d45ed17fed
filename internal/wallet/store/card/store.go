package card

import (
	"context"
	"time"

	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

// Store is the ledger-facing persistence interface for loyalty cards.
// The CRUD layer owns the durable schema; the sync core only reads and
// updates the sync-relevant fields through this interface.
//
// Returned records are the caller's own copies. ApplyDelta is the one
// atomic read-modify-write: concurrent awards for the same card must
// serialize inside the store, never in the caller.
//
// Error Contract:
// - Find methods return sentinel.ErrNotFound when the card does not exist
// - Update and ApplyDelta return sentinel.ErrNotFound when the card was never saved
// - nil means success
type Store interface {
	Save(ctx context.Context, card *models.CardRecord) error
	FindByID(ctx context.Context, cardID id.CardID) (*models.CardRecord, error)
	ListByCustomer(ctx context.Context, customerID id.CustomerID) ([]*models.CardRecord, error)
	Update(ctx context.Context, card *models.CardRecord) error
	ApplyDelta(ctx context.Context, cardID id.CardID, delta int, now time.Time) (*models.CardRecord, error)
}
