package customer

import (
	"context"

	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

// Store is the persistence interface for customer records. The sync core
// reads customers to build envelopes and writes back only when a privacy
// action (anonymization, consent change) mutates them.
//
// Error Contract:
// - FindByID returns sentinel.ErrNotFound when the customer does not exist
// - Update returns sentinel.ErrNotFound when the customer was never saved
type Store interface {
	Save(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
}
