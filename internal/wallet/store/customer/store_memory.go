package customer

import (
	"context"
	"fmt"
	"sync"

	"selo/internal/sentinel"
	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

// InMemoryStore stores customers in memory for tests and local runs.
// Records are copied on every read and write so callers never share a
// struct with the store or with each other.
type InMemoryStore struct {
	mu        sync.RWMutex
	customers map[id.CustomerID]*models.Customer
}

// NewInMemory constructs an empty in-memory customer store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{customers: make(map[id.CustomerID]*models.Customer)}
}

func (s *InMemoryStore) Save(_ context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[customer.ID] = clone(customer)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, customerID id.CustomerID) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if customer, ok := s.customers[customerID]; ok {
		return clone(customer), nil
	}
	return nil, fmt.Errorf("customer not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Update(_ context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[customer.ID]; !ok {
		return fmt.Errorf("customer not found: %w", sentinel.ErrNotFound)
	}
	s.customers[customer.ID] = clone(customer)
	return nil
}

// clone copies a customer including its pointer fields so the caller's
// and the store's views cannot alias.
func clone(customer *models.Customer) *models.Customer {
	out := *customer
	if customer.ConsentGrantedAt != nil {
		granted := *customer.ConsentGrantedAt
		out.ConsentGrantedAt = &granted
	}
	if customer.ConsentRevokedAt != nil {
		revoked := *customer.ConsentRevokedAt
		out.ConsentRevokedAt = &revoked
	}
	if customer.LastActivityAt != nil {
		last := *customer.LastActivityAt
		out.LastActivityAt = &last
	}
	return &out
}

var _ Store = (*InMemoryStore)(nil)
