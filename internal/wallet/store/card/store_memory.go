package card

import (
	"context"
	"fmt"
	"sync"
	"time"

	"selo/internal/sentinel"
	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

// InMemoryStore stores card records in memory for tests and local runs.
// Records are copied on every read and write so callers never share a
// struct with the store or with each other.
type InMemoryStore struct {
	mu    sync.RWMutex
	cards map[id.CardID]*models.CardRecord
}

// NewInMemory constructs an empty in-memory card store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{cards: make(map[id.CardID]*models.CardRecord)}
}

func (s *InMemoryStore) Save(_ context.Context, card *models.CardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = clone(card)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, cardID id.CardID) (*models.CardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if card, ok := s.cards[cardID]; ok {
		return clone(card), nil
	}
	return nil, fmt.Errorf("card not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListByCustomer(_ context.Context, customerID id.CustomerID) ([]*models.CardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var cards []*models.CardRecord
	for _, card := range s.cards {
		if card.CustomerID == customerID {
			cards = append(cards, clone(card))
		}
	}
	return cards, nil
}

func (s *InMemoryStore) Update(_ context.Context, card *models.CardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.ID]; !ok {
		return fmt.Errorf("card not found: %w", sentinel.ErrNotFound)
	}
	s.cards[card.ID] = clone(card)
	return nil
}

// ApplyDelta applies a stamp delta to the stored record under the write
// lock, so concurrent awards for the same card serialize and none is
// lost. Returns a copy of the updated record.
func (s *InMemoryStore) ApplyDelta(_ context.Context, cardID id.CardID, delta int, now time.Time) (*models.CardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[cardID]
	if !ok {
		return nil, fmt.Errorf("card not found: %w", sentinel.ErrNotFound)
	}
	card.ApplyDelta(delta, now)
	return clone(card), nil
}

// clone copies a record including its pointer fields so the caller's
// and the store's views cannot alias.
func clone(card *models.CardRecord) *models.CardRecord {
	out := *card
	if card.ExternalPassID != nil {
		passID := *card.ExternalPassID
		out.ExternalPassID = &passID
	}
	if card.WalletURLApple != nil {
		apple := *card.WalletURLApple
		out.WalletURLApple = &apple
	}
	if card.WalletURLGoogle != nil {
		google := *card.WalletURLGoogle
		out.WalletURLGoogle = &google
	}
	if card.LastStampAt != nil {
		last := *card.LastStampAt
		out.LastStampAt = &last
	}
	return &out
}

var _ Store = (*InMemoryStore)(nil)
