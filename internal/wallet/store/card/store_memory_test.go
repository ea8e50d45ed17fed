package card

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"selo/internal/sentinel"
	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) newCard(customerID id.CustomerID) *models.CardRecord {
	card, err := models.NewCardRecord(id.NewCardID(), customerID, id.NewProgramID(), 10, "qr", time.Now())
	require.NoError(s.T(), err)
	return card
}

func (s *InMemoryStoreSuite) TestSaveAndFind() {
	card := s.newCard(id.NewCustomerID())
	require.NoError(s.T(), s.store.Save(context.Background(), card))

	found, err := s.store.FindByID(context.Background(), card.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), card, found)
}

func (s *InMemoryStoreSuite) TestFindNotFound() {
	_, err := s.store.FindByID(context.Background(), id.NewCardID())
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListByCustomer() {
	customerID := id.NewCustomerID()
	first := s.newCard(customerID)
	second := s.newCard(customerID)
	other := s.newCard(id.NewCustomerID())
	for _, c := range []*models.CardRecord{first, second, other} {
		require.NoError(s.T(), s.store.Save(context.Background(), c))
	}

	cards, err := s.store.ListByCustomer(context.Background(), customerID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), cards, 2)

	cards, err = s.store.ListByCustomer(context.Background(), id.NewCustomerID())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), cards)
}

func (s *InMemoryStoreSuite) TestUpdate() {
	card := s.newCard(id.NewCustomerID())
	require.NoError(s.T(), s.store.Save(context.Background(), card))

	card.ApplyDelta(3, time.Now())
	require.NoError(s.T(), s.store.Update(context.Background(), card))

	found, err := s.store.FindByID(context.Background(), card.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, found.CurrentStamps)

	unsaved := s.newCard(id.NewCustomerID())
	assert.ErrorIs(s.T(), s.store.Update(context.Background(), unsaved), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestFindReturnsIndependentCopy() {
	card := s.newCard(id.NewCustomerID())
	passID := id.PassID("pass_abc")
	card.ExternalPassID = &passID
	require.NoError(s.T(), s.store.Save(context.Background(), card))

	found, err := s.store.FindByID(context.Background(), card.ID)
	require.NoError(s.T(), err)

	// Mutating the returned record must not reach the store.
	found.CurrentStamps = 99
	*found.ExternalPassID = "pass_mutated"

	again, err := s.store.FindByID(context.Background(), card.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, again.CurrentStamps)
	assert.Equal(s.T(), id.PassID("pass_abc"), *again.ExternalPassID)
}

func (s *InMemoryStoreSuite) TestApplyDelta() {
	card := s.newCard(id.NewCustomerID())
	require.NoError(s.T(), s.store.Save(context.Background(), card))

	updated, err := s.store.ApplyDelta(context.Background(), card.ID, 10, time.Now())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 10, updated.CurrentStamps)
	assert.Equal(s.T(), models.StatusCompleted, updated.Status)

	found, err := s.store.FindByID(context.Background(), card.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 10, found.CurrentStamps)

	_, err = s.store.ApplyDelta(context.Background(), id.NewCardID(), 1, time.Now())
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestApplyDeltaConcurrentAwards() {
	card, err := models.NewCardRecord(id.NewCardID(), id.NewCustomerID(), id.NewProgramID(), 1000, "qr", time.Now())
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.Save(context.Background(), card))

	const awards = 100
	var wg sync.WaitGroup
	for i := 0; i < awards; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.ApplyDelta(context.Background(), card.ID, 1, time.Now())
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	found, err := s.store.FindByID(context.Background(), card.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), awards, found.CurrentStamps, "no award may be lost to a concurrent one")
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}
