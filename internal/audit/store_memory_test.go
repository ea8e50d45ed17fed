package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) TestAppendAndListBySubject() {
	ctx := context.Background()

	require.NoError(s.T(), s.store.Append(ctx, Entry{
		ID:      "entry-1",
		Action:  ActionDataExport,
		Subject: "subject-a",
	}))
	require.NoError(s.T(), s.store.Append(ctx, Entry{
		ID:      "entry-2",
		Action:  ActionDataDeletion,
		Subject: "subject-b",
	}))
	require.NoError(s.T(), s.store.Append(ctx, Entry{
		ID:      "entry-3",
		Action:  ActionConsentUpdated,
		Subject: "subject-a",
	}))

	entries, err := s.store.ListBySubject(ctx, "subject-a")
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 2)
	assert.Equal(s.T(), "entry-1", entries[0].ID)
	assert.Equal(s.T(), "entry-3", entries[1].ID)

	entries, err = s.store.ListBySubject(ctx, "subject-unknown")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), entries)
}

func (s *InMemoryStoreSuite) TestListAllPreservesOrder() {
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(s.T(), s.store.Append(ctx, Entry{ID: id, Timestamp: now}))
	}

	entries, err := s.store.ListAll(ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 3)
	assert.Equal(s.T(), "a", entries[0].ID)
	assert.Equal(s.T(), "c", entries[2].ID)
}

func (s *InMemoryStoreSuite) TestAppendedEntryIsImmutable() {
	ctx := context.Background()
	details := map[string]string{"fields": "phone,email"}

	require.NoError(s.T(), s.store.Append(ctx, Entry{ID: "entry-1", Details: details}))

	// Mutating the caller's map after the append must not rewrite history.
	details["fields"] = "everything"

	entries, err := s.store.ListAll(ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), "phone,email", entries[0].Details["fields"])
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}
