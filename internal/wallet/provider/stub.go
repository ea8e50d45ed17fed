package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"selo/internal/sentinel"
	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

// Stub is an in-memory provider used in tests and local runs. It mirrors
// the real provider's upsert-by-external-id behavior and can inject
// failures to exercise the retry path.
type Stub struct {
	mu         sync.Mutex
	passes     map[id.PassID]*Pass
	byExternal map[string]id.PassID
	updates    map[id.PassID]PassUpdate

	failures int
	failWith error

	createCalls int
	updateCalls int
	deleteCalls int
}

// NewStub constructs an empty stub provider.
func NewStub() *Stub {
	return &Stub{
		passes:     make(map[id.PassID]*Pass),
		byExternal: make(map[string]id.PassID),
		updates:    make(map[id.PassID]PassUpdate),
	}
}

// FailNext makes the next n calls fail with err before any state change.
func (s *Stub) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.failWith = err
}

func (s *Stub) takeFailure() error {
	if s.failures > 0 {
		s.failures--
		return s.failWith
	}
	return nil
}

// CreatePass upserts a pass keyed by the envelope's external ID.
func (s *Stub) CreatePass(_ context.Context, envelope models.PrivacyEnvelope, content PassContent) (*Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	if envelope.ExternalID == "" {
		return nil, fmt.Errorf("%w: external ID required", sentinel.ErrInvalidInput)
	}

	if existing, ok := s.byExternal[envelope.ExternalID]; ok {
		pass := *s.passes[existing]
		return &pass, nil
	}

	passID := id.PassID("pass_" + uuid.NewString())
	pass := &Pass{
		ID:        passID,
		AppleURL:  "https://wallet.example/apple/" + string(passID),
		GoogleURL: "https://wallet.example/google/" + string(passID),
		QRCode:    "qr:" + envelope.ExternalID,
	}
	s.passes[passID] = pass
	s.byExternal[envelope.ExternalID] = passID
	s.updates[passID] = PassUpdate{Stamps: content.Stamps, StampsRequired: content.StampsRequired}

	out := *pass
	return &out, nil
}

// UpdatePass records the latest balance pushed for a pass.
func (s *Stub) UpdatePass(_ context.Context, passID id.PassID, update PassUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, ok := s.passes[passID]; !ok {
		return fmt.Errorf("%w: pass %s", sentinel.ErrNotFound, passID)
	}
	s.updates[passID] = update
	return nil
}

// DeletePass removes a pass.
func (s *Stub) DeletePass(_ context.Context, passID id.PassID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	if err := s.takeFailure(); err != nil {
		return err
	}
	pass, ok := s.passes[passID]
	if !ok {
		return fmt.Errorf("%w: pass %s", sentinel.ErrNotFound, passID)
	}
	delete(s.passes, passID)
	delete(s.updates, passID)
	for ext, pid := range s.byExternal {
		if pid == pass.ID {
			delete(s.byExternal, ext)
		}
	}
	return nil
}

// LastUpdate returns the most recent update pushed for a pass.
func (s *Stub) LastUpdate(passID id.PassID) (PassUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.updates[passID]
	return u, ok
}

// Calls reports how many create/update/delete calls the stub has seen.
func (s *Stub) Calls() (create, update, del int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCalls, s.updateCalls, s.deleteCalls
}

var _ Client = (*Stub)(nil)
