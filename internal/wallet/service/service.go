// Package service implements the pass lifecycle manager: provisioning,
// stamp-delta mirroring, and revocation of externally-hosted wallet
// passes, with the internal stamp ledger as the source of truth.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"selo/internal/sentinel"
	"selo/internal/wallet/metrics"
	"selo/internal/wallet/models"
	"selo/internal/wallet/privacy"
	"selo/internal/wallet/provider"
	"selo/internal/wallet/retry"
	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
	"selo/pkg/platform/circuit"
)

// Service orchestrates wallet pass synchronization. The stamp-award path
// is insulated from provider failures: a transient dispatch failure is
// handed to the retry queue and the caller sees success, so the
// user-visible reward mechanic never waits on the external system.
type Service struct {
	cards       CardStore
	customers   CustomerStore
	provider    provider.Client
	pseudo      *privacy.Pseudonymizer
	queue       Enqueuer
	breaker     *circuit.Breaker
	metrics     *metrics.Metrics
	logger      *slog.Logger
	programName string

	provisioning singleflight.Group
}

// Option configures Service.
type Option func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProgramName sets the program name rendered on new passes.
func WithProgramName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.programName = name
		}
	}
}

// WithBreakerThreshold overrides the consecutive-failure count that
// trips the provider circuit breaker.
func WithBreakerThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.breaker = circuit.New(circuit.WithFailureThreshold(n))
		}
	}
}

// New constructs the lifecycle service with required collaborators.
func New(cards CardStore, customers CustomerStore, client provider.Client, pseudo *privacy.Pseudonymizer, queue Enqueuer, opts ...Option) (*Service, error) {
	if cards == nil || customers == nil || client == nil || pseudo == nil || queue == nil {
		return nil, fmt.Errorf("cards, customers, client, pseudo, and queue are required")
	}
	s := &Service{
		cards:       cards,
		customers:   customers,
		provider:    client,
		pseudo:      pseudo,
		queue:       queue,
		breaker:     circuit.New(),
		logger:      slog.Default(),
		programName: "Loyalty Card",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ProvisionPass creates a wallet pass for an enrolled card. It is
// idempotent: once the card carries an external pass ID, repeated calls
// return the stored identifiers without touching the provider.
// Missing consent blocks the call entirely; no pass is ever created
// without it.
func (s *Service) ProvisionPass(ctx context.Context, customerID id.CustomerID, cardID id.CardID) (*models.CardRecord, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, translateStoreError(err, "customer")
	}
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return nil, translateStoreError(err, "card")
	}
	if card.CustomerID != customerID {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "card does not belong to customer")
	}

	if !customer.HasConsent() {
		if s.metrics != nil {
			s.metrics.ConsentBlocks.Inc()
		}
		return nil, dErrors.New(dErrors.CodeMissingConsent, "customer has not consented to wallet provisioning")
	}

	if card.Provisioned() {
		return card, nil
	}

	// Concurrent enrollments for the same card collapse into one
	// provider call; the provider also upserts on external_id, so even a
	// race across processes cannot duplicate passes.
	result, err, _ := s.provisioning.Do(card.ID.String(), func() (any, error) {
		return s.provision(ctx, customer, card.ID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.CardRecord), nil
}

func (s *Service) provision(ctx context.Context, customer *models.Customer, cardID id.CardID) (*models.CardRecord, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return nil, translateStoreError(err, "card")
	}
	if card.Provisioned() {
		return card, nil
	}

	envelope := s.pseudo.Envelope(customer)
	content := provider.PassContent{
		ProgramName:    s.programName,
		Stamps:         card.CurrentStamps,
		StampsRequired: card.StampsRequired,
	}

	start := time.Now()
	pass, err := s.provider.CreatePass(ctx, envelope, content)
	s.observeDispatch(start, err)
	if err != nil {
		return nil, translateProviderError(err)
	}

	passID := pass.ID
	card.ExternalPassID = &passID
	card.WalletURLApple = &pass.AppleURL
	card.WalletURLGoogle = &pass.GoogleURL
	if pass.QRCode != "" {
		card.QRCode = pass.QRCode
	}
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, translateStoreError(err, "card")
	}

	if s.metrics != nil {
		s.metrics.PassesProvisioned.Inc()
	}
	s.logger.InfoContext(ctx, "wallet pass provisioned",
		"card_id", card.ID.String(),
		"external_id", envelope.ExternalID,
	)
	return card, nil
}

// ApplyStampDelta commits delta to the internal ledger, then mirrors the
// new balance to the wallet pass. The ledger write always happens first
// and always sticks; the mirror is best effort. A transient provider
// failure is enqueued for retry and the caller still gets the updated
// card with a nil error.
func (s *Service) ApplyStampDelta(ctx context.Context, cardID id.CardID, delta int) (*models.CardRecord, error) {
	if delta == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "stamp delta cannot be zero")
	}

	// The store applies the delta under its own lock; concurrent awards
	// for the same card serialize there and none is lost.
	card, err := s.cards.ApplyDelta(ctx, cardID, delta, time.Now())
	if err != nil {
		return nil, translateStoreError(err, "card")
	}

	if !card.Provisioned() {
		// Nothing to mirror until the pass is provisioned.
		return card, nil
	}

	if s.breaker.IsOpen() {
		// Provider is known down; skip the doomed network call and go
		// straight to the queue.
		s.enqueueRetry(ctx, card.ID, delta, errors.New("provider circuit open"))
		return card, nil
	}

	if err := s.pushBalance(ctx, card); err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			s.enqueueRetry(ctx, card.ID, delta, err)
			return card, nil
		}
		// Validation-style failures will not succeed on retry; surface
		// them. The ledger delta is already committed either way.
		return card, translateProviderError(err)
	}

	if s.metrics != nil {
		s.metrics.StampUpdatesPushed.Inc()
	}
	return card, nil
}

// RevokePass deletes the pass at the provider. Used only by the LGPD
// deletion flow; failures are surfaced, not retried, since deletion is
// compliance-critical and operator-triggered. A pass already gone at the
// provider counts as revoked.
func (s *Service) RevokePass(ctx context.Context, passID id.PassID) error {
	start := time.Now()
	err := s.provider.DeletePass(ctx, passID)
	s.observeDispatch(start, err)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "pass already absent at provider", "pass_id", string(passID))
			return nil
		}
		return translateProviderError(err)
	}
	if s.metrics != nil {
		s.metrics.PassesRevoked.Inc()
	}
	return nil
}

// Dispatch is the retry queue's entry point. It re-reads the ledger and
// pushes the current balance, so a coalesced or stale delta can never
// undercount stamps. Unlike the inline path it always makes the real
// call: a retry that reaches the provider is what closes the circuit
// breaker again.
func (s *Service) Dispatch(ctx context.Context, item retry.Item) error {
	card, err := s.cards.FindByID(ctx, item.CardID)
	if err != nil {
		// Card gone (deleted or anonymized); drop the item.
		return translateStoreError(err, "card")
	}
	if !card.Provisioned() {
		// Pass was revoked while the item waited; nothing left to sync.
		return nil
	}

	if err := s.pushBalance(ctx, card); err != nil {
		return translateProviderError(err)
	}
	if s.metrics != nil {
		s.metrics.StampUpdatesPushed.Inc()
	}
	return nil
}

// pushBalance sends the card's current ledger state to the provider and
// feeds the circuit breaker. Returns sentinel-level errors.
func (s *Service) pushBalance(ctx context.Context, card *models.CardRecord) error {
	update := provider.PassUpdate{
		Stamps:          card.CurrentStamps,
		StampsRequired:  card.StampsRequired,
		RewardAvailable: card.RewardAvailable(),
	}
	start := time.Now()
	err := s.provider.UpdatePass(ctx, *card.ExternalPassID, update)
	s.observeDispatch(start, err)

	if errors.Is(err, sentinel.ErrUnavailable) {
		if s.breaker.RecordFailure() {
			s.logger.WarnContext(ctx, "provider circuit opened")
		}
	} else {
		// Any definitive answer, success or rejection, means the
		// provider is reachable.
		s.breaker.RecordSuccess()
	}
	return err
}

func (s *Service) enqueueRetry(ctx context.Context, cardID id.CardID, delta int, cause error) {
	item := s.queue.Enqueue(cardID, delta, time.Now())
	if s.metrics != nil {
		s.metrics.RetriesEnqueued.Inc()
		s.metrics.IncrementSyncFailure("transient")
		s.metrics.SetQueueDepth(s.queue.Len())
	}
	s.logger.InfoContext(ctx, "wallet sync deferred to retry queue",
		"card_id", cardID.String(),
		"item_id", item.ID.String(),
		"delta", delta,
		"attempts", item.Attempts,
		"error", cause,
	)
}

func (s *Service) observeDispatch(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDispatchLatency(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, sentinel.ErrUnavailable) && !errors.Is(err, sentinel.ErrNotFound) {
		s.metrics.IncrementSyncFailure("validation")
	}
}
