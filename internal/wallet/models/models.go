package models

import (
	"time"

	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
)

// CardStatus tracks a card's position in its reward cycle.
type CardStatus string

const (
	StatusActive    CardStatus = "active"
	StatusCompleted CardStatus = "completed"
	StatusExpired   CardStatus = "expired"
)

// CardRecord represents one customer's enrollment in one loyalty program.
//
// The internal stamp ledger (CurrentStamps) is always the source of truth.
// The external wallet pass is a best-effort mirror and may lag behind;
// ExternalPassID is non-nil only after at least one successful sync.
type CardRecord struct {
	ID              id.CardID
	CustomerID      id.CustomerID
	ProgramID       id.ProgramID
	CurrentStamps   int
	StampsRequired  int
	TotalRedeemed   int
	Status          CardStatus
	ExternalPassID  *id.PassID
	WalletURLApple  *string
	WalletURLGoogle *string
	QRCode          string
	EnrolledAt      time.Time
	LastStampAt     *time.Time
}

// NewCardRecord creates a CardRecord with domain invariant checks.
// Cards start with zero stamps and active status.
func NewCardRecord(cardID id.CardID, customerID id.CustomerID, programID id.ProgramID, stampsRequired int, qrCode string, enrolledAt time.Time) (*CardRecord, error) {
	if cardID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "card ID required")
	}
	if customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer ID required")
	}
	if programID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "program ID required")
	}
	if stampsRequired <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "stamps required must be positive")
	}
	if enrolledAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "enrollment time required")
	}
	return &CardRecord{
		ID:             cardID,
		CustomerID:     customerID,
		ProgramID:      programID,
		StampsRequired: stampsRequired,
		Status:         StatusActive,
		QRCode:         qrCode,
		EnrolledAt:     enrolledAt,
	}, nil
}

// Provisioned reports whether a wallet pass has ever been created for this card.
func (c CardRecord) Provisioned() bool {
	return c.ExternalPassID != nil
}

// RewardAvailable reports whether the card has reached its reward threshold.
func (c CardRecord) RewardAvailable() bool {
	return c.CurrentStamps >= c.StampsRequired
}

// ApplyDelta applies a stamp delta to the ledger balance and recomputes
// status. The balance never goes below zero; an active card that reaches
// its threshold becomes completed.
func (c *CardRecord) ApplyDelta(delta int, now time.Time) {
	c.CurrentStamps += delta
	if c.CurrentStamps < 0 {
		c.CurrentStamps = 0
	}
	c.LastStampAt = &now
	if c.Status == StatusActive && c.CurrentStamps >= c.StampsRequired {
		c.Status = StatusCompleted
	}
}

// Customer holds the raw personal record as the CRUD layer stores it.
// Only the privacy transform may turn this into an outbound payload;
// raw fields never cross the system boundary.
type Customer struct {
	ID               id.CustomerID
	BusinessID       id.BusinessID
	FirstName        string
	LastName         string
	Phone            string
	Email            string
	ConsentGrantedAt *time.Time
	ConsentRevokedAt *time.Time
	CreatedAt        time.Time
	LastActivityAt   *time.Time
}

// HasConsent reports whether the customer currently consents to wallet
// provisioning. A revocation after the grant wins.
func (c Customer) HasConsent() bool {
	if c.ConsentGrantedAt == nil {
		return false
	}
	if c.ConsentRevokedAt != nil && c.ConsentRevokedAt.After(*c.ConsentGrantedAt) {
		return false
	}
	return true
}

// PrivacyEnvelope is the minimized payload sent to the wallet provider.
// ExternalID is a pseudonymous hash; no other identifying fields
// (surname, tags, spend history, form answers) are ever included.
type PrivacyEnvelope struct {
	ExternalID       string
	DisplayFirstName string
	Phone            string
	Email            string
}
