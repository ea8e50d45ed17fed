// Package provider wraps the external wallet-pass API behind a
// capability interface. The implementation is chosen at construction
// time: HTTPClient for the real provider, Stub for tests and local runs.
//
// Error contract: implementations return sentinel.ErrUnavailable
// (optionally wrapped) for failures that may succeed on retry,
// sentinel.ErrInvalidInput for structurally invalid requests that never
// will, and sentinel.ErrNotFound for operations on unknown passes. The
// service layer translates these into domain errors exactly once.
package provider

import (
	"context"

	"selo/internal/wallet/models"
	id "selo/pkg/domain"
)

// Pass is the provider's view of a provisioned wallet pass.
type Pass struct {
	ID        id.PassID
	AppleURL  string
	GoogleURL string
	QRCode    string
}

// PassContent carries the non-personal card state shown on the pass.
type PassContent struct {
	ProgramName    string
	Stamps         int
	StampsRequired int
}

// PassUpdate carries the fields pushed on every balance change.
type PassUpdate struct {
	Stamps          int
	StampsRequired  int
	RewardAvailable bool
}

// Client is the outbound boundary to the wallet provider.
type Client interface {
	CreatePass(ctx context.Context, envelope models.PrivacyEnvelope, content PassContent) (*Pass, error)
	UpdatePass(ctx context.Context, passID id.PassID, update PassUpdate) error
	DeletePass(ctx context.Context, passID id.PassID) error
}
