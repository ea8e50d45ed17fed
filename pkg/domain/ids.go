// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "selo/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a CustomerID where a CardID is expected.
type (
	CustomerID uuid.UUID
	CardID     uuid.UUID
	ProgramID  uuid.UUID
	BusinessID uuid.UUID
	ItemID     uuid.UUID
)

// PassID is the opaque identifier the wallet provider assigns to a pass.
// It is provider-owned; never derive anything from its shape.
type PassID string

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseCustomerID(s string) (CustomerID, error) {
	id, err := parseUUID(s, "customer ID")
	return CustomerID(id), err
}

func ParseCardID(s string) (CardID, error) {
	id, err := parseUUID(s, "card ID")
	return CardID(id), err
}

func ParseProgramID(s string) (ProgramID, error) {
	id, err := parseUUID(s, "program ID")
	return ProgramID(id), err
}

func ParseBusinessID(s string) (BusinessID, error) {
	id, err := parseUUID(s, "business ID")
	return BusinessID(id), err
}

func ParseItemID(s string) (ItemID, error) {
	id, err := parseUUID(s, "retry item ID")
	return ItemID(id), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	return id, nil
}

// New functions - generate fresh identifiers.

func NewCustomerID() CustomerID { return CustomerID(uuid.New()) }
func NewCardID() CardID         { return CardID(uuid.New()) }
func NewProgramID() ProgramID   { return ProgramID(uuid.New()) }
func NewBusinessID() BusinessID { return BusinessID(uuid.New()) }
func NewItemID() ItemID         { return ItemID(uuid.New()) }

// String representations for logging and serialization.

func (id CustomerID) String() string { return uuid.UUID(id).String() }
func (id CardID) String() string     { return uuid.UUID(id).String() }
func (id ProgramID) String() string  { return uuid.UUID(id).String() }
func (id BusinessID) String() string { return uuid.UUID(id).String() }
func (id ItemID) String() string     { return uuid.UUID(id).String() }

// IsNil reports whether the identifier is the zero value.

func (id CustomerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CardID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ProgramID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id BusinessID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
