// Package privacy implements the data-minimization boundary: every
// personal field leaving the system passes through here first.
package privacy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"selo/internal/wallet/models"
	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
)

// keyInfo binds the derived key to this purpose. Changing it (or the
// secret) changes every derived external ID and orphans existing passes.
const keyInfo = "selo/wallet/external-id/v1"

// Pseudonymizer derives deterministic, non-reversible external IDs and
// masks personal fields for logs and audit entries.
type Pseudonymizer struct {
	key []byte
}

// New derives the pseudonymization key from the server-held secret via
// HKDF-SHA256. The same secret always yields the same key, so external
// IDs stay stable across restarts.
func New(secret string) (*Pseudonymizer, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "privacy secret cannot be empty")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not derive pseudonymization key")
	}
	return &Pseudonymizer{key: key}, nil
}

// ExternalID maps (customerID, businessID) to a stable pseudonymous
// identifier. The same pair always yields the same ID, which makes
// provider upserts idempotent, and the mapping cannot be reversed
// without the server-held secret.
func (p *Pseudonymizer) ExternalID(customerID id.CustomerID, businessID id.BusinessID) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(customerID.String()))
	mac.Write([]byte{0})
	mac.Write([]byte(businessID.String()))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Envelope builds the minimized outbound payload for a customer.
// Only the first name, phone, and optional email travel; everything
// else stays inside the boundary.
func (p *Pseudonymizer) Envelope(customer *models.Customer) models.PrivacyEnvelope {
	return models.PrivacyEnvelope{
		ExternalID:       p.ExternalID(customer.ID, customer.BusinessID),
		DisplayFirstName: customer.FirstName,
		Phone:            customer.Phone,
		Email:            customer.Email,
	}
}

// Mask reduces a personal value to its first and last character with the
// interior replaced. Deliberately not full redaction: operators need
// enough to correlate support requests, and never more.
func Mask(s string) string {
	runes := []rune(s)
	switch len(runes) {
	case 0:
		return ""
	case 1:
		return "*"
	case 2:
		return string(runes[0]) + "*"
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}

// MaskEmail masks the local part and domain separately so the shape of
// the address survives without exposing it.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return Mask(email)
	}
	return Mask(email[:at]) + "@" + Mask(email[at+1:])
}

// MaskDetails masks every value of a details map for audit storage.
func MaskDetails(details map[string]string) map[string]string {
	if details == nil {
		return nil
	}
	masked := make(map[string]string, len(details))
	for k, v := range details {
		if strings.Contains(v, "@") {
			masked[k] = MaskEmail(v)
			continue
		}
		masked[k] = Mask(v)
	}
	return masked
}
