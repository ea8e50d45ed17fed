package compliance

import (
	"time"

	id "selo/pkg/domain"
)

// Report is the outcome of a compliance validation for one customer
// record. Issues block compliance; recommendations do not.
type Report struct {
	CustomerID      id.CustomerID `json:"-"`
	CheckedAt       time.Time     `json:"checked_at"`
	IsCompliant     bool          `json:"is_compliant"`
	Issues          []string      `json:"issues,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
	Dormant         bool          `json:"dormant"`
	RetainedFor     time.Duration `json:"retained_for_ns"`
}

// WalletExport is the subject-access bundle for a customer's wallet
// data. It covers exactly what the wallet provider holds: the minimized
// envelope plus the state of each provisioned pass. Cards that never
// received a pass hold no external data and are excluded.
type WalletExport struct {
	ExternalID  string         `json:"external_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	FirstName   string         `json:"first_name"`
	Phone       string         `json:"phone"`
	Email       string         `json:"email,omitempty"`
	Passes      []ExportedPass `json:"passes"`
}

// ExportedPass is the wallet-held state of one provisioned card.
type ExportedPass struct {
	CardID          id.CardID `json:"-"`
	ExternalPassID  id.PassID `json:"external_pass_id"`
	Stamps          int       `json:"stamps"`
	StampsRequired  int       `json:"stamps_required"`
	Status          string    `json:"status"`
	WalletURLApple  string    `json:"wallet_url_apple,omitempty"`
	WalletURLGoogle string    `json:"wallet_url_google,omitempty"`
	EnrolledAt      time.Time `json:"enrolled_at"`
}
