// Package compliance implements the LGPD surface of the wallet core:
// compliance validation, audited data export, deletion, and
// anonymization of wallet-held data.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"selo/internal/audit"
	"selo/internal/wallet/metrics"
	"selo/internal/wallet/models"
	"selo/internal/wallet/privacy"
	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
	"selo/pkg/requestcontext"
)

// CustomerStore provides customer records for validation and masking.
type CustomerStore interface {
	FindByID(ctx context.Context, customerID id.CustomerID) (*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
}

// CardStore lists and updates a customer's cards.
type CardStore interface {
	ListByCustomer(ctx context.Context, customerID id.CustomerID) ([]*models.CardRecord, error)
	Update(ctx context.Context, card *models.CardRecord) error
}

// PassRevoker deletes passes at the wallet provider. Satisfied by the
// pass lifecycle service.
type PassRevoker interface {
	RevokePass(ctx context.Context, passID id.PassID) error
}

// Service executes privacy actions against wallet-held data. Every
// action leaves an immutable audit entry keyed by the customer's
// pseudonymous reference; raw identifiers never reach the audit store.
type Service struct {
	customers CustomerStore
	cards     CardStore
	revoker   PassRevoker
	pseudo    *privacy.Pseudonymizer
	auditLog  audit.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger

	retention    time.Duration
	dormantAfter time.Duration
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

// WithRetention overrides the retention window when positive.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithDormancyWindow overrides the inactivity window after which a
// record is flagged dormant.
func WithDormancyWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dormantAfter = d
		}
	}
}

// New constructs the compliance service with required collaborators.
func New(customers CustomerStore, cards CardStore, revoker PassRevoker, pseudo *privacy.Pseudonymizer, auditLog audit.Store, opts ...Option) (*Service, error) {
	if customers == nil || cards == nil || revoker == nil || pseudo == nil || auditLog == nil {
		return nil, fmt.Errorf("customers, cards, revoker, pseudo, and audit store are required")
	}
	s := &Service{
		customers:    customers,
		cards:        cards,
		revoker:      revoker,
		pseudo:       pseudo,
		auditLog:     auditLog,
		logger:       slog.Default(),
		retention:    7 * 365 * 24 * time.Hour,
		dormantAfter: 2 * 365 * 24 * time.Hour,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ValidateCompliance checks one customer record against the retention
// and consent rules. Issues make the record non-compliant;
// recommendations are advisory.
func (s *Service) ValidateCompliance(ctx context.Context, customerID id.CustomerID) (*Report, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "customer not found")
	}
	cards, err := s.cards.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list cards")
	}

	now := time.Now()
	report := &Report{
		CustomerID:  customerID,
		CheckedAt:   now,
		RetainedFor: now.Sub(customer.CreatedAt),
	}

	if customer.ConsentGrantedAt == nil {
		report.Issues = append(report.Issues, "no consent timestamp on record")
	}
	if !customer.HasConsent() && provisionedCount(cards) > 0 {
		report.Issues = append(report.Issues,
			fmt.Sprintf("consent revoked but %d wallet pass(es) still provisioned", provisionedCount(cards)))
	}
	if report.RetainedFor > s.retention {
		report.Issues = append(report.Issues, "retention window exceeded")
	} else if s.retention-report.RetainedFor < 180*24*time.Hour {
		report.Recommendations = append(report.Recommendations, "retention deadline approaching; schedule deletion or renewal")
	}

	lastSeen := customer.CreatedAt
	if customer.LastActivityAt != nil {
		lastSeen = *customer.LastActivityAt
	}
	if now.Sub(lastSeen) > s.dormantAfter {
		report.Dormant = true
		report.Recommendations = append(report.Recommendations, "record dormant; consider anonymization")
	}

	report.IsCompliant = len(report.Issues) == 0
	return report, nil
}

// CreateAuditEntry records a privacy action. The subject is the
// customer's pseudonymous reference and every detail value is masked
// before it reaches the store.
func (s *Service) CreateAuditEntry(ctx context.Context, action audit.Action, customer *models.Customer, performer string, details map[string]string, notes string) (*audit.Entry, error) {
	entry := audit.Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Subject:   s.pseudo.ExternalID(customer.ID, customer.BusinessID),
		Performer: performer,
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    deviceSummary(requestcontext.UserAgent(ctx)),
		Details:   privacy.MaskDetails(details),
		Notes:     notes,
	}
	if err := s.auditLog.Append(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not append audit entry")
	}
	if s.metrics != nil {
		s.metrics.IncrementPrivacyAction(string(action))
	}
	s.logger.InfoContext(ctx, "privacy action audited",
		"action", string(action),
		"subject", entry.Subject,
		"performer", performer,
	)
	return &entry, nil
}

// ExportWalletData assembles the subject-access bundle: the minimized
// envelope plus every provisioned pass. Cards without a pass hold no
// wallet data and are excluded.
func (s *Service) ExportWalletData(ctx context.Context, customerID id.CustomerID, performer string) (*WalletExport, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "customer not found")
	}
	cards, err := s.cards.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list cards")
	}

	envelope := s.pseudo.Envelope(customer)
	export := &WalletExport{
		ExternalID:  envelope.ExternalID,
		GeneratedAt: time.Now(),
		FirstName:   envelope.DisplayFirstName,
		Phone:       envelope.Phone,
		Email:       envelope.Email,
	}
	for _, card := range cards {
		if !card.Provisioned() {
			continue
		}
		pass := ExportedPass{
			CardID:         card.ID,
			ExternalPassID: *card.ExternalPassID,
			Stamps:         card.CurrentStamps,
			StampsRequired: card.StampsRequired,
			Status:         string(card.Status),
			EnrolledAt:     card.EnrolledAt,
		}
		if card.WalletURLApple != nil {
			pass.WalletURLApple = *card.WalletURLApple
		}
		if card.WalletURLGoogle != nil {
			pass.WalletURLGoogle = *card.WalletURLGoogle
		}
		export.Passes = append(export.Passes, pass)
	}

	_, err = s.CreateAuditEntry(ctx, audit.ActionDataExport, customer, performer,
		map[string]string{"phone": customer.Phone, "email": customer.Email},
		fmt.Sprintf("exported %d wallet pass(es)", len(export.Passes)),
	)
	if err != nil {
		return nil, err
	}
	return export, nil
}

// DeleteWalletData revokes every provisioned pass, exactly one provider
// call per pass, and clears the pass references from the cards. The
// ledger itself is untouched; only wallet-held data is erased. Returns
// the number of passes revoked. A revocation failure is surfaced so the
// operator can re-run the deletion.
func (s *Service) DeleteWalletData(ctx context.Context, customerID id.CustomerID, performer string) (int, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeNotFound, "customer not found")
	}

	revoked, err := s.revokeAll(ctx, customerID)
	if err != nil {
		return revoked, err
	}

	_, err = s.CreateAuditEntry(ctx, audit.ActionDataDeletion, customer, performer, nil,
		fmt.Sprintf("revoked %d wallet pass(es)", revoked),
	)
	if err != nil {
		return revoked, err
	}
	return revoked, nil
}

// AnonymizeWalletData revokes every provisioned pass and masks the
// personal fields on the customer record, keeping the ledger history
// usable for aggregate reporting without an identifiable subject.
func (s *Service) AnonymizeWalletData(ctx context.Context, customerID id.CustomerID, performer string) error {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "customer not found")
	}

	// The audit subject is derived before masking so it matches entries
	// written while the record was still intact.
	subjectRecord := *customer

	revoked, err := s.revokeAll(ctx, customerID)
	if err != nil {
		return err
	}

	customer.FirstName = privacy.Mask(customer.FirstName)
	customer.LastName = privacy.Mask(customer.LastName)
	customer.Phone = privacy.Mask(customer.Phone)
	customer.Email = privacy.MaskEmail(customer.Email)
	if err := s.customers.Update(ctx, customer); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not persist anonymized record")
	}

	_, err = s.CreateAuditEntry(ctx, audit.ActionDataAnonymization, &subjectRecord, performer, nil,
		fmt.Sprintf("revoked %d wallet pass(es), personal fields masked", revoked),
	)
	return err
}

// revokeAll deletes each provisioned pass and clears its references.
// Cards are cleared one by one right after their revocation succeeds,
// so a mid-run failure never leaves a dangling reference to a pass that
// is already gone.
func (s *Service) revokeAll(ctx context.Context, customerID id.CustomerID) (int, error) {
	cards, err := s.cards.ListByCustomer(ctx, customerID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not list cards")
	}

	revoked := 0
	for _, card := range cards {
		if !card.Provisioned() {
			continue
		}
		if err := s.revoker.RevokePass(ctx, *card.ExternalPassID); err != nil {
			return revoked, err
		}
		card.ExternalPassID = nil
		card.WalletURLApple = nil
		card.WalletURLGoogle = nil
		if err := s.cards.Update(ctx, card); err != nil {
			return revoked, dErrors.Wrap(err, dErrors.CodeInternal, "could not clear pass references")
		}
		revoked++
	}
	return revoked, nil
}

func provisionedCount(cards []*models.CardRecord) int {
	n := 0
	for _, card := range cards {
		if card.Provisioned() {
			n++
		}
	}
	return n
}

// deviceSummary reduces a raw User-Agent to "Browser on OS" for audit
// entries. The raw string never reaches the audit store.
func deviceSummary(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			os = platform
		}
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
