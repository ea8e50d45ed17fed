package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"selo/internal/compliance"
	respond "selo/internal/transport/http/json"
	"selo/internal/transport/http/shared"
	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
	"selo/pkg/requestcontext"
)

// ComplianceService is the LGPD surface the transport layer uses.
type ComplianceService interface {
	ValidateCompliance(ctx context.Context, customerID id.CustomerID) (*compliance.Report, error)
	ExportWalletData(ctx context.Context, customerID id.CustomerID, performer string) (*compliance.WalletExport, error)
	DeleteWalletData(ctx context.Context, customerID id.CustomerID, performer string) (int, error)
	AnonymizeWalletData(ctx context.Context, customerID id.CustomerID, performer string) error
}

type privacyRequest struct {
	Performer string `json:"performer"`
}

// performer decodes the optional request body. Privacy actions are
// operator-triggered; an absent performer is recorded as "system".
func performer(r *http.Request) string {
	var req privacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Performer != "" {
		return req.Performer
	}
	return "system"
}

func customerIDParam(r *http.Request) (id.CustomerID, error) {
	customerID, err := id.ParseCustomerID(chi.URLParam(r, "customerID"))
	if err != nil {
		return customerID, dErrors.New(dErrors.CodeInvalidInput, "invalid customer ID")
	}
	return customerID, nil
}

func (h *Handler) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.compliance.ValidateCompliance(r.Context(), customerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleDataExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, err := customerIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	export, err := h.compliance.ExportWalletData(ctx, customerID, performer(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "wallet data export failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, export)
}

func (h *Handler) handleDataDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, err := customerIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	revoked, err := h.compliance.DeleteWalletData(ctx, customerID, performer(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "wallet data deletion failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"passes_revoked": revoked,
		"message":        "wallet data deleted",
	})
}

func (h *Handler) handleDataAnonymization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID, err := customerIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.compliance.AnonymizeWalletData(ctx, customerID, performer(r)); err != nil {
		h.logger.ErrorContext(ctx, "wallet data anonymization failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "wallet data anonymized",
	})
}
