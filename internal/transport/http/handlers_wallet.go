package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	respond "selo/internal/transport/http/json"
	"selo/internal/transport/http/shared"
	"selo/internal/wallet/models"
	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
	"selo/pkg/requestcontext"
)

// WalletService is the pass lifecycle surface the transport layer uses.
type WalletService interface {
	ProvisionPass(ctx context.Context, customerID id.CustomerID, cardID id.CardID) (*models.CardRecord, error)
	ApplyStampDelta(ctx context.Context, cardID id.CardID, delta int) (*models.CardRecord, error)
}

type stampRequest struct {
	Delta int `json:"delta"`
}

type cardResponse struct {
	CardID          string  `json:"card_id"`
	CustomerID      string  `json:"customer_id"`
	CurrentStamps   int     `json:"current_stamps"`
	StampsRequired  int     `json:"stamps_required"`
	Status          string  `json:"status"`
	RewardAvailable bool    `json:"reward_available"`
	ExternalPassID  *string `json:"external_pass_id,omitempty"`
	WalletURLApple  *string `json:"wallet_url_apple,omitempty"`
	WalletURLGoogle *string `json:"wallet_url_google,omitempty"`
}

func toCardResponse(card *models.CardRecord) cardResponse {
	res := cardResponse{
		CardID:          card.ID.String(),
		CustomerID:      card.CustomerID.String(),
		CurrentStamps:   card.CurrentStamps,
		StampsRequired:  card.StampsRequired,
		Status:          string(card.Status),
		RewardAvailable: card.RewardAvailable(),
		WalletURLApple:  card.WalletURLApple,
		WalletURLGoogle: card.WalletURLGoogle,
	}
	if card.ExternalPassID != nil {
		passID := string(*card.ExternalPassID)
		res.ExternalPassID = &passID
	}
	return res
}

// handleProvisionPass creates (or returns) the wallet pass for a card.
func (h *Handler) handleProvisionPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, err := id.ParseCustomerID(chi.URLParam(r, "customerID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid customer ID"))
		return
	}
	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid card ID"))
		return
	}

	card, err := h.wallet.ProvisionPass(ctx, customerID, cardID)
	if err != nil {
		h.logger.WarnContext(ctx, "pass provisioning failed",
			"request_id", requestcontext.RequestID(ctx),
			"card_id", cardID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusCreated, toCardResponse(card))
}

// handleAwardStamps commits a stamp delta and mirrors it to the wallet
// pass. The response reflects the ledger; a lagging mirror is invisible
// to the caller.
func (h *Handler) handleAwardStamps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cardID, err := id.ParseCardID(chi.URLParam(r, "cardID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid card ID"))
		return
	}

	var req stampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	card, err := h.wallet.ApplyStampDelta(ctx, cardID, req.Delta)
	if err != nil {
		h.logger.WarnContext(ctx, "stamp award failed",
			"request_id", requestcontext.RequestID(ctx),
			"card_id", cardID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, toCardResponse(card))
}
