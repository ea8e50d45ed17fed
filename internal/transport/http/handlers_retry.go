package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	respond "selo/internal/transport/http/json"
	"selo/internal/transport/http/shared"
	"selo/internal/wallet/retry"
	id "selo/pkg/domain"
	dErrors "selo/pkg/domain-errors"
)

// RetryQueue exposes queue observability to operators.
type RetryQueue interface {
	Stats(now time.Time) retry.Stats
}

// ManualRetrier dispatches a single queued item out of schedule.
type ManualRetrier interface {
	ManualRetry(ctx context.Context, itemID id.ItemID) error
}

type statsResponse struct {
	Total             int    `json:"total"`
	Pending           int    `json:"pending"`
	PermanentlyFailed int    `json:"permanently_failed"`
	OldestAge         string `json:"oldest_age"`
}

func (h *Handler) handleRetryStats(w http.ResponseWriter, r *http.Request) {
	stats := h.queue.Stats(time.Now())
	respond.WriteJSON(w, http.StatusOK, statsResponse{
		Total:             stats.Total,
		Pending:           stats.Pending,
		PermanentlyFailed: stats.PermanentlyFailed,
		OldestAge:         stats.OldestAge.String(),
	})
}

func (h *Handler) handleManualRetry(w http.ResponseWriter, r *http.Request) {
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid retry item ID"))
		return
	}

	if err := h.retrier.ManualRetry(r.Context(), itemID); err != nil {
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "retry dispatched",
	})
}
