// Package httptransport is the thin HTTP layer. It delegates to domain
// services without embedding business logic so transport concerns
// remain isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	respond "selo/internal/transport/http/json"
	"selo/pkg/platform/middleware/request"
)

// Handler wires domain services to routes.
type Handler struct {
	wallet     WalletService
	compliance ComplianceService
	queue      RetryQueue
	retrier    ManualRetrier
	logger     *slog.Logger
}

// NewHandler creates the HTTP handler with its domain collaborators.
func NewHandler(wallet WalletService, compliance ComplianceService, queue RetryQueue, retrier ManualRetrier, logger *slog.Logger) *Handler {
	return &Handler{
		wallet:     wallet,
		compliance: compliance,
		queue:      queue,
		retrier:    retrier,
		logger:     logger,
	}
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientMetadata)
	r.Use(request.Logger(logger))
	r.Use(request.Timeout(30 * time.Second))
	r.Use(request.ContentTypeJSON)

	// Wallet pass lifecycle
	r.Post("/enrollments/{customerID}/{cardID}/pass", h.handleProvisionPass)
	r.Post("/cards/{cardID}/stamps", h.handleAwardStamps)

	// Retry queue operations
	r.Get("/retry/stats", h.handleRetryStats)
	r.Post("/retry/{itemID}/dispatch", h.handleManualRetry)

	// LGPD privacy actions
	r.Get("/privacy/{customerID}/compliance", h.handleComplianceReport)
	r.Post("/privacy/{customerID}/export", h.handleDataExport)
	r.Post("/privacy/{customerID}/delete", h.handleDataDeletion)
	r.Post("/privacy/{customerID}/anonymize", h.handleDataAnonymization)

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
