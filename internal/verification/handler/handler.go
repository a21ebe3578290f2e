// Package handler exposes the verification service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/models"
	"landtrust/internal/verification/store"
	dErrors "landtrust/pkg/domain-errors"
	"landtrust/pkg/platform/httputil"
	"landtrust/pkg/requestcontext"
)

// VerificationService is the subset of the service the handler needs.
type VerificationService interface {
	Verify(ctx context.Context, d identity.Descriptor) (*models.TrustReport, error)
	Providers() []models.ProviderInfo
	History(ctx context.Context, d identity.Descriptor, limit int) ([]store.HistoryEntry, error)
}

type Handler struct {
	service VerificationService
	logger  *slog.Logger
}

func New(service VerificationService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the verification routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/landlord/verify", func(r chi.Router) {
		r.Post("/", h.HandleVerify)
		r.Get("/providers", h.HandleProviders)
		r.Post("/history", h.HandleHistory)
	})
}

// ProvidersResponse lists the enabled providers.
type ProvidersResponse struct {
	Providers []models.ProviderInfo `json:"providers"`
	Total     int                   `json:"total"`
}

// HistoryRequest selects past reports for an owner. The descriptor travels
// in the body so PII stays out of URLs and access logs.
type HistoryRequest struct {
	identity.Descriptor
	Limit int `json:"limit,omitempty"`
}

func (r *HistoryRequest) Normalize() {
	r.Descriptor.Normalize()
}

func (r *HistoryRequest) Validate() error {
	if r.Limit < 0 {
		return dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	}
	return r.Descriptor.Validate()
}

// HistoryResponse lists past reports, newest first.
type HistoryResponse struct {
	Entries []store.HistoryEntry `json:"entries"`
}

// HandleVerify handles POST /api/landlord/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[identity.Descriptor](w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.service.Verify(ctx, *req)
	if err != nil {
		h.logger.WarnContext(ctx, "verification failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification completed",
		"report_id", report.ReportID,
		"trust_score", report.TrustScore,
		"providers_invoked", report.ProvidersInvoked,
		"cached", report.Cached,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleProviders handles GET /api/landlord/verify/providers.
func (h *Handler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	infos := h.service.Providers()
	httputil.WriteJSON(w, http.StatusOK, ProvidersResponse{Providers: infos, Total: len(infos)})
}

// HandleHistory handles POST /api/landlord/verify/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[HistoryRequest](w, r, h.logger)
	if !ok {
		return
	}

	entries, err := h.service.History(ctx, req.Descriptor, req.Limit)
	if err != nil {
		h.logger.WarnContext(ctx, "history lookup failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []store.HistoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}
