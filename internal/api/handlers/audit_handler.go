package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"hookflo/internal/api/middleware"
	apierrors "hookflo/internal/pkg/errors"
	"hookflo/internal/platform/audit"
)

type AuditLister interface {
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]audit.Entry, error)
}

// AuditHandler exposes a webhook's audit trail, including the detailed reasons
// behind rejected inbound calls, to its owner.
type AuditHandler struct {
	service WebhookService
	entries AuditLister
}

func NewAuditHandler(service WebhookService, entries AuditLister) *AuditHandler {
	return &AuditHandler{service: service, entries: entries}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	id := param(r, "webhook_id")

	if _, err := h.service.Get(r.Context(), claims.UserID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	entries, err := h.entries.ListByResource(r.Context(), "webhook", id)
	if err != nil {
		log.Error().Err(err).Str("webhook_id", id).Msg("failed to list audit logs")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to list audit logs", nil)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
