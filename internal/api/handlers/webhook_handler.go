package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"hookflo/internal/api/middleware"
	"hookflo/internal/engine/webhooks"
	apierrors "hookflo/internal/pkg/errors"
	"hookflo/internal/platform/audit"
	"hookflo/internal/platform/models"
)

type WebhookService interface {
	Create(ctx context.Context, req webhooks.CreateRequest) (*webhooks.Created, error)
	Get(ctx context.Context, ownerID, webhookID string) (*models.Webhook, error)
	RotateSecret(ctx context.Context, ownerID, webhookID, platform string) (*webhooks.IssuedSecret, error)
}

type NotificationLogLister interface {
	ListByWebhook(ctx context.Context, webhookID string, limit int) ([]*models.NotificationLog, error)
}

type WebhookHandler struct {
	service WebhookService
	logs    NotificationLogLister
	audit   Auditor
}

func NewWebhookHandler(service WebhookService, logs NotificationLogLister, auditor Auditor) *WebhookHandler {
	return &WebhookHandler{service: service, logs: logs, audit: auditor}
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	var req webhooks.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	req.UserID = claims.UserID

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.record(r, audit.ActionWebhookCreated, created.Webhook.ID, map[string]interface{}{"platforms": req.Platforms})
	writeJSON(w, http.StatusCreated, created)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	webhook, err := h.service.Get(r.Context(), claims.UserID, param(r, "webhook_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, webhook)
}

func (h *WebhookHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	id := param(r, "webhook_id")
	platform := param(r, "platform")

	issued, err := h.service.RotateSecret(r.Context(), claims.UserID, id, platform)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.record(r, audit.ActionSecretRotated, id, map[string]interface{}{"platform": platform})
	writeJSON(w, http.StatusOK, issued)
}

func (h *WebhookHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	id := param(r, "webhook_id")

	if _, err := h.service.Get(r.Context(), claims.UserID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	entries, err := h.logs.ListByWebhook(r.Context(), id, 100)
	if err != nil {
		log.Error().Err(err).Str("webhook_id", id).Msg("failed to list notification logs")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to list notifications", nil)
		return
	}
	if entries == nil {
		entries = []*models.NotificationLog{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *WebhookHandler) record(r *http.Request, action, webhookID string, meta map[string]interface{}) {
	if h.audit == nil {
		return
	}
	h.audit.Log(r.Context(), audit.Entry{
		UserID:       middleware.ClaimsFrom(r.Context()).UserID,
		Action:       action,
		ResourceType: "webhook",
		ResourceID:   webhookID,
		Metadata:     meta,
		IPAddress:    r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := webhooks.StatusFor(err)
	message := err.Error()
	switch {
	case errors.Is(err, webhooks.ErrInvalidRequest):
		// Validation messages name only the offending field.
	case errors.Is(err, webhooks.ErrWebhookNotFound):
		message = "Webhook not found"
	case errors.Is(err, webhooks.ErrPlatformNotConfigured):
		message = "Platform not configured for this webhook"
	default:
		log.Error().Err(err).Msg("webhook management request failed")
		message = "Internal error"
	}
	apierrors.WriteError(w, status, apierrors.CodeFor(status), message, nil)
}
