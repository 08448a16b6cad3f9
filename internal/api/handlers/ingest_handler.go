package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"hookflo/internal/api/middleware"
	"hookflo/internal/engine/notifications"
	"hookflo/internal/engine/webhooks"
	apierrors "hookflo/internal/pkg/errors"
	"hookflo/internal/platform/audit"
)

type Verifier interface {
	Verify(ctx context.Context, req webhooks.Request) (*webhooks.Result, error)
}

type Auditor interface {
	Log(ctx context.Context, entry audit.Entry)
}

// Callers only ever see these; the precise reason goes to the audit log.
var rejectionMessages = map[int]string{
	http.StatusBadRequest:          "Invalid payload",
	http.StatusUnauthorized:        "Authentication failed",
	http.StatusNotFound:            "Webhook not found",
	http.StatusTooManyRequests:     "Usage limit exceeded",
	http.StatusInternalServerError: "Unable to process webhook",
}

type IngestHandler struct {
	verifier Verifier
	audit    Auditor
	metrics  *Metrics
	maxBody  int64
}

func NewIngestHandler(verifier Verifier, auditor Auditor, metrics *Metrics, maxBody int64) *IngestHandler {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &IngestHandler{verifier: verifier, audit: auditor, metrics: metrics, maxBody: maxBody}
}

func (h *IngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	webhookID := param(r, "webhook_id")
	platform := param(r, "platform")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.WriteError(w, http.StatusRequestEntityTooLarge, apierrors.ErrCodePayloadTooLarge, "Payload too large", nil)
			return
		}
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Unable to read body", nil)
		return
	}

	result, err := h.verifier.Verify(r.Context(), webhooks.Request{
		WebhookID: webhookID,
		Platform:  platform,
		Header:    r.Header,
		Body:      body,
	})
	mode, owner := "", ""
	if result != nil {
		mode = string(result.Mode)
		platform = result.Platform
		owner = result.OwnerID
	}

	if err != nil {
		status := webhooks.StatusFor(err)
		h.recordRejection(r, webhookID, platform, owner, status, err)
		if h.metrics != nil {
			h.metrics.observeVerification(mode, "rejected_"+apierrors.CodeFor(status), time.Since(start))
		}
		apierrors.WriteError(w, status, apierrors.CodeFor(status), rejectionMessages[status], nil)
		return
	}

	if h.metrics != nil {
		h.metrics.observeVerification(mode, "dispatched", time.Since(start))
		for channel, res := range result.Notifications {
			h.metrics.observeNotification(channel, res.Sent)
		}
	}

	report := result.Notifications
	if report == nil {
		report = notifications.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "verified",
		"webhook_id":    result.WebhookID,
		"platform":      result.Platform,
		"notifications": report,
	})
}

// recordRejection logs every rejection. Only calls that resolved to a real
// webhook reach the audit log, so unknown ids cannot grow it.
func (h *IngestHandler) recordRejection(r *http.Request, webhookID, platform, owner string, status int, err error) {
	state := ""
	var rej *webhooks.RejectionError
	if errors.As(err, &rej) {
		state = string(rej.State)
	}

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.RequestIDFrom(r.Context())).
		Str("webhook_id", webhookID).
		Str("platform", platform).
		Str("state", state).
		Int("status", status).
		Msg("webhook verification rejected")

	if h.audit == nil || owner == "" {
		return
	}
	h.audit.Log(r.Context(), audit.Entry{
		UserID:       owner,
		Action:       audit.ActionVerificationRejected,
		ResourceType: "webhook",
		ResourceID:   webhookID,
		Metadata: map[string]interface{}{
			"platform": platform,
			"state":    state,
			"status":   status,
			"reason":   err.Error(),
		},
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
