package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"hookflo/internal/api/middleware"
	"hookflo/internal/engine/templates"
	"hookflo/internal/engine/usage"
	apierrors "hookflo/internal/pkg/errors"
)

type TemplateRegistry interface {
	Resolve(ctx context.Context, userID, templateID string) (templates.Template, error)
	Customize(ctx context.Context, userID, templateID string, patch []byte) (templates.Template, error)
}

type UsageReporter interface {
	Snapshot(ctx context.Context, userID string) (usage.Usage, error)
}

// AccountHandler serves the caller's template customizations and usage counters.
type AccountHandler struct {
	templates TemplateRegistry
	usage     UsageReporter
}

func NewAccountHandler(registry TemplateRegistry, usage UsageReporter) *AccountHandler {
	return &AccountHandler{templates: registry, usage: usage}
}

func (h *AccountHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates.BaseIDs()})
}

func (h *AccountHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	tmpl, err := h.templates.Resolve(r.Context(), claims.UserID, param(r, "template_id"))
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve template")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to load template", nil)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// CustomizeTemplate stores the request body as a JSON merge patch over the base template.
func (h *AccountHandler) CustomizeTemplate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<10))
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	tmpl, err := h.templates.Customize(r.Context(), claims.UserID, param(r, "template_id"), patch)
	switch {
	case errors.Is(err, templates.ErrUnknownTemplate):
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Template not found", nil)
		return
	case errors.Is(err, templates.ErrInvalidPatch):
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, err.Error(), nil)
		return
	case err != nil:
		log.Error().Err(err).Msg("failed to store template customization")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to save template", nil)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *AccountHandler) Usage(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())

	snapshot, err := h.usage.Snapshot(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load usage")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to load usage", nil)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
