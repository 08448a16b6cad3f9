package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "hookflo/internal/api/context"
	"hookflo/internal/api/handlers"
	"hookflo/internal/api/middleware"
	"hookflo/internal/pkg/errors"
	"hookflo/internal/platform/config"
)

type Dependencies struct {
	IngestHandler  *handlers.IngestHandler
	WebhookHandler *handlers.WebhookHandler
	AuditHandler   *handlers.AuditHandler
	AccountHandler *handlers.AccountHandler
	HealthHandler  *handlers.HealthHandler
	Metrics        *handlers.Metrics
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
	RateLimits     config.RateLimitConfig
}

func NewRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.Metrics.Export))

	// Inbound verification endpoints, called by the integrated platforms.
	inbound := deps.RateLimiter.Limit(deps.RateLimits.InboundPerMinute, middleware.ByWebhook)
	router.POST("/api/webhooks/:webhook_id", chain(deps.IngestHandler.Handle, inbound))
	router.POST("/api/webhooks/:webhook_id/:platform", chain(deps.IngestHandler.Handle, inbound))

	// Management API
	authMid := deps.AuthMiddleware
	apiLimit := deps.RateLimiter.Limit(deps.RateLimits.APIPerMinute, middleware.ByUser)

	router.POST("/api/v1/webhooks",
		chain(deps.WebhookHandler.Create, authMid.Handle, apiLimit))
	router.GET("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Get, authMid.Handle, apiLimit))
	router.POST("/api/v1/webhooks/:webhook_id/platforms/:platform/rotate",
		chain(deps.WebhookHandler.Rotate, authMid.Handle, apiLimit))
	router.GET("/api/v1/webhooks/:webhook_id/notifications",
		chain(deps.WebhookHandler.Notifications, authMid.Handle, apiLimit))
	router.GET("/api/v1/webhooks/:webhook_id/audit",
		chain(deps.AuditHandler.List, authMid.Handle, apiLimit))

	router.GET("/api/v1/templates",
		chain(deps.AccountHandler.ListTemplates, authMid.Handle, apiLimit))
	router.GET("/api/v1/templates/:template_id",
		chain(deps.AccountHandler.GetTemplate, authMid.Handle, apiLimit))
	router.PATCH("/api/v1/templates/:template_id",
		chain(deps.AccountHandler.CustomizeTemplate, authMid.Handle, apiLimit))
	router.GET("/api/v1/usage",
		chain(deps.AccountHandler.Usage, authMid.Handle, apiLimit))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	return middleware.RequestLogger(router)
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
