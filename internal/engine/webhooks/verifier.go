package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"hookflo/internal/engine/notifications"
	"hookflo/internal/engine/security"
	"hookflo/internal/platform/models"
)

// State is a step of the inbound verification flow.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateTokenExtracted   State = "TOKEN_EXTRACTED"
	StateSecretLoaded     State = "SECRET_LOADED"
	StateSignatureChecked State = "SIGNATURE_CHECKED"
	StateDispatched       State = "DISPATCHED"
	StateRejected         State = "REJECTED"
)

type Registry interface {
	GetByID(ctx context.Context, id string) (*models.Webhook, error)
}

type SecretOpener interface {
	DecryptContext(ctx context.Context, packed string) (string, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, webhook *models.Webhook, platform string, event map[string]interface{}) notifications.Report
}

type UsageLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
	Record(ctx context.Context, userID string) error
}

// Request is one inbound call, already read off the wire.
type Request struct {
	WebhookID string
	Platform  string
	Header    http.Header
	Body      []byte
}

type Result struct {
	WebhookID     string               `json:"webhook_id"`
	Platform      string               `json:"platform"`
	Mode          AuthMode             `json:"auth_mode"`
	State         State                `json:"state"`
	Notifications notifications.Report `json:"notifications"`

	// OwnerID is set once the call resolved to an active webhook with the
	// requested platform configured. It stays empty for calls that never did.
	OwnerID string `json:"-"`
}

// Verifier authenticates inbound calls against the stored per-platform secret
// and hands verified payloads to the notifier. Each call reads one registry row;
// nothing is retried and no idempotency key is tracked.
type Verifier struct {
	registry Registry
	secrets  SecretOpener
	notifier Notifier
	usage    UsageLimiter
	strategy *Strategy
}

func NewVerifier(registry Registry, secrets SecretOpener, notifier Notifier, usage UsageLimiter, strategy *Strategy) *Verifier {
	return &Verifier{
		registry: registry,
		secrets:  secrets,
		notifier: notifier,
		usage:    usage,
		strategy: strategy,
	}
}

// Verify runs the flow. On rejection the returned error is a *RejectionError
// wrapping one of the package's sentinel errors.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Result, error) {
	platform := req.Platform
	if platform == "" {
		platform = "custom"
	}
	mode := v.strategy.ModeFor(platform)
	result := &Result{WebhookID: req.WebhookID, Platform: platform, Mode: mode, State: StateReceived}

	credential := v.strategy.Credential(mode, req.Header)
	if credential == "" {
		return v.rejected(result, reject(StateReceived, ErrMissingCredential, "no credential header for "+string(mode)))
	}
	result.State = StateTokenExtracted

	webhook, err := v.registry.GetByID(ctx, req.WebhookID)
	if err != nil {
		return v.rejected(result, reject(StateTokenExtracted, ErrRegistryUnavailable, err.Error()))
	}
	if webhook == nil {
		return v.rejected(result, reject(StateTokenExtracted, ErrWebhookNotFound, "no such webhook"))
	}
	if !webhook.IsActive {
		return v.rejected(result, reject(StateTokenExtracted, ErrWebhookNotFound, "webhook is inactive"))
	}
	pc, ok := webhook.PlatformConfig[platform]
	if !ok {
		return v.rejected(result, reject(StateTokenExtracted, ErrWebhookNotFound, "platform "+platform+" not configured"))
	}
	result.OwnerID = webhook.UserID

	packed := pc.WebhookToken
	if mode == AuthModeHMACSignature {
		packed = pc.SigningSecret
	}
	if packed == "" {
		return v.rejected(result, reject(StateTokenExtracted, ErrSecretUnavailable, "no stored secret for "+string(mode)))
	}
	secret, err := v.secrets.DecryptContext(ctx, packed)
	if err != nil {
		return v.rejected(result, reject(StateTokenExtracted, ErrSecretUnavailable, err.Error()))
	}
	result.State = StateSecretLoaded

	var authentic bool
	if mode == AuthModeHMACSignature {
		authentic = security.Verify(req.Body, credential, secret)
	} else {
		authentic = security.TokensEqual(credential, secret)
	}
	if !authentic {
		return v.rejected(result, reject(StateSecretLoaded, ErrAuthenticationFailed, string(mode)+" mismatch"))
	}
	result.State = StateSignatureChecked

	event, err := decodeEvent(req.Body)
	if err != nil {
		return v.rejected(result, reject(StateSignatureChecked, ErrInvalidPayload, err.Error()))
	}

	if v.usage != nil {
		allowed, err := v.usage.Allow(ctx, webhook.UserID)
		if err != nil {
			return v.rejected(result, reject(StateSignatureChecked, ErrRegistryUnavailable, "usage lookup: "+err.Error()))
		}
		if !allowed {
			return v.rejected(result, reject(StateSignatureChecked, ErrUsageLimitExceeded, "user "+webhook.UserID))
		}
	}

	result.Notifications = v.notifier.Dispatch(ctx, webhook, platform, event)
	result.State = StateDispatched

	if v.usage != nil {
		// Counting happens after dispatch; a failed counter write does not undo delivery.
		if err := v.usage.Record(context.WithoutCancel(ctx), webhook.UserID); err != nil {
			log.Warn().Err(err).Str("webhook_id", webhook.ID).Msg("failed to record usage")
		}
	}
	return result, nil
}

func (v *Verifier) rejected(result *Result, err *RejectionError) (*Result, error) {
	result.State = StateRejected
	return result, err
}

func decodeEvent(body []byte) (map[string]interface{}, error) {
	var event map[string]interface{}
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	if event == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return event, nil
}
