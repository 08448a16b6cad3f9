package webhooks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hookflo/internal/engine/security"
	"hookflo/internal/pkg/validator"
	"hookflo/internal/platform/models"
)

type Store interface {
	Registry
	Create(ctx context.Context, webhook *models.Webhook) error
	// SetPlatformConfig replaces one platform's entry atomically and returns
	// sql.ErrNoRows when the webhook or the platform entry no longer exists.
	SetPlatformConfig(ctx context.Context, id, platform string, pc models.PlatformConfig) error
}

type SecretSealer interface {
	EncryptContext(ctx context.Context, plaintext string) (string, error)
}

type CreateRequest struct {
	UserID             string                    `json:"-"`
	Name               string                    `json:"name"`
	URL                string                    `json:"url"`
	Platforms          []string                  `json:"platforms"`
	NotifyEmail        bool                      `json:"notify_email"`
	NotifySlack        bool                      `json:"notify_slack"`
	NotificationConfig models.NotificationConfig `json:"notification_config"`
}

// IssuedSecret is a plaintext credential handed to the owner. It is never stored
// in this form and cannot be retrieved again.
type IssuedSecret struct {
	Platform  string   `json:"platform"`
	WebhookID string   `json:"webhook_id"`
	AuthMode  AuthMode `json:"auth_mode"`
	Secret    string   `json:"secret"`
}

type Created struct {
	Webhook *models.Webhook `json:"webhook"`
	Secrets []IssuedSecret  `json:"secrets"`
}

// Service manages the secret lifecycle: issue on create, overwrite on rotate.
type Service struct {
	store    Store
	sealer   SecretSealer
	strategy *Strategy
	generate func() string
}

func NewService(store Store, sealer SecretSealer, strategy *Strategy) *Service {
	return &Service{
		store:    store,
		sealer:   sealer,
		strategy: strategy,
		generate: security.GenerateSecret,
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	webhook := &models.Webhook{
		ID:                 "wh_" + uuid.New().String(),
		UserID:             req.UserID,
		Name:               req.Name,
		URL:                req.URL,
		PlatformConfig:     make(map[string]models.PlatformConfig, len(req.Platforms)),
		IsActive:           true,
		NotifyEmail:        req.NotifyEmail,
		NotifySlack:        req.NotifySlack,
		NotificationConfig: req.NotificationConfig,
	}

	issued := make([]IssuedSecret, 0, len(req.Platforms))
	for _, platform := range req.Platforms {
		if _, dup := webhook.PlatformConfig[platform]; dup {
			return nil, fmt.Errorf("%w: platform %q listed twice", ErrInvalidRequest, platform)
		}
		pc, secret, err := s.issue(ctx, webhook.ID, platform)
		if err != nil {
			return nil, err
		}
		webhook.PlatformConfig[platform] = pc
		issued = append(issued, secret)
	}

	if err := s.store.Create(ctx, webhook); err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}

	return &Created{Webhook: webhook.Redacted(), Secrets: issued}, nil
}

// RotateSecret replaces the platform's secret. The previous value is discarded
// and stops verifying immediately. Only the rotated platform's entry is written,
// so concurrent rotations of different platforms on one webhook all persist.
func (s *Service) RotateSecret(ctx context.Context, ownerID, webhookID, platform string) (*IssuedSecret, error) {
	webhook, err := s.owned(ctx, ownerID, webhookID)
	if err != nil {
		return nil, err
	}
	if _, ok := webhook.PlatformConfig[platform]; !ok {
		return nil, ErrPlatformNotConfigured
	}

	pc, secret, err := s.issue(ctx, webhook.ID, platform)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetPlatformConfig(ctx, webhook.ID, platform, pc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlatformNotConfigured
		}
		return nil, fmt.Errorf("rotate secret: %w", err)
	}
	return &secret, nil
}

// Get returns the owner's webhook with every stored secret redacted.
func (s *Service) Get(ctx context.Context, ownerID, webhookID string) (*models.Webhook, error) {
	webhook, err := s.owned(ctx, ownerID, webhookID)
	if err != nil {
		return nil, err
	}
	return webhook.Redacted(), nil
}

func (s *Service) owned(ctx context.Context, ownerID, webhookID string) (*models.Webhook, error) {
	webhook, err := s.store.GetByID(ctx, webhookID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	// Someone else's webhook looks exactly like a missing one.
	if webhook == nil || webhook.UserID != ownerID {
		return nil, ErrWebhookNotFound
	}
	return webhook, nil
}

// issue generates and seals a fresh secret for platform. The mode decides which
// field of the platform entry holds it; the other field is left empty.
func (s *Service) issue(ctx context.Context, webhookID, platform string) (models.PlatformConfig, IssuedSecret, error) {
	mode := s.strategy.ModeFor(platform)
	plaintext := s.generate()

	sealed, err := s.sealer.EncryptContext(ctx, plaintext)
	if err != nil {
		return models.PlatformConfig{}, IssuedSecret{}, fmt.Errorf("seal %s secret: %w", platform, err)
	}

	pc := models.PlatformConfig{WebhookID: webhookID}
	if mode == AuthModeHMACSignature {
		pc.SigningSecret = sealed
	} else {
		pc.WebhookToken = sealed
	}
	return pc, IssuedSecret{Platform: platform, WebhookID: webhookID, AuthMode: mode, Secret: plaintext}, nil
}

func validateCreate(req CreateRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if req.URL != "" {
		if err := validator.WebhookURL(req.URL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if len(req.Platforms) == 0 {
		return fmt.Errorf("%w: at least one platform is required", ErrInvalidRequest)
	}
	for _, p := range req.Platforms {
		if err := validator.PlatformName(p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	cfg := req.NotificationConfig
	if req.NotifyEmail {
		if cfg.Email == nil || len(cfg.Email.To) == 0 {
			return fmt.Errorf("%w: email notifications need at least one recipient", ErrInvalidRequest)
		}
		for _, to := range cfg.Email.To {
			if err := validator.Email(to); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidRequest, to, err)
			}
		}
	}
	if req.NotifySlack {
		if cfg.Slack == nil {
			return fmt.Errorf("%w: slack notifications need a webhook url", ErrInvalidRequest)
		}
		if err := validator.WebhookURL(cfg.Slack.WebhookURL); err != nil {
			return fmt.Errorf("%w: slack: %v", ErrInvalidRequest, err)
		}
	}
	return nil
}
