package models

// PlatformConfig is the per-platform entry inside a webhook's platform_config
// column. Exactly one of WebhookToken or SigningSecret is set, always in the
// packed encrypted form.
type PlatformConfig struct {
	WebhookID     string `json:"webhook_id"`
	WebhookToken  string `json:"webhook_token,omitempty"`
	SigningSecret string `json:"signing_secret,omitempty"`
}

type EmailNotificationConfig struct {
	From       string   `json:"from,omitempty"`
	To         []string `json:"to"`
	TemplateID string   `json:"template_id,omitempty"`
}

type SlackNotificationConfig struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

type NotificationConfig struct {
	Email *EmailNotificationConfig `json:"email,omitempty"`
	Slack *SlackNotificationConfig `json:"slack,omitempty"`
}

type Webhook struct {
	ID                 string                    `json:"id"`
	UserID             string                    `json:"user_id"`
	Name               string                    `json:"name"`
	URL                string                    `json:"url"`
	PlatformConfig     map[string]PlatformConfig `json:"platform_config"` // JSON object in DB
	IsActive           bool                      `json:"is_active"`
	NotifyEmail        bool                      `json:"notify_email"`
	NotifySlack        bool                      `json:"notify_slack"`
	NotificationConfig NotificationConfig        `json:"notification_config"` // JSON object in DB
	CreatedAt          int64                     `json:"created_at"`
	UpdatedAt          int64                     `json:"updated_at"`
}

// Redacted returns a copy safe to hand back to API callers.
func (w *Webhook) Redacted() *Webhook {
	out := *w
	out.PlatformConfig = make(map[string]PlatformConfig, len(w.PlatformConfig))
	for name, pc := range w.PlatformConfig {
		if pc.WebhookToken != "" {
			pc.WebhookToken = "[redacted]"
		}
		if pc.SigningSecret != "" {
			pc.SigningSecret = "[redacted]"
		}
		out.PlatformConfig[name] = pc
	}
	return &out
}
