package models

const (
	ChannelEmail = "email"
	ChannelSlack = "slack"

	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// NotificationLog records one delivery attempt on one channel.
type NotificationLog struct {
	ID        string `json:"id"`
	WebhookID string `json:"webhook_id"`
	UserID    string `json:"user_id"`
	Platform  string `json:"platform"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt int64  `json:"created_at"`
}
