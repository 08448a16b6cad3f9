package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"hookflo/internal/platform/models"
)

type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	if webhook.ID == "" {
		webhook.ID = "wh_" + uuid.New().String()
	}
	webhook.CreatedAt = time.Now().Unix()
	webhook.UpdatedAt = webhook.CreatedAt

	platformJSON, err := json.Marshal(webhook.PlatformConfig)
	if err != nil {
		return err
	}
	notificationJSON, err := json.Marshal(webhook.NotificationConfig)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhooks (id, user_id, name, url, platform_config, is_active, notify_email, notify_slack, notification_config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		webhook.ID, webhook.UserID, webhook.Name, webhook.URL, string(platformJSON),
		webhook.IsActive, webhook.NotifyEmail, webhook.NotifySlack, string(notificationJSON),
		webhook.CreatedAt, webhook.UpdatedAt)
	return err
}

// GetByID returns nil, nil when no webhook has the given id.
func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*models.Webhook, error) {
	query := `
		SELECT id, user_id, name, url, platform_config, is_active, notify_email, notify_slack, notification_config, created_at, updated_at
		FROM webhooks WHERE id = ?
	`
	var w models.Webhook
	var platformStr, notificationStr string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Name, &w.URL, &platformStr,
		&w.IsActive, &w.NotifyEmail, &w.NotifySlack, &notificationStr,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(platformStr), &w.PlatformConfig); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(notificationStr), &w.NotificationConfig); err != nil {
		return nil, err
	}
	if w.PlatformConfig == nil {
		w.PlatformConfig = map[string]models.PlatformConfig{}
	}

	return &w, nil
}

// SetPlatformConfig replaces the entry for one platform inside the platform
// config column in a single statement, leaving every other platform as stored.
// It returns sql.ErrNoRows when the webhook is gone or the platform is not
// configured on it. Previous secrets are not kept.
func (r *WebhookRepository) SetPlatformConfig(ctx context.Context, id, platform string, pc models.PlatformConfig) error {
	entryJSON, err := json.Marshal(pc)
	if err != nil {
		return err
	}

	path := platformPath(platform)
	res, err := r.db.ExecContext(ctx, `
		UPDATE webhooks
		SET platform_config = json_set(platform_config, ?, json(?)), updated_at = ?
		WHERE id = ? AND json_type(platform_config, ?) IS NOT NULL
	`, path, string(entryJSON), time.Now().Unix(), id, path)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// platformPath quotes the platform as a JSON path member.
func platformPath(platform string) string {
	return `$."` + strings.ReplaceAll(platform, `"`, `""`) + `"`
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
