package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"hookflo/internal/platform/models"
)

type NotificationLogRepository struct {
	db *sql.DB
}

func NewNotificationLogRepository(db *sql.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) Create(ctx context.Context, entry *models.NotificationLog) error {
	if entry.ID == "" {
		entry.ID = "log_" + uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_logs (id, webhook_id, user_id, platform, channel, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.WebhookID, entry.UserID, entry.Platform, entry.Channel, entry.Status, nullableString(entry.Error), entry.CreatedAt)
	return err
}

func (r *NotificationLogRepository) ListByWebhook(ctx context.Context, webhookID string, limit int) ([]*models.NotificationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, webhook_id, user_id, platform, channel, status, error, created_at
		FROM notification_logs WHERE webhook_id = ? ORDER BY created_at DESC, id LIMIT ?
	`, webhookID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.NotificationLog
	for rows.Next() {
		var l models.NotificationLog
		var errStr sql.NullString
		if err := rows.Scan(&l.ID, &l.WebhookID, &l.UserID, &l.Platform, &l.Channel, &l.Status, &errStr, &l.CreatedAt); err != nil {
			return nil, err
		}
		if errStr.Valid {
			l.Error = errStr.String
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// DeleteCreatedBefore drops delivery logs older than the unix time before.
func (r *NotificationLogRepository) DeleteCreatedBefore(ctx context.Context, before int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notification_logs WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// GetCustomization returns nil, nil when the user has not customized the template.
func (r *TemplateRepository) GetCustomization(ctx context.Context, userID, templateID string) (*models.TemplateCustomization, error) {
	c := &models.TemplateCustomization{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, template_id, patch, updated_at
		FROM template_customizations WHERE user_id = ? AND template_id = ?
	`, userID, templateID).Scan(&c.UserID, &c.TemplateID, &c.Patch, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *TemplateRepository) UpsertCustomization(ctx context.Context, c *models.TemplateCustomization) error {
	c.UpdatedAt = time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO template_customizations (user_id, template_id, patch, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, template_id) DO UPDATE SET patch = excluded.patch, updated_at = excluded.updated_at
	`, c.UserID, c.TemplateID, c.Patch, c.UpdatedAt)
	return err
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
