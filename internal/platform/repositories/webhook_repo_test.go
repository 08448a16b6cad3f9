package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookflo/internal/platform/config"
	"hookflo/internal/platform/database"
	"hookflo/internal/platform/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenAndMigrate(context.Background(), config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newWebhook(userID string) *models.Webhook {
	return &models.Webhook{
		UserID:      userID,
		Name:        "payments",
		IsActive:    true,
		NotifyEmail: true,
		PlatformConfig: map[string]models.PlatformConfig{
			"stripe": {WebhookID: "we_1", SigningSecret: `{"encrypted":"x"}`},
		},
		NotificationConfig: models.NotificationConfig{
			Email: &models.EmailNotificationConfig{To: []string{"ops@example.com"}, TemplateID: "stripe-payment"},
		},
	}
}

func TestWebhookRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookRepository(setupTestDB(t))

	wh := newWebhook("user_1")
	require.NoError(t, repo.Create(ctx, wh))
	assert.NotEmpty(t, wh.ID)
	assert.NotZero(t, wh.CreatedAt)

	fetched, err := repo.GetByID(ctx, wh.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)

	assert.Equal(t, "user_1", fetched.UserID)
	assert.True(t, fetched.IsActive)
	assert.True(t, fetched.NotifyEmail)
	assert.False(t, fetched.NotifySlack)
	assert.Equal(t, wh.PlatformConfig, fetched.PlatformConfig)
	require.NotNil(t, fetched.NotificationConfig.Email)
	assert.Equal(t, []string{"ops@example.com"}, fetched.NotificationConfig.Email.To)
	assert.Nil(t, fetched.NotificationConfig.Slack)
}

func TestWebhookRepository_GetMissing(t *testing.T) {
	repo := NewWebhookRepository(setupTestDB(t))

	fetched, err := repo.GetByID(context.Background(), "wh_missing")
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestWebhookRepository_SetPlatformConfig(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookRepository(setupTestDB(t))

	wh := newWebhook("user_1")
	wh.PlatformConfig["custom"] = models.PlatformConfig{WebhookToken: "original"}
	require.NoError(t, repo.Create(ctx, wh))

	require.NoError(t, repo.SetPlatformConfig(ctx, wh.ID, "stripe", models.PlatformConfig{WebhookID: "we_1", SigningSecret: "rotated"}))

	fetched, err := repo.GetByID(ctx, wh.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", fetched.PlatformConfig["stripe"].SigningSecret)
	assert.Equal(t, "original", fetched.PlatformConfig["custom"].WebhookToken)

	err = repo.SetPlatformConfig(ctx, wh.ID, "github", models.PlatformConfig{SigningSecret: "new"})
	assert.ErrorIs(t, err, sql.ErrNoRows, "unconfigured platform is not added")

	err = repo.SetPlatformConfig(ctx, "wh_missing", "stripe", models.PlatformConfig{})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWebhookRepository_SetPlatformConfigConcurrentPlatforms(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookRepository(setupTestDB(t))

	wh := newWebhook("user_1")
	platforms := []string{"stripe", "custom", "supabase", "github"}
	for _, p := range platforms {
		wh.PlatformConfig[p] = models.PlatformConfig{WebhookToken: "old"}
	}
	require.NoError(t, repo.Create(ctx, wh))

	var wg sync.WaitGroup
	errs := make(chan error, len(platforms))
	for _, p := range platforms {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			errs <- repo.SetPlatformConfig(ctx, wh.ID, platform, models.PlatformConfig{WebhookToken: "new-" + platform})
		}(p)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	fetched, err := repo.GetByID(ctx, wh.ID)
	require.NoError(t, err)
	for _, p := range platforms {
		assert.Equal(t, "new-"+p, fetched.PlatformConfig[p].WebhookToken, p)
	}
}

func TestWebhookRepository_DeleteCascadesLogs(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewWebhookRepository(db)
	logs := NewNotificationLogRepository(db)

	wh := newWebhook("user_1")
	require.NoError(t, repo.Create(ctx, wh))
	require.NoError(t, logs.Create(ctx, &models.NotificationLog{
		WebhookID: wh.ID, UserID: "user_1", Platform: "stripe",
		Channel: models.ChannelEmail, Status: models.DeliveryStatusSent,
	}))

	require.NoError(t, repo.Delete(ctx, wh.ID))

	remaining, err := logs.ListByWebhook(ctx, wh.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.ErrorIs(t, repo.Delete(ctx, wh.ID), sql.ErrNoRows)
}

func TestWebhookRepository_GetPropagatesDBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM webhooks WHERE id = ?").
		WithArgs("wh_1").
		WillReturnError(errors.New("disk I/O error"))

	repo := NewWebhookRepository(db)
	fetched, err := repo.GetByID(context.Background(), "wh_1")
	assert.Error(t, err)
	assert.Nil(t, fetched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRepository_GetRejectsCorruptConfig(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "url", "platform_config", "is_active", "notify_email", "notify_slack", "notification_config", "created_at", "updated_at"}).
		AddRow("wh_1", "user_1", "n", "", "not-json", true, false, false, "{}", 1, 1)
	mock.ExpectQuery("SELECT (.+) FROM webhooks WHERE id = ?").WithArgs("wh_1").WillReturnRows(rows)

	_, err = NewWebhookRepository(db).GetByID(context.Background(), "wh_1")
	assert.Error(t, err)
}
