package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookflo/internal/platform/models"
)

func TestNotificationLogRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	wh := newWebhook("user_1")
	require.NoError(t, NewWebhookRepository(db).Create(ctx, wh))

	logs := NewNotificationLogRepository(db)
	require.NoError(t, logs.Create(ctx, &models.NotificationLog{
		WebhookID: wh.ID, UserID: "user_1", Platform: "stripe",
		Channel: models.ChannelEmail, Status: models.DeliveryStatusSent, CreatedAt: 100,
	}))
	require.NoError(t, logs.Create(ctx, &models.NotificationLog{
		WebhookID: wh.ID, UserID: "user_1", Platform: "stripe",
		Channel: models.ChannelSlack, Status: models.DeliveryStatusFailed, Error: "HTTP 500", CreatedAt: 200,
	}))

	got, err := logs.ListByWebhook(ctx, wh.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ChannelSlack, got[0].Channel)
	assert.Equal(t, "HTTP 500", got[0].Error)
	assert.Empty(t, got[1].Error)

	n, err := logs.DeleteCreatedBefore(ctx, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err = logs.ListByWebhook(ctx, wh.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ChannelSlack, got[0].Channel)
}

func TestTemplateRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(setupTestDB(t))

	missing, err := repo.GetCustomization(ctx, "user_1", "generic")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpsertCustomization(ctx, &models.TemplateCustomization{UserID: "user_1", TemplateID: "generic", Patch: `{"subject":"a"}`}))
	require.NoError(t, repo.UpsertCustomization(ctx, &models.TemplateCustomization{UserID: "user_1", TemplateID: "generic", Patch: `{"subject":"b"}`}))

	got, err := repo.GetCustomization(ctx, "user_1", "generic")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"subject":"b"}`, got.Patch)
}

func TestUsageRepository_IncrementAndPrune(t *testing.T) {
	ctx := context.Background()
	repo := NewUsageRepository(setupTestDB(t))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Increment(ctx, "user_1", "day", "2026-10-16"))
	}
	count, err := repo.Get(ctx, "user_1", "day", "2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = repo.Get(ctx, "user_2", "day", "2026-10-16")
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, repo.Increment(ctx, "user_1", "day", "2026-09-30"))
	require.NoError(t, repo.Increment(ctx, "user_1", "month", "2026-09"))
	require.NoError(t, repo.Increment(ctx, "user_1", "month", "2026-10"))

	removed, err := repo.DeletePeriodsBefore(ctx, "2026-10-16", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	count, err = repo.Get(ctx, "user_1", "day", "2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	count, err = repo.Get(ctx, "user_1", "month", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
