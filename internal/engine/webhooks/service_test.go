package webhooks

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookflo/internal/platform/config"
	"hookflo/internal/platform/models"
)

func newService(t *testing.T, f *fixture) *Service {
	t.Helper()
	strategy, err := NewStrategy(config.WebhooksConfig{})
	require.NoError(t, err)
	return NewService(f.store, f.encryptor, strategy)
}

func TestServiceCreateIssuesSecretsOnce(t *testing.T) {
	f := newFixture(t)
	svc := newService(t, f)

	created, err := svc.Create(context.Background(), CreateRequest{
		UserID:    "user_1",
		Name:      "payments",
		URL:       "https://example.com/hook",
		Platforms: []string{"custom", "stripe"},
	})
	require.NoError(t, err)
	require.Len(t, created.Secrets, 2)

	stored := f.store.webhooks[created.Webhook.ID]
	require.NotNil(t, stored)
	assert.True(t, stored.IsActive)

	custom := stored.PlatformConfig["custom"]
	assert.NotEmpty(t, custom.WebhookToken)
	assert.Empty(t, custom.SigningSecret)
	assert.NotContains(t, custom.WebhookToken, created.Secrets[0].Secret)

	stripe := stored.PlatformConfig["stripe"]
	assert.Empty(t, stripe.WebhookToken)
	assert.NotEmpty(t, stripe.SigningSecret)
	assert.Equal(t, AuthModeHMACSignature, created.Secrets[1].AuthMode)

	assert.Equal(t, "[redacted]", created.Webhook.PlatformConfig["custom"].WebhookToken)

	// The issued token verifies end to end.
	res, err := f.verifier.Verify(context.Background(), Request{
		WebhookID: created.Webhook.ID,
		Header:    tokenHeader(created.Secrets[0].Secret),
		Body:      []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, StateDispatched, res.State)
}

func TestServiceCreateValidation(t *testing.T) {
	f := newFixture(t)
	svc := newService(t, f)

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"no owner", CreateRequest{Name: "x", Platforms: []string{"custom"}}},
		{"no name", CreateRequest{UserID: "u", Platforms: []string{"custom"}}},
		{"no platforms", CreateRequest{UserID: "u", Name: "x"}},
		{"bad platform", CreateRequest{UserID: "u", Name: "x", Platforms: []string{"Stripe!"}}},
		{"duplicate platform", CreateRequest{UserID: "u", Name: "x", Platforms: []string{"custom", "custom"}}},
		{"bad url", CreateRequest{UserID: "u", Name: "x", URL: "ftp://x", Platforms: []string{"custom"}}},
		{"email without recipients", CreateRequest{UserID: "u", Name: "x", Platforms: []string{"custom"}, NotifyEmail: true}},
		{"bad recipient", CreateRequest{
			UserID: "u", Name: "x", Platforms: []string{"custom"}, NotifyEmail: true,
			NotificationConfig: models.NotificationConfig{Email: &models.EmailNotificationConfig{To: []string{"nobody"}}},
		}},
		{"slack without url", CreateRequest{UserID: "u", Name: "x", Platforms: []string{"custom"}, NotifySlack: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, http.StatusBadRequest, StatusFor(err))
		})
	}
	assert.Empty(t, f.store.webhooks)
}

func TestServiceRotateSecret(t *testing.T) {
	f := newFixture(t)
	svc := newService(t, f)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{UserID: "user_1", Name: "x", Platforms: []string{"custom", "github"}})
	require.NoError(t, err)
	id := created.Webhook.ID
	oldToken := created.Secrets[0].Secret
	githubBefore := f.store.webhooks[id].PlatformConfig["github"]

	rotated, err := svc.RotateSecret(ctx, "user_1", id, "custom")
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, rotated.Secret)
	assert.Equal(t, githubBefore, f.store.webhooks[id].PlatformConfig["github"], "other platforms untouched")

	_, err = f.verifier.Verify(ctx, Request{WebhookID: id, Header: tokenHeader(oldToken), Body: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrAuthenticationFailed, "old secret stops working")

	_, err = f.verifier.Verify(ctx, Request{WebhookID: id, Header: tokenHeader(rotated.Secret), Body: []byte(`{}`)})
	assert.NoError(t, err)

	_, err = svc.RotateSecret(ctx, "user_2", id, "custom")
	assert.ErrorIs(t, err, ErrWebhookNotFound)

	_, err = svc.RotateSecret(ctx, "user_1", id, "clerk")
	assert.ErrorIs(t, err, ErrPlatformNotConfigured)
}

// slowStore delays reads so concurrent rotations overlap their read and write.
type slowStore struct {
	*memoryStore
	delay time.Duration
}

func (s *slowStore) GetByID(ctx context.Context, id string) (*models.Webhook, error) {
	time.Sleep(s.delay)
	return s.memoryStore.GetByID(ctx, id)
}

func TestServiceConcurrentRotationsAllPersist(t *testing.T) {
	f := newFixture(t)
	strategy, err := NewStrategy(config.WebhooksConfig{})
	require.NoError(t, err)
	svc := NewService(&slowStore{memoryStore: f.store, delay: 20 * time.Millisecond}, f.encryptor, strategy)
	ctx := context.Background()

	platforms := []string{"custom", "supabase"}
	created, err := svc.Create(ctx, CreateRequest{UserID: "user_1", Name: "x", Platforms: platforms})
	require.NoError(t, err)
	id := created.Webhook.ID

	var wg sync.WaitGroup
	rotated := make([]*IssuedSecret, len(platforms))
	errs := make([]error, len(platforms))
	for i, p := range platforms {
		wg.Add(1)
		go func(i int, platform string) {
			defer wg.Done()
			rotated[i], errs[i] = svc.RotateSecret(ctx, "user_1", id, platform)
		}(i, p)
	}
	wg.Wait()

	for i, p := range platforms {
		require.NoError(t, errs[i], p)
		_, err := f.verifier.Verify(ctx, Request{WebhookID: id, Platform: p, Header: tokenHeader(rotated[i].Secret), Body: []byte(`{}`)})
		assert.NoError(t, err, "rotated %s secret verifies", p)

		_, err = f.verifier.Verify(ctx, Request{WebhookID: id, Platform: p, Header: tokenHeader(created.Secrets[i].Secret), Body: []byte(`{}`)})
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "original %s secret is retired", p)
	}
}

// vanishingStore reports the platform gone at write time, as when it is
// removed between the ownership read and the rotation write.
type vanishingStore struct {
	*memoryStore
}

func (s *vanishingStore) SetPlatformConfig(ctx context.Context, id, platform string, pc models.PlatformConfig) error {
	return sql.ErrNoRows
}

func TestServiceRotatePlatformRemovedBeforeWrite(t *testing.T) {
	f := newFixture(t)
	strategy, err := NewStrategy(config.WebhooksConfig{})
	require.NoError(t, err)
	svc := NewService(&vanishingStore{memoryStore: f.store}, f.encryptor, strategy)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{UserID: "user_1", Name: "x", Platforms: []string{"custom"}})
	require.NoError(t, err)

	_, err = svc.RotateSecret(ctx, "user_1", created.Webhook.ID, "custom")
	assert.ErrorIs(t, err, ErrPlatformNotConfigured)
	assert.Equal(t, http.StatusNotFound, StatusFor(err))
}

func TestServiceGetRedacts(t *testing.T) {
	f := newFixture(t)
	svc := newService(t, f)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{UserID: "user_1", Name: "x", Platforms: []string{"stripe"}})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "user_1", created.Webhook.ID)
	require.NoError(t, err)
	assert.Equal(t, "[redacted]", got.PlatformConfig["stripe"].SigningSecret)
	assert.NotEqual(t, "[redacted]", f.store.webhooks[created.Webhook.ID].PlatformConfig["stripe"].SigningSecret)

	_, err = svc.Get(ctx, "user_2", created.Webhook.ID)
	assert.ErrorIs(t, err, ErrWebhookNotFound)
}
