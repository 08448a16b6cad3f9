package repositories

import (
	"context"
	"sync"
	"time"

	"hookflo/internal/platform/models"
)

type cachedWebhook struct {
	webhook  *models.Webhook
	cachedAt time.Time
}

// CachedWebhookRepository keeps recently read webhook rows in memory for ttl.
// Secrets stay in their packed encrypted form. Writes made through this
// repository evict the row, and a read that overlapped such a write is not
// cached, so the rotating process never serves the replaced secret.
type CachedWebhookRepository struct {
	*WebhookRepository
	store sync.Map // map[webhook_id]*cachedWebhook
	ttl   time.Duration
	now   func() time.Time
	load  func(ctx context.Context, id string) (*models.Webhook, error)

	mu  sync.Mutex
	gen uint64 // bumped by every eviction
}

func NewCachedWebhookRepository(repo *WebhookRepository, ttl time.Duration) *CachedWebhookRepository {
	return &CachedWebhookRepository{WebhookRepository: repo, ttl: ttl, now: time.Now, load: repo.GetByID}
}

func (c *CachedWebhookRepository) GetByID(ctx context.Context, id string) (*models.Webhook, error) {
	if c.ttl <= 0 {
		return c.load(ctx, id)
	}

	if val, ok := c.store.Load(id); ok {
		entry := val.(*cachedWebhook)
		if c.now().Sub(entry.cachedAt) <= c.ttl {
			cp := *entry.webhook
			return &cp, nil
		}
		c.store.Delete(id)
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	webhook, err := c.load(ctx, id)
	if err != nil || webhook == nil {
		return webhook, err
	}

	c.mu.Lock()
	if c.gen == gen {
		cp := *webhook
		c.store.Store(id, &cachedWebhook{webhook: &cp, cachedAt: c.now()})
	}
	c.mu.Unlock()
	return webhook, nil
}

func (c *CachedWebhookRepository) SetPlatformConfig(ctx context.Context, id, platform string, pc models.PlatformConfig) error {
	defer c.evict(id)
	return c.WebhookRepository.SetPlatformConfig(ctx, id, platform, pc)
}

func (c *CachedWebhookRepository) Delete(ctx context.Context, id string) error {
	defer c.evict(id)
	return c.WebhookRepository.Delete(ctx, id)
}

func (c *CachedWebhookRepository) evict(id string) {
	c.mu.Lock()
	c.gen++
	c.store.Delete(id)
	c.mu.Unlock()
}
