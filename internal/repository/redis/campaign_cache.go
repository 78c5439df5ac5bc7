package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"myGreenInsight/business/attribution"
	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const campaignDirectoryKey = "campaigns:directory"

// cacheClient is the slice of the redis client the cache needs.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type campaignEntry struct {
	Campaigns []domain.Campaign `json:"campaigns"`
	CachedAt  time.Time         `json:"cached_at"`
}

// CampaignCache is a read-through cache in front of the campaign
// directory. Redis failures fall back to the directory.
type CampaignCache struct {
	client cacheClient
	next   attribution.CampaignDirectory
	ttl    time.Duration
}

var (
	_ attribution.CampaignDirectory   = (*CampaignCache)(nil)
	_ attribution.CampaignInvalidator = (*CampaignCache)(nil)
)

func NewCampaignCache(client *redis.Client, next attribution.CampaignDirectory, ttl time.Duration) *CampaignCache {
	return newCampaignCache(client, next, ttl)
}

func newCampaignCache(client cacheClient, next attribution.CampaignDirectory, ttl time.Duration) *CampaignCache {
	return &CampaignCache{
		client: client,
		next:   next,
		ttl:    ttl,
	}
}

func (c *CampaignCache) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	val, err := c.client.Get(ctx, campaignDirectoryKey).Result()
	switch {
	case err == nil:
		var entry campaignEntry
		if err := json.Unmarshal([]byte(val), &entry); err == nil {
			return entry.Campaigns, nil
		}
		logger.Warn("discarding corrupt campaign cache entry", "key", campaignDirectoryKey)
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn("campaign cache read failed", "key", campaignDirectoryKey, "error", err)
	}

	campaigns, err := c.next.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(campaignEntry{Campaigns: campaigns, CachedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal campaign cache entry: %w", err)
	}
	if err := c.client.Set(ctx, campaignDirectoryKey, jsonData, c.ttl).Err(); err != nil {
		logger.Warn("campaign cache write failed", "key", campaignDirectoryKey, "error", err)
	}

	return campaigns, nil
}

// Invalidate drops the cached directory so the next read goes to the
// database.
func (c *CampaignCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, campaignDirectoryKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate campaign cache: %w", err)
	}
	return nil
}
