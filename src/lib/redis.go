package lib

import (
	"context"
	"encoding/json"
	"errors"
	"fms/src/models"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient(redisURL string) *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// CatalogCache keeps a snapshot of each restaurant's menu. The snapshot is
// only used to resolve names; stock is always re-read inside the order
// transaction.
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{rdb: rdb, ttl: ttl}
}

func menuKey(restaurantID string) string {
	return "menu:" + restaurantID
}

// GetMenu reports a miss as ok=false with a nil error.
func (c *CatalogCache) GetMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, bool, error) {
	val, err := c.rdb.Get(ctx, menuKey(restaurantID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []models.MenuItem
	if err := json.Unmarshal([]byte(val), &items); err != nil {
		log.Printf("[CatalogCache] dropping corrupt snapshot for %s: %s\n", restaurantID, err.Error())
		return nil, false, nil
	}
	return items, true, nil
}

func (c *CatalogCache) SetMenu(ctx context.Context, restaurantID string, items []models.MenuItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, menuKey(restaurantID), string(raw), c.ttl).Err()
}

func (c *CatalogCache) Invalidate(ctx context.Context, restaurantID string) error {
	return c.rdb.Del(ctx, menuKey(restaurantID)).Err()
}
