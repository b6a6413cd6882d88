package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stash-it/backend/internal/config"
	"github.com/stash-it/backend/internal/model"
)

// Cache wraps the Redis client used for the token denylist and the
// product read-through cache. All methods are safe to call with a nil
// receiver so the API can come up before Redis does.
type Cache struct {
	rdb *redis.Client
}

const productTTL = 5 * time.Minute

func New(cfg *config.Config) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return &Cache{rdb: rdb}
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return errors.New("redis not configured")
	}
	return c.rdb.Ping(ctx).Err()
}

func denyKey(jti string) string {
	return "denylist:" + jti
}

// DenyToken records a token id until its natural expiry, after which the
// key is pointless and allowed to lapse.
func (c *Cache) DenyToken(ctx context.Context, jti string, until time.Time) error {
	if c == nil || c.rdb == nil {
		return errors.New("redis not configured")
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, denyKey(jti), "1", ttl).Err()
}

// TokenDenied reports whether jti has been denylisted. A Redis error is
// treated as not-denied: a dead cache must not lock every user out.
func (c *Cache) TokenDenied(ctx context.Context, jti string) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	n, err := c.rdb.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func productKey(id uint64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *Cache) GetProduct(ctx context.Context, id uint64) (*model.Product, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var p model.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *Cache) SetProduct(ctx context.Context, p *model.Product) {
	if c == nil || c.rdb == nil || p == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, productKey(p.ID), raw, productTTL).Err()
}

func (c *Cache) InvalidateProduct(ctx context.Context, id uint64) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, productKey(id)).Err()
}
