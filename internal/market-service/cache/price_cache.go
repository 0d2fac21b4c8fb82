package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

const keySnapshot = "market:snapshot"

func (c *Cache) GetSnapshot(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keySnapshot).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetSnapshot(ctx context.Context, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keySnapshot, b, ttl).Err()
}

func (c *Cache) InvalidateSnapshot(ctx context.Context) error {
	return c.R.Del(ctx, keySnapshot).Err()
}

const keyCurrentPrefix = "price:current:"

// SetCurrentPrice grava o preço corrente por símbolo, na mesma chave que o
// processor mantém e que a validação de mercado das apostas lê. ttl 0 = sem
// expiração (tick manual pode ser o único preço que o símbolo terá).
func (c *Cache) SetCurrentPrice(ctx context.Context, symbol, price string, ttl time.Duration) error {
	return c.R.Set(ctx, keyCurrentPrefix+symbol, price, ttl).Err()
}
