package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stockbet/stockbet-platform/pkg/contracts/events"
)

// RedisCache encapsula o cache de preço corrente por símbolo no Redis
// Client: cliente Redis
// TTL: tempo de expiração dos registros
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache cria uma instância de cache Redis com TTL configurável
func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

// key gera a chave Redis do preço corrente de um símbolo
func key(symbol string) string { return "price:current:" + symbol }

// SetCurrent armazena o preço corrente como string decimal ("187.45"),
// formato lido pelo validador de apostas
func (r *RedisCache) SetCurrent(ctx context.Context, e events.MarketTick) error {
	return r.Client.Set(ctx, key(e.Symbol), e.Price.String(), r.TTL).Err()
}
