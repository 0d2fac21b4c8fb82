package market

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Validator struct {
	Rdb *redis.Client
}

func NewValidator(r *redis.Client) *Validator { return &Validator{Rdb: r} }

// Espera chave "price:current:{symbol}" => valor string com preço, ex: "187.45"
func (v *Validator) CurrentPrice(ctx context.Context, symbol string) (string, error) {
	key := fmt.Sprintf("price:current:%s", symbol)
	val, err := v.Rdb.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}
