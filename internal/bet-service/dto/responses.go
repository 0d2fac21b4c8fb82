package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type BetResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Market    string          `json:"market"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
	Status    string          `json:"status"`
	Payout    decimal.Decimal `json:"payout"`
	CreatedAt time.Time       `json:"created_at"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}
