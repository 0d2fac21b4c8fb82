package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type UpsertHoldingRequest struct {
	Symbol string          `json:"symbol"`
	Delta  decimal.Decimal `json:"delta"` // positivo credita, negativo debita
}

type HoldingResponse struct {
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
}
