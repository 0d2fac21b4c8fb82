package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Evento publicado no tópico "market_ticks"
type MarketTick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`  // "feed-simulator"
	Version   int             `json:"version"` // incrementado a cada atualização
}
