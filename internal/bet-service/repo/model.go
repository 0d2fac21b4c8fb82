package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

const (
	StatusActive    = "active"
	StatusWon       = "won"
	StatusLost      = "lost"
	StatusCancelled = "cancelled"
)

// Bet é o modelo persistido no Postgres.
type Bet struct {
	ID        string
	UserID    string
	Market    string
	Amount    decimal.Decimal
	Direction string
	Status    string
	Payout    decimal.Decimal // zero enquanto ativa; preenchido em won/cancelled
	CreatedAt time.Time
	SettledAt *time.Time
}
