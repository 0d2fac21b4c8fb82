package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding é a posição consolidada de um usuário em um símbolo
type Holding struct {
	UserID    string
	Symbol    string
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}
