package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de transação do ledger. O sinal do amount é fixo por tipo:
// créditos positivos (deposit, bet_settlement), débitos negativos
// (withdrawal, bet_stake).
const (
	KindDeposit       = "deposit"
	KindWithdrawal    = "withdrawal"
	KindBetStake      = "bet_stake"
	KindBetSettlement = "bet_settlement"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction é imutável depois de atingir status terminal.
type Transaction struct {
	ID        string
	UserID    string
	Kind      string
	Amount    decimal.Decimal
	Status    string
	Reference string
	CreatedAt time.Time
}
