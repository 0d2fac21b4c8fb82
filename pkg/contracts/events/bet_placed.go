package events

import "github.com/shopspring/decimal"

type BetPlaced struct {
	BetID     string          `json:"bet_id"`
	UserID    string          `json:"user_id"`
	Market    string          `json:"market"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"` // "up" | "down"
	StakeRef  string          `json:"stake_ref"` // referência da transação de stake no ledger
	TsUnixMs  int64           `json:"ts_unix_ms"`
}
