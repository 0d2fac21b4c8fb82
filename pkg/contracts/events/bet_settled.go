package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Evento emitido pelo settlement-worker (ou pelo endpoint manual de settle)
// após liquidar uma aposta.
type BetSettled struct {
	BetID  string          `json:"betId"`
	UserID string          `json:"userId"`
	Market string          `json:"market"`
	Status string          `json:"status"` // "won" | "lost" | "cancelled"
	Payout decimal.Decimal `json:"payout"`
	Ts     time.Time       `json:"ts"`
}
