package settlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	betrepo "github.com/stockbet/stockbet-platform/internal/bet-service/repo"
	"github.com/stockbet/stockbet-platform/pkg/contracts/events"
)

// BetStore define as operações de banco usadas pela liquidação
type BetStore interface {
	ListActiveByMarket(ctx context.Context, market string) ([]betrepo.Bet, error)
	Settle(ctx context.Context, betID, outcome string, payout decimal.Decimal) (*betrepo.Bet, bool, error)
}

type Publisher interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Engine liquida as apostas ativas de um mercado quando o feed publica a
// resolução. Apostas na direção vencedora recebem stake * Mult.
type Engine struct {
	Log  *zap.Logger
	Bets BetStore
	Publ Publisher
	Mult decimal.Decimal

	// DLQWrite envia a resolução para a DLQ após esgotar os retries (opcional)
	DLQWrite func(ctx context.Context, key string, payload []byte) error

	OnSettled func(status string) // métricas
	OnError   func()              // métricas
}

// Decide retorna o status final de uma aposta dado o outcome do mercado
func Decide(direction, outcome string) string {
	if direction == outcome {
		return betrepo.StatusWon
	}
	return betrepo.StatusLost
}

// Payout calcula o crédito de uma aposta vencedora
func (e *Engine) Payout(stake decimal.Decimal) decimal.Decimal {
	return stake.Mul(e.Mult).Round(2)
}

// ProcessResult liquida todas as apostas ativas do mercado resolvido.
// Cada aposta é liquidada com retry; falha persistente manda a resolução
// para a DLQ e segue para a próxima aposta. Reprocessar a mesma resolução
// é seguro: Settle é idempotente e não credita duas vezes.
func (e *Engine) ProcessResult(ctx context.Context, res events.MarketResult) error {
	bets, err := e.Bets.ListActiveByMarket(ctx, res.Market)
	if err != nil {
		if e.OnError != nil {
			e.OnError()
		}
		return err
	}

	for i := range bets {
		b := &bets[i]
		outcome := Decide(b.Direction, res.Outcome)

		payout := decimal.Zero
		if outcome == betrepo.StatusWon {
			payout = e.Payout(b.Amount)
		}

		settled, settledNow, err := e.settleWithRetry(ctx, b.ID, outcome, payout)
		if err != nil {
			e.Log.Error("settle failed", zap.String("bet_id", b.ID), zap.Error(err))
			if e.OnError != nil {
				e.OnError()
			}
			if e.DLQWrite != nil {
				payload, _ := json.Marshal(res)
				_ = e.DLQWrite(ctx, b.ID, payload)
			}
			continue
		}
		if !settledNow {
			// já liquidada por outra via (ex.: settle manual)
			continue
		}

		if e.OnSettled != nil {
			e.OnSettled(settled.Status)
		}

		if e.Publ != nil {
			if err := e.Publ.PublishBetSettled(ctx, events.BetSettled{
				BetID:  settled.ID,
				UserID: settled.UserID,
				Market: settled.Market,
				Status: settled.Status,
				Payout: settled.Payout,
			}); err != nil {
				e.Log.Warn("failed to publish bet_settled", zap.String("bet_id", settled.ID), zap.Error(err))
			}
		}
	}
	return nil
}

// settleWithRetry tenta liquidar até 3 vezes antes de desistir
func (e *Engine) settleWithRetry(ctx context.Context, betID, outcome string, payout decimal.Decimal) (*betrepo.Bet, bool, error) {
	b, settledNow, err := e.Bets.Settle(ctx, betID, outcome, payout)
	if err == nil {
		return b, settledNow, nil
	}

	const retries = 3
	for i := 0; i < retries; i++ {
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
		if b, settledNow, err = e.Bets.Settle(ctx, betID, outcome, payout); err == nil {
			return b, settledNow, nil
		}
	}
	return nil, false, err
}
