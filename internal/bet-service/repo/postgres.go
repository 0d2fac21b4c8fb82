package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	wallet "github.com/stockbet/stockbet-platform/internal/wallet-service/repo"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNotActive = errors.New("bet is not active")
	ErrBadInput  = errors.New("invalid bet")
)

// Postgres implementa o ciclo de vida de apostas em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Place cria a aposta e grava a transação de stake na MESMA transação de
// banco, depois de checar suficiência de saldo sob lock pessimista.
// Retorna ErrInsufficientBalance (do ledger) quando amount > saldo.
func (p *Postgres) Place(ctx context.Context, userID, market string, amount decimal.Decimal, direction string) (*Bet, error) {
	if !amount.IsPositive() || (direction != DirectionUp && direction != DirectionDown) {
		return nil, ErrBadInput
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err = wallet.LockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	bal, err := wallet.ProjectBalance(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if bal.LessThan(amount) {
		return nil, wallet.ErrInsufficientBalance
	}

	b := &Bet{ID: uuid.NewString(), UserID: userID, Market: market, Amount: amount, Direction: direction, Status: StatusActive}

	stake := &wallet.Transaction{
		UserID:    userID,
		Kind:      wallet.KindBetStake,
		Amount:    amount.Neg(),
		Status:    wallet.StatusCompleted,
		Reference: "bet:" + b.ID,
	}
	if err = wallet.Insert(ctx, tx, stake); err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO bets (id, user_id, market, amount, direction, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		b.ID, userID, market, amount, direction, StatusActive,
	).Scan(&b.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// Settle transiciona active -> won|lost e, em caso de vitória, credita o
// payout no ledger. Idempotente: liquidar uma aposta já liquidada devolve o
// estado atual sem gravar nada (settledNow=false).
func (p *Postgres) Settle(ctx context.Context, betID, outcome string, payout decimal.Decimal) (*Bet, bool, error) {
	if outcome != StatusWon && outcome != StatusLost {
		return nil, false, ErrBadInput
	}
	if outcome == StatusWon && !payout.IsPositive() {
		return nil, false, ErrBadInput
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	b, err := lockBet(ctx, tx, betID)
	if err != nil {
		return nil, false, err
	}
	if b.Status != StatusActive {
		// já liquidada ou cancelada: no-op
		return b, false, tx.Commit()
	}

	now := time.Now().UTC()
	finalPayout := decimal.Zero
	if outcome == StatusWon {
		finalPayout = payout
		if err = wallet.LockUser(ctx, tx, b.UserID); err != nil {
			return nil, false, err
		}
		credit := &wallet.Transaction{
			UserID:    b.UserID,
			Kind:      wallet.KindBetSettlement,
			Amount:    payout,
			Status:    wallet.StatusCompleted,
			Reference: "payout:" + b.ID,
		}
		if err = wallet.Insert(ctx, tx, credit); err != nil {
			return nil, false, err
		}
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE bets SET status=$1, payout=$2, settled_at=$3 WHERE id=$4`,
		outcome, finalPayout, now, b.ID); err != nil {
		return nil, false, err
	}
	b.Status = outcome
	b.Payout = finalPayout
	b.SettledAt = &now

	if err = tx.Commit(); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Cancel estorna o stake de uma aposta ativa com uma transação de
// compensação no ledger. Cancelar de novo é no-op; cancelar uma aposta já
// liquidada retorna ErrNotActive.
func (p *Postgres) Cancel(ctx context.Context, betID string) (*Bet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := lockBet(ctx, tx, betID)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCancelled {
		return b, tx.Commit()
	}
	if b.Status != StatusActive {
		return nil, ErrNotActive
	}

	if err = wallet.LockUser(ctx, tx, b.UserID); err != nil {
		return nil, err
	}
	refund := &wallet.Transaction{
		UserID:    b.UserID,
		Kind:      wallet.KindBetSettlement,
		Amount:    b.Amount,
		Status:    wallet.StatusCompleted,
		Reference: "refund:" + b.ID,
	}
	if err = wallet.Insert(ctx, tx, refund); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `
		UPDATE bets SET status=$1, payout=$2, settled_at=$3 WHERE id=$4`,
		StatusCancelled, b.Amount, now, b.ID); err != nil {
		return nil, err
	}
	b.Status = StatusCancelled
	b.Payout = b.Amount
	b.SettledAt = &now

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByID retorna a aposta pelo id
func (p *Postgres) GetByID(ctx context.Context, betID string) (*Bet, error) {
	return scanBet(p.db.QueryRowContext(ctx, betQuery+` WHERE id=$1`, betID))
}

// ListActiveByUser retorna as apostas ativas do usuário
func (p *Postgres) ListActiveByUser(ctx context.Context, userID string) ([]Bet, error) {
	return p.list(ctx, betQuery+` WHERE user_id=$1 AND status=$2 ORDER BY created_at DESC`, userID, StatusActive)
}

// ListActiveByMarket retorna as apostas ativas de um mercado (liquidação)
func (p *Postgres) ListActiveByMarket(ctx context.Context, market string) ([]Bet, error) {
	return p.list(ctx, betQuery+` WHERE market=$1 AND status=$2 ORDER BY created_at`, market, StatusActive)
}

const betQuery = `
	SELECT id, user_id, market, amount, direction, status, payout, created_at, settled_at
	FROM bets`

func (p *Postgres) list(ctx context.Context, query string, args ...any) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		b, err := scanBetRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func lockBet(ctx context.Context, tx *sql.Tx, betID string) (*Bet, error) {
	return scanBet(tx.QueryRowContext(ctx, betQuery+` WHERE id=$1 FOR UPDATE`, betID))
}

type rowScanner interface{ Scan(dest ...any) error }

func scanBet(row rowScanner) (*Bet, error) {
	b, err := scanBetRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return b, err
}

func scanBetRow(row rowScanner) (*Bet, error) {
	var b Bet
	var payout decimal.NullDecimal
	if err := row.Scan(&b.ID, &b.UserID, &b.Market, &b.Amount, &b.Direction, &b.Status, &payout, &b.CreatedAt, &b.SettledAt); err != nil {
		return nil, err
	}
	if payout.Valid {
		b.Payout = payout.Decimal
	}
	return &b, nil
}
