package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNotFound            = errors.New("not found")
)

// Querier é o subconjunto de *sql.DB / *sql.Tx usado pelas operações do ledger.
// Permite que outros repositórios (bets, ipo) componham escritas de ledger
// dentro da própria transação.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implementa o ledger de transações em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ValidateKindAmount confere o sinal do amount para o tipo de transação.
// Zero nunca é válido.
func ValidateKindAmount(kind string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	switch kind {
	case KindDeposit, KindBetSettlement:
		if amount.IsNegative() {
			return ErrInvalidAmount
		}
	case KindWithdrawal, KindBetStake:
		if amount.IsPositive() {
			return ErrInvalidAmount
		}
	default:
		return ErrInvalidAmount
	}
	return nil
}

// LockUser trava a linha do usuário (FOR UPDATE), serializando operações
// que autorizam débitos contra a projeção de saldo
func LockUser(ctx context.Context, q Querier, userID string) error {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

// ProjectBalance calcula o saldo como soma das transações 'completed'.
// Só é confiável para autorização quando chamado depois de LockUser na
// mesma transação.
func ProjectBalance(ctx context.Context, q Querier, userID string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id=$1 AND status=$2`, userID, StatusCompleted,
	).Scan(&bal)
	return bal, err
}

// Insert grava uma transação com o status informado e valida o sinal por tipo
func Insert(ctx context.Context, q Querier, t *Transaction) error {
	if err := ValidateKindAmount(t.Kind, t.Amount); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return q.QueryRowContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount, status, reference)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		t.ID, t.UserID, t.Kind, t.Amount, t.Status, t.Reference,
	).Scan(&t.CreatedAt)
}

// Deposit credita saldo: insere a transação como 'pending' e completa na
// mesma transação de banco
func (p *Postgres) Deposit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err = LockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	t := &Transaction{UserID: userID, Kind: KindDeposit, Amount: amount, Status: StatusPending, Reference: ref}
	if err = Insert(ctx, tx, t); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE transactions SET status=$1 WHERE id=$2`, StatusCompleted, t.ID); err != nil {
		return nil, err
	}
	t.Status = StatusCompleted

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// Withdraw debita saldo após checar suficiência sob lock pessimista
func (p *Postgres) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err = LockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	bal, err := ProjectBalance(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if bal.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	t := &Transaction{UserID: userID, Kind: KindWithdrawal, Amount: amount.Neg(), Status: StatusCompleted, Reference: ref}
	if err = Insert(ctx, tx, t); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// Balance retorna a projeção de saldo sem lock (apenas para exibição)
func (p *Postgres) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return ProjectBalance(ctx, p.db, userID)
}

// ListByUser retorna as transações do usuário, mais recentes primeiro
func (p *Postgres) ListByUser(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount, status, reference, created_at
		FROM transactions
		WHERE user_id=$1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
