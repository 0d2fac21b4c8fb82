package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrNegativeHoldings = errors.New("holdings would go negative")
	ErrNotFound         = errors.New("not found")
	ErrInvalidDelta     = errors.New("invalid delta")
)

// Querier permite compor ApplyDelta dentro da transação de quem chama
// (ex.: alocação de IPO credita shares no mesmo tx que decrementa a oferta)
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapCheckViolation traduz a violação do CHECK (quantity >= 0)
func mapCheckViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23514" {
		return ErrNegativeHoldings
	}
	return err
}

// ApplyDelta soma delta (positivo ou negativo) à posição do usuário no
// símbolo, sob lock pessimista da linha quando ela já existe. O upsert é
// relativo (quantity = quantity + delta): dois primeiros-writes concorrentes
// para o mesmo (user, symbol) não têm linha pra travar, e um SET absoluto
// perderia o delta do vencedor. Débito além da posição atual retorna
// ErrNegativeHoldings sem gravar nada; o CHECK do banco cobre a corrida.
func ApplyDelta(ctx context.Context, q Querier, userID, symbol string, delta decimal.Decimal) (*Holding, error) {
	if symbol == "" || delta.IsZero() {
		return nil, ErrInvalidDelta
	}

	var current decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT quantity FROM portfolio_holdings
		WHERE user_id=$1 AND symbol=$2 FOR UPDATE`, userID, symbol).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	if current.Add(delta).IsNegative() {
		return nil, ErrNegativeHoldings
	}

	h := &Holding{UserID: userID, Symbol: symbol}
	err = q.QueryRowContext(ctx, `
		INSERT INTO portfolio_holdings (user_id, symbol, quantity, updated_at)
		VALUES ($1,$2,$3,NOW())
		ON CONFLICT (user_id, symbol)
		DO UPDATE SET quantity = portfolio_holdings.quantity + EXCLUDED.quantity,
		              updated_at = NOW()
		RETURNING quantity, updated_at`, userID, symbol, delta).Scan(&h.Quantity, &h.UpdatedAt)
	if err != nil {
		return nil, mapCheckViolation(err)
	}
	return h, nil
}

type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Upsert aplica um delta em transação própria
func (p *Postgres) Upsert(ctx context.Context, userID, symbol string, delta decimal.Decimal) (*Holding, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	h, err := ApplyDelta(ctx, tx, userID, symbol, delta)
	if err != nil {
		return nil, err
	}
	return h, tx.Commit()
}

// GetByUser lista as posições do usuário; vazio => ErrNotFound
func (p *Postgres) GetByUser(ctx context.Context, userID string) ([]Holding, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, symbol, quantity, updated_at
		FROM portfolio_holdings
		WHERE user_id=$1 ORDER BY symbol`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.UserID, &h.Symbol, &h.Quantity, &h.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
