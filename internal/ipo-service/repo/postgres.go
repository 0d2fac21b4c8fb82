package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	portfolio "github.com/stockbet/stockbet-platform/internal/portfolio-service/repo"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNameTaken      = errors.New("ipo name already exists")
	ErrOversubscribed = errors.New("not enough shares available")
	ErrBadInput       = errors.New("invalid ipo")
)

type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Create(ctx context.Context, name string, price decimal.Decimal, shares int64) (*IPO, error) {
	if name == "" || !price.IsPositive() || shares <= 0 {
		return nil, ErrBadInput
	}
	i := &IPO{ID: uuid.NewString(), Name: name, Price: price, AvailableShares: shares}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO ipos (id, name, price, available_shares)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`, i.ID, name, price, shares).Scan(&i.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return i, nil
}

func (p *Postgres) List(ctx context.Context) ([]IPO, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, price, available_shares, created_at
		FROM ipos ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IPO
	for rows.Next() {
		var i IPO
		if err := rows.Scan(&i.ID, &i.Name, &i.Price, &i.AvailableShares, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// Bid decrementa a oferta sob lock pessimista, grava a alocação e credita
// as shares na carteira do usuário, tudo na mesma transação. Pedido acima
// da oferta restante retorna ErrOversubscribed.
func (p *Postgres) Bid(ctx context.Context, ipoID, userID string, shares int64) (*Allocation, error) {
	if shares <= 0 {
		return nil, ErrBadInput
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var name string
	var available int64
	err = tx.QueryRowContext(ctx, `
		SELECT name, available_shares FROM ipos WHERE id=$1 FOR UPDATE`, ipoID).Scan(&name, &available)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if shares > available {
		return nil, ErrOversubscribed
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE ipos SET available_shares = available_shares - $1 WHERE id=$2`, shares, ipoID); err != nil {
		return nil, err
	}

	a := &Allocation{ID: uuid.NewString(), IPOID: ipoID, UserID: userID, Shares: shares}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ipo_allocations (id, ipo_id, user_id, shares)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`, a.ID, ipoID, userID, shares).Scan(&a.CreatedAt)
	if err != nil {
		return nil, err
	}

	// símbolo da posição = nome do IPO
	if _, err = portfolio.ApplyDelta(ctx, tx, userID, name, decimal.NewFromInt(shares)); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}
