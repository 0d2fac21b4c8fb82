package repo

import (
	"context"
	"database/sql"

	"github.com/stockbet/stockbet-platform/internal/market-service/dto"
)

type ReadRepo struct {
	DB *sql.DB
}

// CurrentPrices retorna o snapshot de preço corrente de todos os símbolos
func (r *ReadRepo) CurrentPrices(ctx context.Context) ([]dto.Price, error) {
	const q = `
		SELECT symbol, price, to_char(updated_at, 'YYYY-MM-DD"T"HH24:MI:SSZ')
		FROM market_current
		ORDER BY symbol;
	`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dto.Price
	for rows.Next() {
		var p dto.Price
		if err := rows.Scan(&p.Symbol, &p.Price, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// History retorna os ticks mais recentes do símbolo, mais novo primeiro
func (r *ReadRepo) History(ctx context.Context, symbol string, limit int) ([]dto.Tick, error) {
	const q = `
		SELECT symbol, price, to_char(ts, 'YYYY-MM-DD"T"HH24:MI:SSZ')
		FROM market_ticks
		WHERE symbol = $1
		ORDER BY ts DESC
		LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dto.Tick
	for rows.Next() {
		var t dto.Tick
		if err := rows.Scan(&t.Symbol, &t.Price, &t.Ts); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTick insere o tick e atualiza o snapshot corrente do símbolo
func (r *ReadRepo) AddTick(ctx context.Context, symbol string, price string) (*dto.Tick, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var t dto.Tick
	err = tx.QueryRowContext(ctx, `
		INSERT INTO market_ticks (symbol, price)
		VALUES ($1,$2)
		RETURNING symbol, price, to_char(ts, 'YYYY-MM-DD"T"HH24:MI:SSZ')`, symbol, price,
	).Scan(&t.Symbol, &t.Price, &t.Ts)
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO market_current (symbol, price, updated_at)
		VALUES ($1,$2,NOW())
		ON CONFLICT (symbol)
		DO UPDATE SET price=$2, updated_at=NOW()`, symbol, price); err != nil {
		return nil, err
	}

	return &t, tx.Commit()
}
