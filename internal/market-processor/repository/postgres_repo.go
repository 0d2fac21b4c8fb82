package repository

import (
	"context"
	"database/sql"

	"github.com/stockbet/stockbet-platform/pkg/contracts/events"
)

// PostgresRepo implementa a persistência de ticks de mercado em Postgres
// DB: conexão com o banco de dados
type PostgresRepo struct {
	DB *sql.DB
}

// NewPostgresRepo retorna uma instância de repositório Postgres
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// UpsertCurrent insere ou atualiza o preço corrente do símbolo em market_current
// Utiliza ON CONFLICT para garantir atomicidade por symbol
func (r *PostgresRepo) UpsertCurrent(ctx context.Context, e events.MarketTick) error {
	const q = `
		INSERT INTO market_current (symbol, price, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (symbol) DO UPDATE SET
		  price      = EXCLUDED.price,
		  updated_at = EXCLUDED.updated_at
	`
	_, err := r.DB.ExecContext(ctx, q, e.Symbol, e.Price, e.Timestamp)
	return err
}

// InsertHistory insere o tick na série histórica (market_ticks)
func (r *PostgresRepo) InsertHistory(ctx context.Context, e events.MarketTick) error {
	const q = `
		INSERT INTO market_ticks (symbol, price, ts)
		VALUES ($1,$2,$3)
	`
	_, err := r.DB.ExecContext(ctx, q, e.Symbol, e.Price, e.Timestamp)
	return err
}
