package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

type ExchangeRepository struct {
	db *sql.DB
}

func NewExchangeRepository(db *sql.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ExchangeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent service startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS exchanges (
	id TEXT PRIMARY KEY,
	endpoint TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	search_mode TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	source_count INTEGER NOT NULL DEFAULT 0,
	took_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_exchanges_endpoint ON exchanges(endpoint);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ExchangeRepository) Save(ctx context.Context, exchange domain.Exchange) error {
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO exchanges (id, endpoint, question, answer, search_mode, confidence, source_count, took_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, exchange.ID, exchange.Endpoint, exchange.Question, exchange.Answer, string(exchange.Mode),
		exchange.Confidence, exchange.Sources, exchange.TookMS, exchange.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

func (r *ExchangeRepository) Recent(ctx context.Context, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, endpoint, question, answer, search_mode, confidence, source_count, took_ms, created_at
FROM exchanges
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent exchanges: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Exchange, 0, limit)
	for rows.Next() {
		var exchange domain.Exchange
		var mode string
		if err := rows.Scan(
			&exchange.ID,
			&exchange.Endpoint,
			&exchange.Question,
			&exchange.Answer,
			&mode,
			&exchange.Confidence,
			&exchange.Sources,
			&exchange.TookMS,
			&exchange.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		exchange.Mode = domain.SearchMode(mode)
		out = append(out, exchange)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}
	return out, nil
}
