package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores every owner's keys in the kv_store table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Scope(owner string) Storage {
	return &postgresScope{pool: p.pool, owner: owner}
}

type postgresScope struct {
	pool  *pgxpool.Pool
	owner string
}

func (s *postgresScope) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv_store WHERE owner = $1 AND key = $2`,
		s.owner, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select kv: %w", err)
	}
	return value, nil
}

func (s *postgresScope) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_store (owner, key, value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		s.owner, key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert kv: %w", err)
	}
	return nil
}

func (s *postgresScope) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM kv_store WHERE owner = $1 AND key = $2`,
		s.owner, key,
	); err != nil {
		return fmt.Errorf("delete kv: %w", err)
	}
	return nil
}

func (s *postgresScope) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM kv_store WHERE owner = $1 AND starts_with(key, $2) ORDER BY key`,
		s.owner, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list kv keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan kv keys: %w", err)
	}
	return keys, nil
}
