// internal/storage/postgres.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres maps every Hash onto rows of a single kv table keyed by
// (namespace, field), and every Value onto a (namespace, '') row. Heavier
// than Redis for this workload but useful when Postgres is the only shared
// infrastructure available.
type Postgres struct {
	pool *pgxpool.Pool
}

const createKVTable = `
CREATE TABLE IF NOT EXISTS lobby_kv (
	namespace TEXT NOT NULL,
	field     TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, field)
)`

// ConnectPostgres creates a pool from the DSN, verifies it with a ping and
// ensures the kv table exists.
func ConnectPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if _, err := pool.Exec(ctx, createKVTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure lobby_kv table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Lobbies(game string) Hash {
	return &pgHash{pool: p.pool, namespace: "lobbies:" + game}
}

func (p *Postgres) Participants(lobbyID string) Hash {
	return &pgHash{pool: p.pool, namespace: "participants:" + lobbyID}
}

func (p *Postgres) ParticipantMeta(lobbyID, participantID string) Hash {
	return &pgHash{pool: p.pool, namespace: "meta:" + lobbyID + ":" + participantID}
}

func (p *Postgres) Latency(participantID string) Value {
	return &pgValue{pool: p.pool, namespace: "latency:" + participantID}
}

type pgHash struct {
	pool      *pgxpool.Pool
	namespace string
}

func (h *pgHash) Keys(ctx context.Context) ([]string, error) {
	rows, err := h.pool.Query(ctx,
		`SELECT field FROM lobby_kv WHERE namespace = $1`, h.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var field string
		if err := rows.Scan(&field); err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

func (h *pgHash) Entries(ctx context.Context) (map[string]string, error) {
	rows, err := h.pool.Query(ctx,
		`SELECT field, value FROM lobby_kv WHERE namespace = $1`, h.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		entries[field] = value
	}
	return entries, rows.Err()
}

func (h *pgHash) Get(ctx context.Context, field string) (string, bool, error) {
	var value string
	err := h.pool.QueryRow(ctx,
		`SELECT value FROM lobby_kv WHERE namespace = $1 AND field = $2`,
		h.namespace, field).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (h *pgHash) Set(ctx context.Context, field, value string) error {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO lobby_kv (namespace, field, value) VALUES ($1, $2, $3)
		 ON CONFLICT (namespace, field) DO UPDATE SET value = EXCLUDED.value`,
		h.namespace, field, value)
	return err
}

func (h *pgHash) Delete(ctx context.Context, field string) error {
	_, err := h.pool.Exec(ctx,
		`DELETE FROM lobby_kv WHERE namespace = $1 AND field = $2`,
		h.namespace, field)
	return err
}

func (h *pgHash) Len(ctx context.Context) (int64, error) {
	var count int64
	err := h.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lobby_kv WHERE namespace = $1`, h.namespace).Scan(&count)
	return count, err
}

func (h *pgHash) Clear(ctx context.Context) error {
	_, err := h.pool.Exec(ctx,
		`DELETE FROM lobby_kv WHERE namespace = $1`, h.namespace)
	return err
}

type pgValue struct {
	pool      *pgxpool.Pool
	namespace string
}

func (v *pgValue) Get(ctx context.Context) (string, bool, error) {
	h := pgHash{pool: v.pool, namespace: v.namespace}
	return h.Get(ctx, "")
}

func (v *pgValue) Set(ctx context.Context, value string) error {
	h := pgHash{pool: v.pool, namespace: v.namespace}
	return h.Set(ctx, "", value)
}

func (v *pgValue) Delete(ctx context.Context) error {
	h := pgHash{pool: v.pool, namespace: v.namespace}
	return h.Delete(ctx, "")
}
