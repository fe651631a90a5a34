package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLite is a Store over the kv_store table created by the db migrations.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(conn *sql.DB) *SQLite {
	return &SQLite{db: conn, now: time.Now}
}

func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var value string
	var expires sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_store WHERE key = ?`, key,
	).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store get %s: %w", key, err)
	}
	if expires.Valid && s.now().UnixMilli() >= expires.Int64 {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
		return "", ErrNotFound
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expires sql.NullInt64
	if ttl > 0 {
		expires = sql.NullInt64{Int64: s.now().Add(ttl).UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		key, value, expires, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE key LIKE ? ESCAPE '\'`, likePrefix(prefix))
	if err != nil {
		return 0, fmt.Errorf("store delete prefix %s: %w", prefix, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM kv_store
		WHERE key LIKE ? ESCAPE '\' AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY key`, likePrefix(prefix), s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store keys %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Purge removes expired rows and reports how many were dropped.
func (s *SQLite) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
