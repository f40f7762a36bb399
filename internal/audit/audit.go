// Package audit appends human-readable rows for every mutating operation.
// Entries are denormalized free text for audit review, not machine replay.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Entry struct {
	At      time.Time
	Actor   string
	Action  string
	Details string
}

// Logger is implemented by the Postgres writer and by test fakes. Append-only:
// there is no update or delete.
type Logger interface {
	Append(ctx context.Context, e Entry) error
}

type PgLogger struct {
	pool *pgxpool.Pool
}

func NewPgLogger(pool *pgxpool.Pool) *PgLogger {
	return &PgLogger{pool: pool}
}

func (l *PgLogger) Append(ctx context.Context, e Entry) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO audit_logs (at, actor, action, details)
		VALUES (COALESCE($1, now()), $2, $3, $4)
	`, nullableTime(e.At), e.Actor, e.Action, e.Details)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
