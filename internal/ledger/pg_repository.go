package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func column(f Field) (string, error) {
	switch f {
	case FieldPrivate:
		return "private_credits", nil
	case FieldGroup:
		return "group_credits", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadField, f)
	}
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Phone,
		&a.ExternalUserID,
		&a.PrivateCredits,
		&a.GroupCredits,
		&a.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

const accountColumns = "id, name, phone, external_user_id, private_credits, group_credits, last_updated"

func (r *PgRepository) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM credit_accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (r *PgRepository) FindByExternalID(ctx context.Context, externalID string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM credit_accounts
		WHERE external_user_id = $1 AND external_user_id <> ''
	`, externalID)
	a, err := scanAccount(row)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrNoMatch
	}
	return a, err
}

func (r *PgRepository) FindByNameAndPhone(ctx context.Context, name, phone string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM credit_accounts
		WHERE name = $1
		  AND ($2 = '' OR phone = '' OR phone = $2)
		ORDER BY last_updated DESC
		LIMIT 1
	`, name, phone)
	a, err := scanAccount(row)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrNoMatch
	}
	return a, err
}

func (r *PgRepository) Adjust(ctx context.Context, id uuid.UUID, field Field, delta int) (*Account, error) {
	col, err := column(field)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE credit_accounts
		SET `+col+` = `+col+` + $2,
		    last_updated = now()
		WHERE id = $1
		RETURNING `+accountColumns+`
	`, id, delta)
	return scanAccount(row)
}

func (r *PgRepository) Set(ctx context.Context, id uuid.UUID, field Field, value int) (int, int, error) {
	col, err := column(field)
	if err != nil {
		return 0, 0, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin set balance: %w", err)
	}
	defer tx.Rollback(ctx)

	var before int
	err = tx.QueryRow(ctx, `
		SELECT `+col+` FROM credit_accounts WHERE id = $1 FOR UPDATE
	`, id).Scan(&before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrAccountNotFound
		}
		return 0, 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE credit_accounts
		SET `+col+` = $2,
		    last_updated = now()
		WHERE id = $1
	`, id, value)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit set balance: %w", err)
	}
	return before, value, nil
}

func (r *PgRepository) CreateAccount(ctx context.Context, a Account) (*Account, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO credit_accounts (id, name, phone, external_user_id, private_credits, group_credits, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+accountColumns+`
	`, a.ID, a.Name, a.Phone, a.ExternalUserID, a.PrivateCredits, a.GroupCredits)
	return scanAccount(row)
}
