package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound = errors.New("credit account not found")
	ErrNoMatch         = errors.New("no credit account matched")
	ErrBadField        = errors.New("unknown balance field")
)

// Repository contains all DB interactions needed by the ledger service.
type Repository interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByExternalID(ctx context.Context, externalID string) (*Account, error)
	// FindByNameAndPhone requires an exact name match; when both sides carry a
	// phone number it must match too.
	FindByNameAndPhone(ctx context.Context, name, phone string) (*Account, error)

	// Adjust applies a relative delta and returns the updated account.
	Adjust(ctx context.Context, id uuid.UUID, field Field, delta int) (*Account, error)
	// Set overwrites one balance field and returns the previous and new value.
	Set(ctx context.Context, id uuid.UUID, field Field, value int) (before, after int, err error)

	CreateAccount(ctx context.Context, a Account) (*Account, error)
}
