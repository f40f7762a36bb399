package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/audit"
)

// Service owns all credit-balance mutation paths. Lifecycle debits and
// refunds go through Adjust; SetBalance is the separate staff correction
// path and is always logged with before/after values.
type Service struct {
	repo  Repository
	audit audit.Logger
}

func NewService(repo Repository, auditLog audit.Logger) *Service {
	return &Service{repo: repo, audit: auditLog}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// Match finds the account a debit or refund should land on. External-identity
// links win; exact name (plus phone when both sides have one) is the legacy
// fallback. Fallback matches are audited for collision review.
func (s *Service) Match(ctx context.Context, externalID, name, phone string) (*Account, error) {
	if externalID != "" {
		a, err := s.repo.FindByExternalID(ctx, externalID)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			return nil, fmt.Errorf("match by external id: %w", err)
		}
	}

	if name == "" {
		return nil, ErrNoMatch
	}
	a, err := s.repo.FindByNameAndPhone(ctx, name, phone)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("match by name and phone: %w", err)
	}

	s.log(ctx, audit.Entry{
		Actor:   "system",
		Action:  "ledger_fallback_match",
		Details: fmt.Sprintf("account %s matched by name=%q phone=%q without identity link", a.ID, name, phone),
	})
	return a, nil
}

// Adjust applies a relative delta to one balance field. Balances are allowed
// to go negative; callers warn, they do not clamp.
func (s *Service) Adjust(ctx context.Context, id uuid.UUID, field Field, delta int, actor string) (*Account, error) {
	a, err := s.repo.Adjust(ctx, id, field, delta)
	if err != nil {
		return nil, err
	}

	s.log(ctx, audit.Entry{
		Actor:   actor,
		Action:  "credit_adjust",
		Details: fmt.Sprintf("account %s %s %+d -> %d", a.ID, field, delta, a.Balance(field)),
	})
	return a, nil
}

// SetBalance is the staff-facing absolute correction. Distinct from the
// lifecycle path on purpose; the audit row carries before and after so the
// history can be reconstructed.
func (s *Service) SetBalance(ctx context.Context, id uuid.UUID, field Field, value int, actor string) (*Account, error) {
	before, after, err := s.repo.Set(ctx, id, field, value)
	if err != nil {
		return nil, err
	}

	s.log(ctx, audit.Entry{
		Actor:   actor,
		Action:  "credit_set_balance",
		Details: fmt.Sprintf("account %s %s %d -> %d", id, field, before, after),
	})

	return s.repo.GetAccount(ctx, id)
}

func (s *Service) log(ctx context.Context, e audit.Entry) {
	if err := s.audit.Append(ctx, e); err != nil {
		log.Printf("failed to append audit entry %s: %v", e.Action, err)
	}
}
