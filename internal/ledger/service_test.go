package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/audit"
)

// memRepo is an in-memory Repository mirroring the Postgres matching rules:
// exact name, and phone compared only when both sides carry one.
type memRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[uuid.UUID]*Account)}
}

func (r *memRepo) add(a *Account) *Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.accounts[a.ID] = a
	return a
}

func (r *memRepo) GetAccount(_ context.Context, id uuid.UUID) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) FindByExternalID(_ context.Context, externalID string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ExternalUserID != "" && a.ExternalUserID == externalID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNoMatch
}

func (r *memRepo) FindByNameAndPhone(_ context.Context, name, phone string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Name != name {
			continue
		}
		if phone != "" && a.Phone != "" && a.Phone != phone {
			continue
		}
		cp := *a
		return &cp, nil
	}
	return nil, ErrNoMatch
}

func (r *memRepo) Adjust(_ context.Context, id uuid.UUID, field Field, delta int) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	switch field {
	case FieldPrivate:
		a.PrivateCredits += delta
	case FieldGroup:
		a.GroupCredits += delta
	default:
		return nil, ErrBadField
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) Set(_ context.Context, id uuid.UUID, field Field, value int) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return 0, 0, ErrAccountNotFound
	}
	switch field {
	case FieldPrivate:
		before := a.PrivateCredits
		a.PrivateCredits = value
		return before, value, nil
	case FieldGroup:
		before := a.GroupCredits
		a.GroupCredits = value
		return before, value, nil
	default:
		return 0, 0, ErrBadField
	}
}

func (r *memRepo) CreateAccount(_ context.Context, a Account) (*Account, error) {
	return r.add(&a), nil
}

type captureAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureAudit) Append(_ context.Context, e audit.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureAudit) has(action string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

func newTestService() (*Service, *memRepo, *captureAudit) {
	repo := newMemRepo()
	rec := &captureAudit{}
	return NewService(repo, rec), repo, rec
}

func TestService_Match(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("external identity wins over name and phone", func(t *testing.T) {
		t.Parallel()

		svc, repo, rec := newTestService()
		linked := repo.add(&Account{Name: "Jordan Vale", Phone: "555-0101", ExternalUserID: "tg-9"})
		repo.add(&Account{Name: "Jordan Vale", Phone: "555-0101"}) // same name, no link

		got, err := svc.Match(ctx, "tg-9", "Jordan Vale", "555-0101")
		if err != nil {
			t.Fatalf("match failed: %v", err)
		}
		if got.ID != linked.ID {
			t.Fatalf("matched %s, want the linked account %s", got.ID, linked.ID)
		}
		if rec.has("ledger_fallback_match") {
			t.Fatal("identity match must not be audited as a fallback")
		}
	})

	t.Run("unknown external id falls back to name and phone", func(t *testing.T) {
		t.Parallel()

		svc, repo, rec := newTestService()
		legacy := repo.add(&Account{Name: "Jordan Vale", Phone: "555-0101"})

		got, err := svc.Match(ctx, "tg-unknown", "Jordan Vale", "555-0101")
		if err != nil {
			t.Fatalf("match failed: %v", err)
		}
		if got.ID != legacy.ID {
			t.Fatalf("matched %s, want %s", got.ID, legacy.ID)
		}
		if !rec.has("ledger_fallback_match") {
			t.Fatal("fallback matches must leave an audit row")
		}
	})

	t.Run("phone is compared only when both sides carry one", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTestService()
		noPhone := repo.add(&Account{Name: "Casey Holt"})

		got, err := svc.Match(ctx, "", "Casey Holt", "555-0199")
		if err != nil {
			t.Fatalf("match against phoneless account failed: %v", err)
		}
		if got.ID != noPhone.ID {
			t.Fatalf("matched %s, want %s", got.ID, noPhone.ID)
		}
	})

	t.Run("conflicting phones do not match", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTestService()
		repo.add(&Account{Name: "Casey Holt", Phone: "555-0100"})

		if _, err := svc.Match(ctx, "", "Casey Holt", "555-0199"); !errors.Is(err, ErrNoMatch) {
			t.Fatalf("phone mismatch = %v, want ErrNoMatch", err)
		}
	})

	t.Run("empty name cannot fall back", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newTestService()
		repo.add(&Account{Name: "Casey Holt"})

		if _, err := svc.Match(ctx, "", "", "555-0100"); !errors.Is(err, ErrNoMatch) {
			t.Fatalf("empty name = %v, want ErrNoMatch", err)
		}
	})
}

func TestService_Adjust(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, repo, rec := newTestService()
	acct := repo.add(&Account{Name: "Robin Shaw", PrivateCredits: 2, GroupCredits: 1})

	got, err := svc.Adjust(ctx, acct.ID, FieldPrivate, 10, "manager:Morgan")
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if got.PrivateCredits != 12 || got.GroupCredits != 1 {
		t.Fatalf("balances %d/%d, want 12/1", got.PrivateCredits, got.GroupCredits)
	}

	// A negative delta may push the balance below zero; that is recorded, not
	// rejected.
	got, err = svc.Adjust(ctx, acct.ID, FieldGroup, -5, "manager:Morgan")
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if got.GroupCredits != -4 {
		t.Fatalf("group balance %d, want -4", got.GroupCredits)
	}

	if !rec.has("credit_adjust") {
		t.Fatal("adjustments must leave an audit row")
	}

	if _, err := svc.Adjust(ctx, uuid.New(), FieldPrivate, 1, "x"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("unknown account = %v, want ErrAccountNotFound", err)
	}
	if _, err := svc.Adjust(ctx, acct.ID, Field("bonus"), 1, "x"); !errors.Is(err, ErrBadField) {
		t.Fatalf("unknown field = %v, want ErrBadField", err)
	}
}

func TestService_SetBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, repo, rec := newTestService()
	acct := repo.add(&Account{Name: "Robin Shaw", PrivateCredits: 7})

	got, err := svc.SetBalance(ctx, acct.ID, FieldPrivate, 20, "manager:Morgan")
	if err != nil {
		t.Fatalf("set balance failed: %v", err)
	}
	if got.PrivateCredits != 20 {
		t.Fatalf("balance %d, want 20", got.PrivateCredits)
	}
	if !rec.has("credit_set_balance") {
		t.Fatal("balance overwrites must leave an audit row")
	}
}
