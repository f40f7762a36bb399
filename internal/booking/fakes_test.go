package booking

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/audit"
	"github.com/Ja5on1in/gym-book-sub000/internal/ledger"
	"github.com/Ja5on1in/gym-book-sub000/internal/outbox"
	redisclient "github.com/Ja5on1in/gym-book-sub000/internal/redis"
	"github.com/Ja5on1in/gym-book-sub000/internal/schedule"
)

// fakeStore implements both Repository and ledger.Repository over maps so the
// scheduler, lifecycle and ledger service share one consistent world, the way
// they share one database in production.
type fakeStore struct {
	mu       sync.Mutex
	coaches  map[uuid.UUID]*schedule.Coach
	appts    map[uuid.UUID]*Appointment
	accounts map[uuid.UUID]*ledger.Account
	events   []outbox.Event
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		coaches:  make(map[uuid.UUID]*schedule.Coach),
		appts:    make(map[uuid.UUID]*Appointment),
		accounts: make(map[uuid.UUID]*ledger.Account),
	}
}

func (f *fakeStore) addCoach(c *schedule.Coach) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coaches[c.ID] = c
}

func (f *fakeStore) addAccount(a *ledger.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[a.ID] = a
}

func (f *fakeStore) balance(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].PrivateCredits
}

// Repository

func (f *fakeStore) GetCoach(_ context.Context, id uuid.UUID) (*schedule.Coach, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coaches[id]
	if !ok {
		return nil, ErrCoachNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListActiveForDay(_ context.Context, coachID uuid.UUID, date string) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appts {
		if a.CoachID == coachID && a.Date == date && a.Status != StatusCancelled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForRange(_ context.Context, coachID uuid.UUID, from, to string) ([]Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Appointment
	for _, a := range f.appts {
		if a.CoachID == coachID && a.Date >= from && a.Date <= to {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveBatch(_ context.Context, appts []Appointment, events []outbox.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Mirror the store's active-slot claim: reject the whole batch when a
	// non-group record would share a tuple with another active record.
	for i := range appts {
		a := &appts[i]
		if a.Type == TypeGroup {
			continue
		}
		for _, existing := range f.appts {
			if existing.ID != a.ID &&
				existing.Status != StatusCancelled &&
				existing.CoachID == a.CoachID &&
				existing.Date == a.Date &&
				existing.Slot == a.Slot {
				return ErrSlotConflict
			}
		}
	}

	for i := range appts {
		cp := appts[i]
		f.appts[cp.ID] = &cp
	}
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Cancel(_ context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || (a.Status != StatusConfirmed && a.Status != StatusCheckedIn) {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCancelled
	a.CancelReason = reason
	cp := *a
	return &cp, nil
}

func (f *fakeStore) CompleteWithDebit(_ context.Context, id uuid.UUID, accountID *uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || (a.Status != StatusConfirmed && a.Status != StatusCheckedIn) {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCompleted
	a.DebitedAccountID = accountID
	if accountID != nil {
		if acct, ok := f.accounts[*accountID]; ok {
			acct.PrivateCredits--
		}
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ReverseWithRefund(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || a.Status != StatusCompleted {
		return nil, ErrAppointmentNotFound
	}
	if a.DebitedAccountID != nil {
		if acct, ok := f.accounts[*a.DebitedAccountID]; ok {
			acct.PrivateCredits++
		}
	}
	a.Status = StatusConfirmed
	a.DebitedAccountID = nil
	cp := *a
	return &cp, nil
}

func (f *fakeStore) CancelBatch(_ context.Context, ids []uuid.UUID, reason string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if a, ok := f.appts[id]; ok && (a.Status == StatusCheckedIn || a.Status == StatusCompleted) {
			return 0, ErrProtectedStatus
		}
	}
	count := 0
	for _, id := range ids {
		if a, ok := f.appts[id]; ok && a.Status == StatusConfirmed {
			a.Status = StatusCancelled
			a.CancelReason = reason
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	if a.Status == StatusCheckedIn || a.Status == StatusCompleted {
		return ErrProtectedStatus
	}
	delete(f.appts, id)
	return nil
}

// ledger.Repository

func (f *fakeStore) GetAccount(_ context.Context, id uuid.UUID) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) FindByExternalID(_ context.Context, externalID string) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ExternalUserID != "" && a.ExternalUserID == externalID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ledger.ErrNoMatch
}

func (f *fakeStore) FindByNameAndPhone(_ context.Context, name, phone string) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Name != name {
			continue
		}
		if phone != "" && a.Phone != "" && a.Phone != phone {
			continue
		}
		cp := *a
		return &cp, nil
	}
	return nil, ledger.ErrNoMatch
}

func (f *fakeStore) Adjust(_ context.Context, id uuid.UUID, field ledger.Field, delta int) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	switch field {
	case ledger.FieldPrivate:
		a.PrivateCredits += delta
	case ledger.FieldGroup:
		a.GroupCredits += delta
	default:
		return nil, ledger.ErrBadField
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Set(_ context.Context, id uuid.UUID, field ledger.Field, value int) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return 0, 0, ledger.ErrAccountNotFound
	}
	switch field {
	case ledger.FieldPrivate:
		before := a.PrivateCredits
		a.PrivateCredits = value
		return before, value, nil
	case ledger.FieldGroup:
		before := a.GroupCredits
		a.GroupCredits = value
		return before, value, nil
	default:
		return 0, 0, ledger.ErrBadField
	}
}

func (f *fakeStore) CreateAccount(_ context.Context, a ledger.Account) (*ledger.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.accounts[a.ID] = &a
	cp := a
	return &cp, nil
}

// fakeLocker mimics the Redis SetNX semantics in memory.
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[key] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}

// hold grabs a key out of band to simulate a concurrent booking in flight.
func (l *fakeLocker) hold(key string) func() {
	l.mu.Lock()
	l.held[key] = true
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Append(_ context.Context, e audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type testEnv struct {
	store     *fakeStore
	locker    *fakeLocker
	audit     *recordingAudit
	credits   *ledger.Service
	scheduler *Scheduler
	lifecycle *Lifecycle
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	locker := newFakeLocker()
	rec := &recordingAudit{}
	credits := ledger.NewService(store, rec)
	return &testEnv{
		store:     store,
		locker:    locker,
		audit:     rec,
		credits:   credits,
		scheduler: NewScheduler(store, credits, locker, rec, nil),
		lifecycle: NewLifecycle(store, credits, rec, 0),
	}
}
