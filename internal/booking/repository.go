package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/outbox"
	"github.com/Ja5on1in/gym-book-sub000/internal/schedule"
)

var (
	ErrCoachNotFound       = errors.New("coach not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotConflict        = errors.New("slot already has an active appointment")
	ErrProtectedStatus     = errors.New("checked-in and completed records can only be cancelled with a reason or reverted")
)

// Repository contains all DB interactions needed by the scheduler and the
// lifecycle service. Multi-record methods are atomic: every record in the
// call is applied or none are.
type Repository interface {
	GetCoach(ctx context.Context, id uuid.UUID) (*schedule.Coach, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Snapshot reads for conflict checks and day views.
	ListActiveForDay(ctx context.Context, coachID uuid.UUID, date string) ([]Appointment, error)
	ListForRange(ctx context.Context, coachID uuid.UUID, from, to string) ([]Appointment, error)

	// SaveBatch upserts every appointment and appends the outbox events in a
	// single transaction. A violation of the active-slot claim surfaces as
	// ErrSlotConflict and nothing is applied.
	SaveBatch(ctx context.Context, appts []Appointment, events []outbox.Event) error

	// UpdateStatus is a compare-and-set transition; ErrAppointmentNotFound
	// means no row matched (id, from).
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error)

	// CompleteWithDebit flips the record to completed and, when accountID is
	// set, debits one private credit from it in the same transaction.
	CompleteWithDebit(ctx context.Context, id uuid.UUID, accountID *uuid.UUID) (*Appointment, error)
	// ReverseWithRefund flips completed back to confirmed and refunds the
	// debited account, if any, in the same transaction.
	ReverseWithRefund(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CancelBatch rejects the whole batch with ErrProtectedStatus if any
	// selected record is checked in or completed.
	CancelBatch(ctx context.Context, ids []uuid.UUID, reason string) (int, error)

	// Delete physically removes a record; checked-in and completed records
	// are always refused with ErrProtectedStatus.
	Delete(ctx context.Context, id uuid.UUID) error
}
