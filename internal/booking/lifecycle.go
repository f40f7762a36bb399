package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/audit"
	"github.com/Ja5on1in/gym-book-sub000/internal/ledger"
)

var (
	ErrIdentityMismatch  = errors.New("check-in identity does not match the booking")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCancelCompleted   = errors.New("completed sessions are reverted by a manager, not cancelled")
)

// Lifecycle drives appointments through confirmed, checked_in, completed and
// cancelled, and is the only caller of lifecycle-driven credit adjustments.
// Debits happen exactly once, at verified completion; cancellation therefore
// never needs a refund, and a completed record leaves that state only through
// a manager reversal.
type Lifecycle struct {
	repo         Repository
	credits      *ledger.Service
	audit        audit.Logger
	cancelNotice time.Duration
	now          func() time.Time
}

func NewLifecycle(repo Repository, credits *ledger.Service, auditLog audit.Logger, cancelNotice time.Duration) *Lifecycle {
	if cancelNotice <= 0 {
		cancelNotice = DefaultCancelNotice
	}
	return &Lifecycle{
		repo:         repo,
		credits:      credits,
		audit:        auditLog,
		cancelNotice: cancelNotice,
		now:          time.Now,
	}
}

// CheckIn records the customer's arrival. When the booking carries a linked
// identity, a non-staff requester must present the same one.
func (l *Lifecycle) CheckIn(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	appt, err := l.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.ExternalUserID != "" && !actor.IsStaff() && actor.ExternalID != appt.ExternalUserID {
		return nil, ErrIdentityMismatch
	}
	if appt.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}

	updated, err := l.repo.UpdateStatus(ctx, id, StatusConfirmed, StatusCheckedIn)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("check in: %w", err)
	}

	l.log(ctx, audit.Entry{
		Actor:   actor.Label(),
		Action:  "checked_in",
		Details: fmt.Sprintf("%s %s %s", updated.Type, updated.Date, updated.Slot),
	})
	return updated, nil
}

// Complete is the staff verification that the session happened. For private
// sessions it debits one credit from the matched account in the same
// transaction as the status flip. A missing account or a balance at or below
// zero produces a warning, never a block.
func (l *Lifecycle) Complete(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, string, error) {
	if !actor.IsStaff() {
		return nil, "", ErrRoleForbidden
	}

	appt, err := l.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if appt.Status != StatusConfirmed && appt.Status != StatusCheckedIn {
		return nil, "", ErrInvalidTransition
	}

	var accountID *uuid.UUID
	warning := ""
	if appt.Type == TypePrivate {
		name, phone := "", ""
		if appt.Customer != nil {
			name, phone = appt.Customer.Name, appt.Customer.Phone
		}
		acct, err := l.credits.Match(ctx, appt.ExternalUserID, name, phone)
		switch {
		case errors.Is(err, ledger.ErrNoMatch):
			warning = "no credit account matched this customer; debit skipped"
		case err != nil:
			return nil, "", fmt.Errorf("match credit account: %w", err)
		default:
			if acct.PrivateCredits <= 0 {
				warning = fmt.Sprintf("account %s has %d private credits; completing takes it negative", acct.Name, acct.PrivateCredits)
			}
			accountID = &acct.ID
		}
	}

	updated, err := l.repo.CompleteWithDebit(ctx, id, accountID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, "", ErrInvalidTransition
		}
		return nil, "", fmt.Errorf("complete appointment: %w", err)
	}

	details := fmt.Sprintf("%s %s %s", updated.Type, updated.Date, updated.Slot)
	if accountID != nil {
		details += fmt.Sprintf(", debited account %s", accountID)
	} else if updated.Type == TypePrivate {
		details += ", no debit"
	}
	l.log(ctx, audit.Entry{Actor: actor.Label(), Action: "completed", Details: details})

	return updated, warning, nil
}

// Reverse undoes a completion. Manager only; the refund mirrors the original
// debit exactly, so a complete/reverse round trip is balance neutral.
func (l *Lifecycle) Reverse(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	if !actor.IsManager() {
		return nil, ErrRoleForbidden
	}

	appt, err := l.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusCompleted {
		return nil, ErrInvalidTransition
	}

	updated, err := l.repo.ReverseWithRefund(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("reverse completion: %w", err)
	}

	refunded := ""
	if appt.DebitedAccountID != nil {
		refunded = fmt.Sprintf(", refunded account %s", appt.DebitedAccountID)
	}
	l.log(ctx, audit.Entry{
		Actor:   actor.Label(),
		Action:  "completion_reversed",
		Details: fmt.Sprintf("%s %s %s%s", updated.Type, updated.Date, updated.Slot, refunded),
	})
	return updated, nil
}

// Cancel takes a non-terminal record to cancelled. Customers are held to the
// notice window; staff bypass it. Credits are untouched: nothing was debited
// before completion, and completed records must go through Reverse instead.
func (l *Lifecycle) Cancel(ctx context.Context, id uuid.UUID, reason string, actor Actor) (*Appointment, error) {
	appt, err := l.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusCompleted:
		return nil, ErrCancelCompleted
	case StatusCancelled:
		return nil, ErrInvalidTransition
	}

	if !actor.IsStaff() {
		if err := CanSelfCancel(appt, l.now(), l.cancelNotice); err != nil {
			return nil, err
		}
	}

	updated, err := l.repo.Cancel(ctx, id, reason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	l.log(ctx, audit.Entry{
		Actor:   actor.Label(),
		Action:  "cancelled",
		Details: fmt.Sprintf("%s %s %s: %s", updated.Type, updated.Date, updated.Slot, reason),
	})
	return updated, nil
}

// CancelBatch cancels a staff multi-selection atomically. If any selected
// record is checked in or completed the whole batch is rejected.
func (l *Lifecycle) CancelBatch(ctx context.Context, ids []uuid.UUID, reason string, actor Actor) (int, error) {
	if !actor.IsStaff() {
		return 0, ErrRoleForbidden
	}

	count, err := l.repo.CancelBatch(ctx, ids, reason)
	if err != nil {
		return 0, err
	}

	l.log(ctx, audit.Entry{
		Actor:   actor.Label(),
		Action:  "batch_cancelled",
		Details: fmt.Sprintf("cancelled %d of %d selected: %s", count, len(ids), reason),
	})
	return count, nil
}

// Delete physically removes an uncommitted record. Checked-in and completed
// records are always refused; their only exits are cancellation with a
// reason or manager reversal.
func (l *Lifecycle) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if !actor.IsStaff() {
		return ErrRoleForbidden
	}

	if err := l.repo.Delete(ctx, id); err != nil {
		return err
	}

	l.log(ctx, audit.Entry{
		Actor:   actor.Label(),
		Action:  "deleted",
		Details: fmt.Sprintf("appointment %s", id),
	})
	return nil
}

func (l *Lifecycle) log(ctx context.Context, e audit.Entry) {
	if err := l.audit.Append(ctx, e); err != nil {
		log.Printf("failed to append audit entry %s: %v", e.Action, err)
	}
}
