package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/audit"
	"github.com/Ja5on1in/gym-book-sub000/internal/ledger"
	"github.com/Ja5on1in/gym-book-sub000/internal/outbox"
	redisclient "github.com/Ja5on1in/gym-book-sub000/internal/redis"
	"github.com/Ja5on1in/gym-book-sub000/internal/schedule"
)

var (
	ErrBadDate         = errors.New("date is not a valid ISO day")
	ErrDayOff          = errors.New("coach is not working that day")
	ErrOutsideHours    = errors.New("slot is outside the coach's working hours")
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
	ErrNoValidSlots    = errors.New("no valid slots in the requested range")
	ErrRoleForbidden   = errors.New("actor role does not permit this action")
)

// Scheduler creates single bookings and expands batch/recurring block
// requests into concrete records. Single customer bookings run under a
// distributed lock on the claim tuple; batch creation leans on the store's
// active-slot unique claim and the resolver's skip-occupied semantics.
type Scheduler struct {
	repo    Repository
	credits *ledger.Service
	locker  redisclient.Locker
	audit   audit.Logger
	grid    schedule.Grid
}

func NewScheduler(repo Repository, credits *ledger.Service, locker redisclient.Locker, auditLog audit.Logger, grid schedule.Grid) *Scheduler {
	if grid == nil {
		grid = schedule.DefaultGrid()
	}
	return &Scheduler{
		repo:    repo,
		credits: credits,
		locker:  locker,
		audit:   auditLog,
		grid:    grid,
	}
}

type BookingRequest struct {
	Type           Type // defaults to private
	Date           string
	Slot           string
	CoachID        uuid.UUID
	Service        *Service
	Customer       *Customer
	ExternalUserID string
	Capacity       int // group only
}

// CreateBooking reserves a single slot. It re-checks availability inside the
// slot lock, persists the confirmed record together with its notification
// event, and returns a non-blocking warning when the customer's prepaid
// balance looks short. The debit itself only happens at completion.
func (s *Scheduler) CreateBooking(ctx context.Context, req BookingRequest, actor Actor) (*Appointment, string, error) {
	if req.Type == "" {
		req.Type = TypePrivate
	}
	if s.grid.Index(req.Slot) < 0 {
		return nil, "", fmt.Errorf("%w: %q", schedule.ErrUnknownSlot, req.Slot)
	}

	coach, err := s.repo.GetCoach(ctx, req.CoachID)
	if err != nil {
		return nil, "", err
	}

	appt := s.newAppointment(req)

	key := redisclient.SlotKey(coach.ID, req.Date, req.Slot)
	err = s.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		// Inside the critical section re-check the tuple against a fresh
		// snapshot of the day.
		active, err := s.repo.ListActiveForDay(lockCtx, coach.ID, req.Date)
		if err != nil {
			return fmt.Errorf("load day snapshot: %w", err)
		}

		res := schedule.Resolve(req.Date, req.Slot, coach, records(active), uuid.Nil)
		if res.State != schedule.SlotAvailable {
			return resolutionError(res)
		}

		ev := s.event(outbox.EventBookingCreated, appt.ID, map[string]any{
			"appointment_id": appt.ID.String(),
			"coach_id":       coach.ID.String(),
			"date":           appt.Date,
			"slot":           appt.Slot,
			"type":           string(appt.Type),
		})
		return s.repo.SaveBatch(lockCtx, []Appointment{*appt}, []outbox.Event{ev})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, "", ErrSlotBeingBooked
		}
		return nil, "", err
	}

	warning := ""
	if appt.Type == TypePrivate {
		warning = s.creditWarning(ctx, appt.ExternalUserID, appt.Customer, 1)
	}

	s.log(ctx, audit.Entry{
		Actor:   actor.Label(),
		Action:  "booking_created",
		Details: fmt.Sprintf("%s %s %s coach %s", appt.Type, appt.Date, appt.Slot, coach.Name),
	})

	return appt, warning, nil
}

type BlockForm struct {
	ID             uuid.UUID // set when editing an existing record in place
	Type           Type      // defaults to block
	Date           string
	Slot           string
	EndSlot        string // batch mode: end of the slot range, exclusive
	CoachID        uuid.UUID
	Reason         string
	Service        *Service
	Customer       *Customer
	ExternalUserID string
	Capacity       int
}

type SlotRef struct {
	Date string
	Slot string
}

type BlockResult struct {
	Created int
	Skipped []SlotRef // tuples that were already occupied and silently passed over
	Warning string
}

// SaveBlock creates or updates staff blocks and batch bookings. Batch mode
// expands the slot range crossed with weekly repeats; every tuple is resolved
// against the day snapshots fetched at the start of the call, occupied tuples
// are skipped rather than failing the request, and the whole set of created
// records is written as one transaction. Recurring copies are independent
// records with fresh ids; only the first occurrence of an in-place edit keeps
// the form's id.
func (s *Scheduler) SaveBlock(ctx context.Context, form BlockForm, batch bool, repeatWeeks int, actor Actor) (BlockResult, error) {
	if !actor.IsStaff() {
		return BlockResult{}, ErrRoleForbidden
	}
	if form.Type == "" {
		form.Type = TypeBlock
	}
	if repeatWeeks < 1 {
		repeatWeeks = 1
	}

	var slots []string
	if batch {
		span, err := s.grid.Span(form.Slot, form.EndSlot)
		if err != nil {
			return BlockResult{}, err
		}
		slots = span
	} else {
		if s.grid.Index(form.Slot) < 0 {
			return BlockResult{}, fmt.Errorf("%w: %q", schedule.ErrUnknownSlot, form.Slot)
		}
		slots = []string{form.Slot}
	}

	coach, err := s.repo.GetCoach(ctx, form.CoachID)
	if err != nil {
		return BlockResult{}, err
	}

	var queue []Appointment
	var skipped []SlotRef

	for week := 0; week < repeatWeeks; week++ {
		date, err := schedule.AddDays(form.Date, 7*week)
		if err != nil {
			return BlockResult{}, fmt.Errorf("%w: %q", ErrBadDate, form.Date)
		}

		active, err := s.repo.ListActiveForDay(ctx, coach.ID, date)
		if err != nil {
			return BlockResult{}, fmt.Errorf("load day snapshot: %w", err)
		}
		snapshot := records(active)

		for _, slot := range slots {
			res := schedule.Resolve(date, slot, coach, snapshot, form.ID)
			if res.State != schedule.SlotAvailable {
				skipped = append(skipped, SlotRef{Date: date, Slot: slot})
				continue
			}

			appt := s.newAppointment(BookingRequest{
				Type:           form.Type,
				Date:           date,
				Slot:           slot,
				CoachID:        form.CoachID,
				Service:        form.Service,
				Customer:       form.Customer,
				ExternalUserID: form.ExternalUserID,
				Capacity:       form.Capacity,
			})
			appt.Reason = form.Reason
			if len(queue) == 0 && form.ID != uuid.Nil {
				// Edit in place: the first occurrence keeps the existing id so
				// the save is an idempotent update, not a duplicate insert.
				appt.ID = form.ID
			}
			queue = append(queue, *appt)
		}
	}

	if len(queue) == 0 {
		return BlockResult{Skipped: skipped}, ErrNoValidSlots
	}

	warning := ""
	if form.Type == TypePrivate {
		warning = s.creditWarning(ctx, form.ExternalUserID, form.Customer, len(queue))
	}

	ev := s.event(outbox.EventBlockSaved, queue[0].ID, map[string]any{
		"coach_id": coach.ID.String(),
		"type":     string(form.Type),
		"date":     form.Date,
		"created":  len(queue),
		"skipped":  len(skipped),
	})
	if err := s.repo.SaveBatch(ctx, queue, []outbox.Event{ev}); err != nil {
		return BlockResult{}, err
	}

	s.log(ctx, audit.Entry{
		Actor:   actor.Label(),
		Action:  "block_saved",
		Details: fmt.Sprintf("%s coach %s from %s: created %d, skipped %d", form.Type, coach.Name, form.Date, len(queue), len(skipped)),
	})

	return BlockResult{Created: len(queue), Skipped: skipped, Warning: warning}, nil
}

func (s *Scheduler) newAppointment(req BookingRequest) *Appointment {
	capacity := req.Capacity
	if req.Type == TypeGroup && capacity <= 0 {
		capacity = schedule.DefaultGroupCapacity
	}
	return &Appointment{
		ID:             uuid.New(),
		Type:           req.Type,
		Date:           req.Date,
		Slot:           req.Slot,
		CoachID:        req.CoachID,
		Service:        req.Service,
		Customer:       req.Customer,
		ExternalUserID: req.ExternalUserID,
		Capacity:       capacity,
		Status:         StatusConfirmed,
	}
}

// creditWarning reports, without blocking, when the ledger account backing a
// private booking cannot cover the number of sessions being created.
func (s *Scheduler) creditWarning(ctx context.Context, externalID string, customer *Customer, count int) string {
	name, phone := "", ""
	if customer != nil {
		name, phone = customer.Name, customer.Phone
	}

	acct, err := s.credits.Match(ctx, externalID, name, phone)
	if err != nil {
		if errors.Is(err, ledger.ErrNoMatch) {
			return "no credit account matched this customer; completion will not debit"
		}
		log.Printf("credit check failed: %v", err)
		return ""
	}
	if acct.PrivateCredits < count {
		return fmt.Sprintf("account %s has %d private credits for %d session(s)", acct.Name, acct.PrivateCredits, count)
	}
	return ""
}

func resolutionError(res schedule.Resolution) error {
	switch res.Reason {
	case schedule.ReasonDayOff:
		return ErrDayOff
	case schedule.ReasonOutsideHours:
		return ErrOutsideHours
	case schedule.ReasonBadDate:
		return ErrBadDate
	case schedule.ReasonNoCoach:
		return ErrCoachNotFound
	default:
		return ErrSlotConflict
	}
}

func (s *Scheduler) event(eventType string, apptID uuid.UUID, payload map[string]any) outbox.Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}
	id := apptID
	return outbox.Event{
		EventType:     eventType,
		AppointmentID: &id,
		Payload:       data,
	}
}

func (s *Scheduler) log(ctx context.Context, e audit.Entry) {
	if err := s.audit.Append(ctx, e); err != nil {
		log.Printf("failed to append audit entry %s: %v", e.Action, err)
	}
}
