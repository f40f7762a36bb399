package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ja5on1in/gym-book-sub000/internal/schedule"
)

type Type string

const (
	TypePrivate Type = "private"
	TypeGroup   Type = "group"
	TypeBlock   Type = "block"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Role string

const (
	RoleManager      Role = "manager"
	RoleCoach        Role = "coach"
	RoleReceptionist Role = "receptionist"
	RoleCustomer     Role = "customer"
)

// Actor is the opaque identity every scheduler and lifecycle call receives.
// Roles are resolved by the identity collaborator at the edge and passed in
// explicitly, never inferred from ambient state.
type Actor struct {
	Role       Role
	ExternalID string
	Name       string
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleManager || a.Role == RoleCoach || a.Role == RoleReceptionist
}

func (a Actor) IsManager() bool {
	return a.Role == RoleManager
}

// Label is the actor string recorded in audit rows.
func (a Actor) Label() string {
	if a.Name != "" {
		return string(a.Role) + ":" + a.Name
	}
	return string(a.Role)
}

type Service struct {
	Name    string
	Minutes int
}

type Customer struct {
	Name  string
	Phone string
	Email string
}

// Appointment is a concrete record on the grid: a paying private session, a
// seat in a group session, or a staff block reserving the coach's time.
type Appointment struct {
	ID             uuid.UUID
	Type           Type
	Date           string // ISO day
	Slot           string // grid label, e.g. "09:00"
	CoachID        uuid.UUID
	Service        *Service
	Customer       *Customer
	ExternalUserID string // messaging-platform identity used for ledger matching
	Reason         string // free text for blocks and group labels
	Capacity       int    // group only
	Status         Status
	CancelReason   string
	// DebitedAccountID records which account lost a credit at completion so a
	// manager reversal can refund exactly that account.
	DebitedAccountID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Active reports whether the record still occupies its slot.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// Record converts the appointment into the resolver's view of it.
func (a *Appointment) Record() schedule.Record {
	return schedule.Record{
		ID:        a.ID,
		Date:      a.Date,
		Slot:      a.Slot,
		CoachID:   a.CoachID,
		Kind:      string(a.Type),
		Capacity:  a.Capacity,
		Cancelled: a.Status == StatusCancelled,
	}
}

func records(appts []Appointment) []schedule.Record {
	out := make([]schedule.Record, 0, len(appts))
	for i := range appts {
		out = append(out, appts[i].Record())
	}
	return out
}
