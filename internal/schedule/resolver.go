package schedule

import (
	"github.com/google/uuid"
)

type SlotState string

const (
	SlotAvailable   SlotState = "available"
	SlotBooked      SlotState = "booked"
	SlotUnavailable SlotState = "unavailable"
)

type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNoCoach      Reason = "no_coach"
	ReasonBadDate      Reason = "bad_date"
	ReasonDayOff       Reason = "day_off"
	ReasonOutsideHours Reason = "outside_hours"
	ReasonOccupied     Reason = "occupied"
)

// Record is the resolver's view of an appointment. Kind mirrors the
// appointment type; group records share a tuple up to Capacity.
type Record struct {
	ID        uuid.UUID
	Date      string
	Slot      string
	CoachID   uuid.UUID
	Kind      string // private, group or block
	Capacity  int
	Cancelled bool
}

// Resolution is the outcome of a slot lookup. Occupying is set when a
// private/block record holds the tuple; Remaining is the group capacity left
// when an open group session occupies it.
type Resolution struct {
	State     SlotState
	Reason    Reason
	Occupying *Record
	Remaining int
}

// Resolve computes the status of a (date, slot) tuple for a coach against a
// set of existing records. It is a pure function: no side effects, safe to
// call repeatedly and concurrently. Pass ignore = uuid.Nil unless re-checking
// a record that is being edited in place.
func Resolve(date, slot string, coach *Coach, records []Record, ignore uuid.UUID) Resolution {
	if coach == nil {
		return Resolution{State: SlotUnavailable, Reason: ReasonNoCoach}
	}

	weekday, err := Weekday(date)
	if err != nil {
		return Resolution{State: SlotUnavailable, Reason: ReasonBadDate}
	}
	if coach.OffOn(date) || !coach.WorksOn(weekday) {
		return Resolution{State: SlotUnavailable, Reason: ReasonDayOff}
	}

	win := coach.Window(weekday)
	t, ok := minutesOfDay(slot)
	start, okStart := minutesOfDay(win.Start)
	end, okEnd := minutesOfDay(win.End)
	if !ok || !okStart || !okEnd || t < start || t >= end {
		return Resolution{State: SlotUnavailable, Reason: ReasonOutsideHours}
	}

	var matches []Record
	for _, r := range records {
		if r.Cancelled || r.ID == ignore {
			continue
		}
		if r.Date == date && r.Slot == slot && r.CoachID == coach.ID {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return Resolution{State: SlotAvailable}
	}

	first := matches[0]
	if first.Kind == "group" {
		seats := first.Capacity
		if seats <= 0 {
			seats = DefaultGroupCapacity
		}
		if len(matches) < seats {
			return Resolution{State: SlotAvailable, Remaining: seats - len(matches)}
		}
		return Resolution{State: SlotBooked, Reason: ReasonOccupied, Occupying: &first}
	}

	return Resolution{State: SlotBooked, Reason: ReasonOccupied, Occupying: &first}
}
