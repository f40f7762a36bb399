package schedule

import (
	"time"

	"github.com/google/uuid"
)

// DayHours is a start/end pair of "HH:MM" labels, half-open: a slot equal to
// End is not bookable.
type DayHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Coach carries the recurring weekly schedule, per-weekday overrides and
// ad-hoc days off. Mutated only by manager-facing schedule edits, never by
// the booking flow.
type Coach struct {
	ID         uuid.UUID
	Name       string
	Role       string
	WorkDays   []int            // weekday indices, 0 = Sunday
	WorkStart  string           // default daily hours
	WorkEnd    string
	DailyHours map[int]DayHours // per-weekday override of the defaults
	OffDates   []string         // explicit ISO dates off, wins over WorkDays
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WorksOn reports whether the weekday is part of the coach's recurring week.
// A DailyHours override for an absent weekday does not apply.
func (c *Coach) WorksOn(weekday int) bool {
	for _, d := range c.WorkDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// OffOn reports whether the coach has an explicit day off on the date.
func (c *Coach) OffOn(date string) bool {
	for _, d := range c.OffDates {
		if d == date {
			return true
		}
	}
	return false
}

// Window returns the effective working hours for a weekday: the per-day
// override when present, else the default hours.
func (c *Coach) Window(weekday int) DayHours {
	if h, ok := c.DailyHours[weekday]; ok && h.Start != "" && h.End != "" {
		return h
	}
	return DayHours{Start: c.WorkStart, End: c.WorkEnd}
}
