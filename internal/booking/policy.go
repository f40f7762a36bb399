package booking

import (
	"errors"
	"time"

	"github.com/Ja5on1in/gym-book-sub000/internal/schedule"
)

// DefaultCancelNotice is how far ahead of the scheduled start a customer may
// still cancel on their own. Staff bypass the gate unconditionally.
const DefaultCancelNotice = 24 * time.Hour

var ErrCancelWindow = errors.New("customer cancellations must be made more than 24 hours before the session")

// CanSelfCancel gates a customer self-cancellation against the record's
// scheduled start. It is a pure wall-clock comparison; the ledger is never
// consulted.
func CanSelfCancel(a *Appointment, now time.Time, notice time.Duration) error {
	if notice <= 0 {
		notice = DefaultCancelNotice
	}
	start, err := schedule.StartTime(a.Date, a.Slot)
	if err != nil {
		return err
	}
	if start.Sub(now) < notice {
		return ErrCancelWindow
	}
	return nil
}
