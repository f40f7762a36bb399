// Package outbox decouples webhook notification from the core transactions.
// Producers append events in the same database transaction as the change they
// describe; the dispatcher drains them asynchronously, so a slow or failing
// webhook can never be mistaken for part of the core operation's result.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated = "BOOKING_CREATED"
	EventBlockSaved     = "BLOCK_SAVED"
)

type Event struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}
