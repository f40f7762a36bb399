package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Field selects which prepaid balance an operation touches.
type Field string

const (
	FieldPrivate Field = "private"
	FieldGroup   Field = "group"
)

// Account is a customer's prepaid-credit record. Balances are mutated only by
// relative increments issued through this package; a whole-object overwrite
// from an unrelated edit path would clobber concurrent adjustments.
type Account struct {
	ID             uuid.UUID
	Name           string
	Phone          string
	ExternalUserID string
	PrivateCredits int
	GroupCredits   int
	LastUpdated    time.Time
}

// Balance returns the credits for a field.
func (a *Account) Balance(f Field) int {
	if f == FieldGroup {
		return a.GroupCredits
	}
	return a.PrivateCredits
}
