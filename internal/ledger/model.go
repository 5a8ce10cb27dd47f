package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a single-currency stored value account. Exactly one wallet exists
// per user for the lifetime of the system; its balance is mutated only by the
// engine inside an atomic unit that also writes a transaction row.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a registered wallet owner. Email, phone and BVN anchor uniqueness.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	BVN          string
	DateOfBirth  string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// FullName concatenates the user's names for display snapshots.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
