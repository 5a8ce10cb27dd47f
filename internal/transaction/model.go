package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type classifies the balance effect of a transaction.
type Type string

const (
	TypeFund     Type = "FUND"
	TypeTransfer Type = "TRANSFER"
	TypeWithdraw Type = "WITHDRAW"
)

// Status tracks the lifecycle of a transaction row. PENDING is the only
// non-terminal state; SUCCESS, FAILED and CANCELLED are one-way.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// Transaction is an immutable-once-terminal record of one balance-affecting
// event. Transfers produce two rows (debit and credit leg) sharing a reference.
type Transaction struct {
	ID                   string
	WalletID             string
	OwnerID              string
	Type                 Type
	Amount               decimal.Decimal
	Reference            string
	SenderID             string
	ReceiverID           string
	CounterpartyWalletID string
	Status               Status
	BalanceBefore        decimal.Decimal
	BalanceAfter         decimal.Decimal
	Fee                  decimal.Decimal
	Channel              string
	IPAddress            string
	UserAgent            string
	CreatedAt            time.Time
	ProcessedAt          *time.Time
	FailedAt             *time.Time
	FailureReason        string
}

// SignedAmount is the balance delta this row contributes once SUCCESS:
// credits are positive, debits negative.
func (t Transaction) SignedAmount() decimal.Decimal {
	switch t.Type {
	case TypeWithdraw:
		return t.Amount.Neg()
	case TypeTransfer:
		if t.SenderID != "" && t.OwnerID == t.SenderID {
			return t.Amount.Neg()
		}
		return t.Amount
	default:
		return t.Amount
	}
}

// WalletSnapshot is a denormalized wallet view attached to receipts for
// display. Read-only; never used to mutate state.
type WalletSnapshot struct {
	ID      string
	OwnerID string
	Balance decimal.Decimal
}

// OwnerSnapshot is a denormalized user view attached to receipts.
type OwnerSnapshot struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// Receipt joins a transaction with wallet and owner snapshots, plus sender and
// receiver snapshots for transfer legs.
type Receipt struct {
	Transaction
	Wallet   WalletSnapshot
	Owner    OwnerSnapshot
	Sender   *OwnerSnapshot
	Receiver *OwnerSnapshot
}
