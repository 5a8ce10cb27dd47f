package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kudipay/kudi_pay/internal/transaction"
)

var (
	// ErrWalletNotFound occurs when no wallet exists for the requested owner or id.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrUserNotFound occurs when no active user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateReference indicates the (wallet, reference) pair already has a
	// transaction row. References are unique per wallet so both transfer legs
	// can share one reference across two wallets.
	ErrDuplicateReference = errors.New("reference already used for this wallet")

	// ErrUniqueViolation indicates a uniqueness constraint on user identity
	// fields (email, phone, bvn) was hit, e.g. by a concurrent registration.
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// Tx is the handle an atomic unit of work operates through. Everything called
// on it commits or rolls back together. It also satisfies transaction.Store so
// a recorder built over it participates in the same unit.
type Tx interface {
	transaction.Store

	// WalletByOwnerForUpdate loads the owner's wallet under an exclusive row
	// lock, serializing concurrent balance mutations on the same wallet.
	WalletByOwnerForUpdate(ctx context.Context, ownerID string) (Wallet, error)

	// WalletsForUpdate locks the wallets of all given owners in ascending
	// wallet-id order, the fixed global order that keeps concurrent transfers
	// touching the same pair deadlock-free. Owners without wallets are simply
	// absent from the result.
	WalletsForUpdate(ctx context.Context, ownerIDs ...string) ([]Wallet, error)

	WalletByID(ctx context.Context, walletID string) (Wallet, error)

	// UpdateWalletBalance writes the new balance and returns the updated row.
	UpdateWalletBalance(ctx context.Context, walletID string, newBalance decimal.Decimal) (Wallet, error)

	// UserByEmail resolves a user by case-insensitive email. Absent users
	// return (nil, nil), not an error.
	UserByEmail(ctx context.Context, email string) (*User, error)

	UserByID(ctx context.Context, userID string) (User, error)

	CreateUser(ctx context.Context, u User) (User, error)
	CreateWallet(ctx context.Context, w Wallet) (Wallet, error)
}

// Store is the durable storage contract consumed by the engine and the
// registration flow. RunAtomic provides all-or-nothing commit with isolation
// strong enough that two concurrent units touching the same wallet never both
// read a stale balance and both commit.
type Store interface {
	// RunAtomic executes fn within one atomic unit of work under a bounded
	// timeout. Any error from fn (or the deadline) rolls the unit back.
	RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Read-only lookups outside any atomic unit.
	WalletByOwner(ctx context.Context, ownerID string) (Wallet, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, userID string) (User, error)
	TransactionByReference(ctx context.Context, reference string) (*transaction.Transaction, error)
}
