package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrTerminalStatus indicates an attempted transition out of SUCCESS,
	// FAILED or CANCELLED.
	ErrTerminalStatus = errors.New("transaction already in terminal status")

	// ErrNotFound indicates the transaction row does not exist.
	ErrNotFound = errors.New("transaction not found")
)

// Store is the narrow persistence contract the recorder operates through.
// Inside an atomic unit of work the ledger's Tx handle satisfies it, so every
// recorder write commits or rolls back together with the balance mutation.
type Store interface {
	CreateTransaction(ctx context.Context, txn Transaction) (Transaction, error)
	TransactionByID(ctx context.Context, id string) (Transaction, error)
	UpdateTransaction(ctx context.Context, txn Transaction) (Transaction, error)
	TransactionByReference(ctx context.Context, reference string) (*Transaction, error)
	WalletSnapshotByID(ctx context.Context, walletID string) (WalletSnapshot, error)
	OwnerSnapshotByID(ctx context.Context, userID string) (OwnerSnapshot, error)
}

// Recorder creates transaction rows and owns the status state machine.
type Recorder struct {
	store Store
}

// NewRecorder builds a recorder over the given store handle.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// CreateInput carries the full metadata for a new PENDING row. BalanceAfter is
// computed by the caller before creation.
type CreateInput struct {
	WalletID             string
	OwnerID              string
	Type                 Type
	Amount               decimal.Decimal
	Reference            string
	SenderID             string
	ReceiverID           string
	CounterpartyWalletID string
	BalanceBefore        decimal.Decimal
	BalanceAfter         decimal.Decimal
	Fee                  decimal.Decimal
	Channel              string
	IPAddress            string
	UserAgent            string
}

// Create inserts a PENDING transaction and returns it joined with denormalized
// wallet and owner snapshots (plus sender/receiver for transfer legs). The
// snapshots are explicit follow-up reads through the store handle; they are a
// display convenience and never drive mutations.
func (r *Recorder) Create(ctx context.Context, in CreateInput) (Receipt, error) {
	reference := in.Reference
	if reference == "" {
		reference = GenerateReference()
	}

	txn := Transaction{
		WalletID:             in.WalletID,
		OwnerID:              in.OwnerID,
		Type:                 in.Type,
		Amount:               in.Amount,
		Reference:            reference,
		SenderID:             in.SenderID,
		ReceiverID:           in.ReceiverID,
		CounterpartyWalletID: in.CounterpartyWalletID,
		Status:               StatusPending,
		BalanceBefore:        in.BalanceBefore,
		BalanceAfter:         in.BalanceAfter,
		Fee:                  in.Fee,
		Channel:              in.Channel,
		IPAddress:            in.IPAddress,
		UserAgent:            in.UserAgent,
		CreatedAt:            time.Now().UTC(),
	}

	created, err := r.store.CreateTransaction(ctx, txn)
	if err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{Transaction: created}

	receipt.Wallet, err = r.store.WalletSnapshotByID(ctx, created.WalletID)
	if err != nil {
		return Receipt{}, fmt.Errorf("load wallet snapshot: %w", err)
	}
	receipt.Owner, err = r.store.OwnerSnapshotByID(ctx, created.OwnerID)
	if err != nil {
		return Receipt{}, fmt.Errorf("load owner snapshot: %w", err)
	}
	if created.SenderID != "" {
		sender, err := r.store.OwnerSnapshotByID(ctx, created.SenderID)
		if err != nil {
			return Receipt{}, fmt.Errorf("load sender snapshot: %w", err)
		}
		receipt.Sender = &sender
	}
	if created.ReceiverID != "" {
		receiver, err := r.store.OwnerSnapshotByID(ctx, created.ReceiverID)
		if err != nil {
			return Receipt{}, fmt.Errorf("load receiver snapshot: %w", err)
		}
		receipt.Receiver = &receiver
	}

	return receipt, nil
}

// MarkSuccess transitions a PENDING transaction to SUCCESS and stamps
// processedAt. When balanceAfter is non-nil it overwrites the stored value;
// the normal path already supplied it at creation, so this is usually a no-op.
func (r *Recorder) MarkSuccess(ctx context.Context, id string, balanceAfter *decimal.Decimal) (Transaction, error) {
	txn, err := r.store.TransactionByID(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if txn.Status.Terminal() {
		return Transaction{}, ErrTerminalStatus
	}

	now := time.Now().UTC()
	txn.Status = StatusSuccess
	txn.ProcessedAt = &now
	if balanceAfter != nil {
		txn.BalanceAfter = *balanceAfter
	}
	return r.store.UpdateTransaction(ctx, txn)
}

// MarkFailed transitions a PENDING transaction to FAILED with a reason.
func (r *Recorder) MarkFailed(ctx context.Context, id, reason string) (Transaction, error) {
	return r.terminate(ctx, id, StatusFailed, reason)
}

// MarkCancelled transitions a PENDING transaction to CANCELLED with a reason.
func (r *Recorder) MarkCancelled(ctx context.Context, id, reason string) (Transaction, error) {
	return r.terminate(ctx, id, StatusCancelled, reason)
}

func (r *Recorder) terminate(ctx context.Context, id string, status Status, reason string) (Transaction, error) {
	txn, err := r.store.TransactionByID(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if txn.Status.Terminal() {
		return Transaction{}, ErrTerminalStatus
	}

	now := time.Now().UTC()
	txn.Status = status
	txn.FailureReason = reason
	txn.FailedAt = &now
	return r.store.UpdateTransaction(ctx, txn)
}

// ByReference performs a point lookup. A missing reference returns (nil, nil).
func (r *Recorder) ByReference(ctx context.Context, reference string) (*Transaction, error) {
	return r.store.TransactionByReference(ctx, reference)
}
