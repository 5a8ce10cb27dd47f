package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/kudipay/kudi_pay/internal/apperr"
	"github.com/kudipay/kudi_pay/internal/transaction"
)

// Engine orchestrates fund, transfer and withdraw as atomic operations that
// combine a balance mutation with transaction recording. It owns all invariant
// enforcement; nothing else mutates wallet balances.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// NewEngine builds an engine over the given store.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// OperationMeta carries request context stored on transaction rows.
type OperationMeta struct {
	Channel   string
	IPAddress string
	UserAgent string
}

// FundInput describes a wallet credit.
type FundInput struct {
	OwnerID   string
	Amount    decimal.Decimal
	Reference string
	Meta      OperationMeta
}

// WithdrawInput describes a wallet debit.
type WithdrawInput struct {
	OwnerID   string
	Amount    decimal.Decimal
	Reference string
	Meta      OperationMeta
}

// TransferInput describes a wallet-to-wallet move keyed by recipient email.
type TransferInput struct {
	SenderOwnerID  string
	RecipientEmail string
	Amount         decimal.Decimal
	Reference      string
	Meta           OperationMeta
}

// OperationResult is the outcome of a fund or withdraw: the updated wallet and
// the SUCCESS transaction receipt with denormalized display data.
type OperationResult struct {
	Wallet  Wallet
	Receipt transaction.Receipt
}

// TransferResult carries the sender-side outcome of a transfer. The credit leg
// is recorded but not surfaced here.
type TransferResult struct {
	SenderWallet Wallet
	Receipt      transaction.Receipt
}

// Fund credits the owner's wallet and records a SUCCESS FUND transaction, all
// within one atomic unit of work.
func (e *Engine) Fund(ctx context.Context, in FundInput) (OperationResult, error) {
	if err := validateAmount(in.Amount); err != nil {
		return OperationResult{}, err
	}

	var result OperationResult
	err := e.store.RunAtomic(ctx, func(ctx context.Context, tx Tx) error {
		w, err := tx.WalletByOwnerForUpdate(ctx, in.OwnerID)
		if err != nil {
			return walletLookupErr(err)
		}

		newBalance := w.Balance.Add(in.Amount)
		updated, err := tx.UpdateWalletBalance(ctx, w.ID, newBalance)
		if err != nil {
			return err
		}

		receipt, err := e.record(ctx, tx, transaction.CreateInput{
			WalletID:      w.ID,
			OwnerID:       w.OwnerID,
			Type:          transaction.TypeFund,
			Amount:        in.Amount,
			Reference:     in.Reference,
			BalanceBefore: w.Balance,
			BalanceAfter:  newBalance,
			Channel:       in.Meta.Channel,
			IPAddress:     in.Meta.IPAddress,
			UserAgent:     in.Meta.UserAgent,
		})
		if err != nil {
			return err
		}

		result = OperationResult{Wallet: updated, Receipt: receipt}
		return nil
	})
	if err != nil {
		return OperationResult{}, e.domainErr(err, "fund failed")
	}

	e.logger.Info("wallet funded",
		"wallet_id", result.Wallet.ID,
		"amount", in.Amount.StringFixed(2),
		"reference", result.Receipt.Reference,
	)
	return result, nil
}

// Withdraw debits the owner's wallet, rejecting overdrafts, and records a
// SUCCESS WITHDRAW transaction within one atomic unit of work.
func (e *Engine) Withdraw(ctx context.Context, in WithdrawInput) (OperationResult, error) {
	if err := validateAmount(in.Amount); err != nil {
		return OperationResult{}, err
	}

	var result OperationResult
	err := e.store.RunAtomic(ctx, func(ctx context.Context, tx Tx) error {
		w, err := tx.WalletByOwnerForUpdate(ctx, in.OwnerID)
		if err != nil {
			return walletLookupErr(err)
		}

		if w.Balance.LessThan(in.Amount) {
			return apperr.E(apperr.InsufficientFunds, "insufficient funds")
		}

		newBalance := w.Balance.Sub(in.Amount)
		updated, err := tx.UpdateWalletBalance(ctx, w.ID, newBalance)
		if err != nil {
			return err
		}

		receipt, err := e.record(ctx, tx, transaction.CreateInput{
			WalletID:      w.ID,
			OwnerID:       w.OwnerID,
			Type:          transaction.TypeWithdraw,
			Amount:        in.Amount,
			Reference:     in.Reference,
			BalanceBefore: w.Balance,
			BalanceAfter:  newBalance,
			Channel:       in.Meta.Channel,
			IPAddress:     in.Meta.IPAddress,
			UserAgent:     in.Meta.UserAgent,
		})
		if err != nil {
			return err
		}

		result = OperationResult{Wallet: updated, Receipt: receipt}
		return nil
	})
	if err != nil {
		return OperationResult{}, e.domainErr(err, "withdraw failed")
	}

	e.logger.Info("wallet debited",
		"wallet_id", result.Wallet.ID,
		"amount", in.Amount.StringFixed(2),
		"reference", result.Receipt.Reference,
	)
	return result, nil
}

// Transfer debits the sender and credits the recipient in the same atomic
// unit, recording two transaction legs that share one reference. Only the
// sender-side leg is returned.
func (e *Engine) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if err := validateAmount(in.Amount); err != nil {
		return TransferResult{}, err
	}

	reference := in.Reference
	if reference == "" {
		reference = transaction.GenerateReference()
	}

	var result TransferResult
	err := e.store.RunAtomic(ctx, func(ctx context.Context, tx Tx) error {
		recipient, err := tx.UserByEmail(ctx, in.RecipientEmail)
		if err != nil {
			return err
		}

		ownerIDs := []string{in.SenderOwnerID}
		if recipient != nil {
			ownerIDs = append(ownerIDs, recipient.ID)
		}

		// Single locking call keeps the lock order fixed (ascending wallet id)
		// regardless of transfer direction.
		locked, err := tx.WalletsForUpdate(ctx, ownerIDs...)
		if err != nil {
			return err
		}
		byOwner := make(map[string]Wallet, len(locked))
		for _, w := range locked {
			byOwner[w.OwnerID] = w
		}

		sender, ok := byOwner[in.SenderOwnerID]
		if !ok {
			return apperr.E(apperr.WalletNotFound, "wallet not found")
		}
		if sender.Balance.LessThan(in.Amount) {
			return apperr.E(apperr.InsufficientFunds, "insufficient funds")
		}
		if recipient == nil {
			return apperr.E(apperr.RecipientNotFound, "recipient not found")
		}
		if recipient.ID == in.SenderOwnerID {
			return apperr.E(apperr.SelfTransferNotAllowed, "cannot transfer to your own wallet")
		}
		recipientWallet, ok := byOwner[recipient.ID]
		if !ok {
			// Every user owns a wallet; a miss here is a data-integrity fault.
			return apperr.E(apperr.WalletNotFound, "recipient wallet not found")
		}

		senderAfter := sender.Balance.Sub(in.Amount)
		recipientAfter := recipientWallet.Balance.Add(in.Amount)

		updatedSender, err := tx.UpdateWalletBalance(ctx, sender.ID, senderAfter)
		if err != nil {
			return err
		}
		if _, err := tx.UpdateWalletBalance(ctx, recipientWallet.ID, recipientAfter); err != nil {
			return err
		}

		debitLeg, err := e.record(ctx, tx, transaction.CreateInput{
			WalletID:             sender.ID,
			OwnerID:              sender.OwnerID,
			Type:                 transaction.TypeTransfer,
			Amount:               in.Amount,
			Reference:            reference,
			SenderID:             sender.OwnerID,
			ReceiverID:           recipient.ID,
			CounterpartyWalletID: recipientWallet.ID,
			BalanceBefore:        sender.Balance,
			BalanceAfter:         senderAfter,
			Channel:              in.Meta.Channel,
			IPAddress:            in.Meta.IPAddress,
			UserAgent:            in.Meta.UserAgent,
		})
		if err != nil {
			return err
		}

		if _, err := e.record(ctx, tx, transaction.CreateInput{
			WalletID:             recipientWallet.ID,
			OwnerID:              recipient.ID,
			Type:                 transaction.TypeTransfer,
			Amount:               in.Amount,
			Reference:            reference,
			SenderID:             sender.OwnerID,
			ReceiverID:           recipient.ID,
			CounterpartyWalletID: sender.ID,
			BalanceBefore:        recipientWallet.Balance,
			BalanceAfter:         recipientAfter,
			Channel:              in.Meta.Channel,
			IPAddress:            in.Meta.IPAddress,
			UserAgent:            in.Meta.UserAgent,
		}); err != nil {
			return err
		}

		result = TransferResult{SenderWallet: updatedSender, Receipt: debitLeg}
		return nil
	})
	if err != nil {
		return TransferResult{}, e.domainErr(err, "transfer failed")
	}

	e.logger.Info("transfer completed",
		"sender_wallet_id", result.SenderWallet.ID,
		"amount", in.Amount.StringFixed(2),
		"reference", reference,
	)
	return result, nil
}

// record creates a PENDING row and immediately marks it SUCCESS. The balance
// write has already happened inside the same unit, so nothing can fail between
// the two steps from the caller's perspective; a failure here rolls the whole
// unit back.
func (e *Engine) record(ctx context.Context, tx Tx, in transaction.CreateInput) (transaction.Receipt, error) {
	recorder := transaction.NewRecorder(tx)

	receipt, err := recorder.Create(ctx, in)
	if err != nil {
		return transaction.Receipt{}, err
	}

	marked, err := recorder.MarkSuccess(ctx, receipt.ID, nil)
	if err != nil {
		return transaction.Receipt{}, err
	}
	receipt.Transaction = marked
	return receipt, nil
}

// domainErr passes taxonomy errors through untouched and wraps anything else
// (store timeouts, serialization failures) as Internal with context preserved.
func (e *Engine) domainErr(err error, msg string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, ErrDuplicateReference):
		return apperr.Wrap(apperr.Conflict, "reference already used", err)
	case errors.Is(err, ErrWalletNotFound):
		return apperr.Wrap(apperr.WalletNotFound, "wallet not found", err)
	}
	e.logger.Error("ledger operation failed", "error", err)
	return apperr.Wrap(apperr.Internal, msg, err)
}

func walletLookupErr(err error) error {
	if errors.Is(err, ErrWalletNotFound) {
		return apperr.Wrap(apperr.WalletNotFound, "wallet not found", err)
	}
	return err
}

// validateAmount enforces positive amounts with at most two fraction digits.
func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperr.E(apperr.InvalidAmount, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return apperr.E(apperr.InvalidAmount, "amount must have at most two decimal places")
	}
	return nil
}
