package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kudipay/kudi_pay/internal/ledger"
	"github.com/kudipay/kudi_pay/internal/transaction"
)

type amountRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

type transferRequest struct {
	RecipientEmail string          `json:"recipientEmail"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      string          `json:"reference"`
}

type walletPayload struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Balance   string `json:"balance"`
	UpdatedAt string `json:"updatedAt"`
}

func toWalletPayload(w ledger.Wallet) walletPayload {
	return walletPayload{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Balance:   w.Balance.StringFixed(2),
		UpdatedAt: w.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type ownerPayload struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
}

type transactionPayload struct {
	ID            string         `json:"id"`
	WalletID      string         `json:"walletId"`
	Type          string         `json:"type"`
	Amount        string         `json:"amount"`
	Reference     string         `json:"reference"`
	Status        string         `json:"status"`
	BalanceBefore string         `json:"balanceBefore"`
	BalanceAfter  string         `json:"balanceAfter"`
	Fee           string         `json:"fee"`
	SenderID      string         `json:"senderId,omitempty"`
	ReceiverID    string         `json:"receiverId,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	ProcessedAt   *time.Time     `json:"processedAt,omitempty"`
	Wallet        *walletSummary `json:"wallet,omitempty"`
	Owner         *ownerPayload  `json:"owner,omitempty"`
	Sender        *ownerPayload  `json:"sender,omitempty"`
	Receiver      *ownerPayload  `json:"receiver,omitempty"`
}

type walletSummary struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
}

func toTransactionPayload(r transaction.Receipt) transactionPayload {
	p := transactionPayload{
		ID:            r.ID,
		WalletID:      r.WalletID,
		Type:          string(r.Type),
		Amount:        r.Amount.StringFixed(2),
		Reference:     r.Reference,
		Status:        string(r.Status),
		BalanceBefore: r.BalanceBefore.StringFixed(2),
		BalanceAfter:  r.BalanceAfter.StringFixed(2),
		Fee:           r.Fee.StringFixed(2),
		SenderID:      r.SenderID,
		ReceiverID:    r.ReceiverID,
		CreatedAt:     r.CreatedAt,
		ProcessedAt:   r.ProcessedAt,
	}
	if r.Wallet.ID != "" {
		p.Wallet = &walletSummary{ID: r.Wallet.ID, Balance: r.Wallet.Balance.StringFixed(2)}
	}
	if r.Owner.ID != "" {
		owner := toOwnerPayload(r.Owner)
		p.Owner = &owner
	}
	if r.Sender != nil {
		sender := toOwnerPayload(*r.Sender)
		p.Sender = &sender
	}
	if r.Receiver != nil {
		receiver := toOwnerPayload(*r.Receiver)
		p.Receiver = &receiver
	}
	return p
}

func toOwnerPayload(o transaction.OwnerSnapshot) ownerPayload {
	return ownerPayload{ID: o.ID, FirstName: o.FirstName, LastName: o.LastName, Email: o.Email}
}
