package wallet

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudi_pay/internal/apperr"
	"github.com/kudipay/kudi_pay/internal/ledger"
	"github.com/kudipay/kudi_pay/internal/notification"
	"github.com/kudipay/kudi_pay/internal/respond"
	"github.com/kudipay/kudi_pay/internal/transaction"
)

// Handler exposes the wallet endpoints: balance, fund, transfer, withdraw.
// All of them act on the authenticated caller's own wallet.
type Handler struct {
	engine   *ledger.Engine
	store    ledger.Store
	notifier notification.Notifier
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(engine *ledger.Engine, store ledger.Store, notifier notification.Notifier) *Handler {
	return &Handler{engine: engine, store: store, notifier: notifier}
}

// Balance returns the caller's wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	ownerID := callerID(c)
	w, err := h.store.WalletByOwner(c.UserContext(), ownerID)
	if err != nil {
		return apperr.Wrap(apperr.WalletNotFound, "wallet not found", err)
	}
	return respond.Success(c, http.StatusOK, "wallet balance", fiber.Map{
		"walletId": w.ID,
		"balance":  w.Balance.StringFixed(2),
	})
}

// Fund credits the caller's wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.engine.Fund(c.UserContext(), ledger.FundInput{
		OwnerID:   callerID(c),
		Amount:    req.Amount,
		Reference: req.Reference,
		Meta:      requestMeta(c),
	})
	if err != nil {
		return err
	}

	return respond.Success(c, http.StatusOK, "wallet funded", fiber.Map{
		"wallet":      toWalletPayload(result.Wallet),
		"transaction": toTransactionPayload(result.Receipt),
	})
}

// Withdraw debits the caller's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.engine.Withdraw(c.UserContext(), ledger.WithdrawInput{
		OwnerID:   callerID(c),
		Amount:    req.Amount,
		Reference: req.Reference,
		Meta:      requestMeta(c),
	})
	if err != nil {
		return err
	}

	return respond.Success(c, http.StatusOK, "withdrawal successful", fiber.Map{
		"wallet":      toWalletPayload(result.Wallet),
		"transaction": toTransactionPayload(result.Receipt),
	})
}

// Transfer moves funds from the caller's wallet to the wallet of the user
// identified by recipientEmail.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.RecipientEmail == "" {
		return fiber.NewError(http.StatusBadRequest, "recipientEmail is required")
	}

	result, err := h.engine.Transfer(c.UserContext(), ledger.TransferInput{
		SenderOwnerID:  callerID(c),
		RecipientEmail: req.RecipientEmail,
		Amount:         req.Amount,
		Reference:      req.Reference,
		Meta:           requestMeta(c),
	})
	if err != nil {
		return err
	}

	if h.notifier != nil && result.Receipt.Receiver != nil {
		_ = h.notifier.Send(c.UserContext(), notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: result.Receipt.Receiver.Email,
			Body:        fmt.Sprintf("You received %s", result.Receipt.Amount.StringFixed(2)),
		})
	}

	return respond.Success(c, http.StatusOK, "transfer successful", fiber.Map{
		"transaction": toTransactionPayload(result.Receipt),
	})
}

// Transaction looks up a transaction by reference. For transfers the shared
// reference resolves to the earliest (debit) leg; the row is only visible to
// parties involved in it.
func (h *Handler) Transaction(c *fiber.Ctx) error {
	reference := c.Params("reference")
	ownerID := callerID(c)

	txn, err := h.store.TransactionByReference(c.UserContext(), reference)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "transaction lookup failed", err)
	}
	if txn == nil || !visibleTo(*txn, ownerID) {
		return apperr.E(apperr.NotFound, "transaction not found")
	}

	return respond.Success(c, http.StatusOK, "transaction", fiber.Map{
		"transaction": toTransactionPayload(transaction.Receipt{Transaction: *txn}),
	})
}

func visibleTo(txn transaction.Transaction, ownerID string) bool {
	return txn.OwnerID == ownerID || txn.SenderID == ownerID || txn.ReceiverID == ownerID
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func requestMeta(c *fiber.Ctx) ledger.OperationMeta {
	return ledger.OperationMeta{
		Channel:   c.Get("X-Channel"),
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}
