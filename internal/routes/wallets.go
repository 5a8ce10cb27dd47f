package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudi_pay/internal/wallet"
)

// RegisterWalletRoutes wires the wallet endpoints for the authenticated owner.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallets", h.Balance)
	r.Get("/wallets/transactions/:reference", h.Transaction)
	r.Post("/wallets/fund", h.Fund)
	r.Post("/wallets/transfer", h.Transfer)
	r.Post("/wallets/withdraw", h.Withdraw)
}
