package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/prep-pay/prep_pay/internal/wallet"
)

// RegisterWalletRoutes wires wallet read endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallets/:userId", h.Balance)
	r.Get("/wallets/:userId/transactions", h.Transactions)
}
