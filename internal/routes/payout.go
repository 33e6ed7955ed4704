package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/prep-pay/prep_pay/internal/payout"
)

// RegisterPayoutRoutes wires withdrawal endpoints.
func RegisterPayoutRoutes(r fiber.Router, h *payout.Handler) {
	r.Post("/wallets/:userId/withdraw", h.Withdraw)
}
