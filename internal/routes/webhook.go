package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/prep-pay/prep_pay/internal/webhook"
)

// RegisterWebhookRoutes wires the provider webhook endpoint. Only POST is
// registered; other methods receive 405 from the router.
func RegisterWebhookRoutes(r fiber.Router, h *webhook.Handler) {
	r.Post("/webhooks/paystack", h.Receive)
}
