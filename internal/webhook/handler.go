package webhook

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/prep-pay/prep_pay/internal/wallet"
)

// SignatureHeader carries the provider's HMAC of the request body.
const SignatureHeader = "x-paystack-signature"

// Handler receives provider webhook deliveries and applies wallet credits.
type Handler struct {
	secret  string
	wallets *wallet.Service
	guard   *ReplayGuard
	logger  *slog.Logger
}

// NewHandler constructs a webhook handler.
func NewHandler(secret string, wallets *wallet.Service, guard *ReplayGuard, logger *slog.Logger) *Handler {
	return &Handler{secret: secret, wallets: wallets, guard: guard, logger: logger}
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Receive handles a single webhook delivery. All recognized-but-inactionable
// outcomes are acknowledged with 200 so the provider stops redelivering;
// only authentication, validation and internal failures return non-2xx.
func (h *Handler) Receive(c *fiber.Ctx) error {
	// The signature covers the exact transmitted bytes; parse only after
	// verification and never re-serialize before hashing.
	body := c.Body()

	if h.secret == "" {
		h.logger.Error("webhook rejected", slog.Any("error", ErrMissingSecret))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error":   "server configuration error",
			"details": ErrMissingSecret.Error(),
		})
	}

	if !Verify(body, h.secret, c.Get(SignatureHeader)) {
		h.logger.Warn("webhook signature mismatch", slog.String("ip", c.IP()))
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		h.logger.Warn("webhook payload unparseable", slog.Any("error", err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "malformed payload"})
	}

	decision := Classify(evt)
	if decision.Credit == nil {
		h.logger.Info("webhook ignored", slog.String("event", evt.Event), slog.String("reason", decision.Reason))
		return c.Status(http.StatusOK).JSON(ackResponse{Success: false, Message: decision.Reason})
	}

	ctx := c.UserContext()
	reference := decision.Credit.Reference

	if !h.guard.Begin(ctx, reference) {
		h.logger.Info("webhook duplicate delivery", slog.String("reference", reference))
		return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: "Event already processed"})
	}

	result, err := h.wallets.Credit(ctx, *decision.Credit)
	switch {
	case err == nil:
		h.guard.Finish(ctx, reference, true)
		h.logger.Info("wallet credited",
			slog.String("user_id", result.UserID),
			slog.String("transaction_id", result.TransactionID),
			slog.String("reference", reference),
			slog.String("amount", decision.Credit.Amount.StringFixed(2)),
		)
		return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: "Wallet credited"})

	case errors.Is(err, wallet.ErrDuplicateReference):
		h.guard.Finish(ctx, reference, true)
		h.logger.Info("webhook replay deduplicated", slog.String("reference", reference), slog.String("user_id", result.UserID))
		return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: "Event already processed"})

	case errors.Is(err, wallet.ErrUserNotFound):
		h.guard.Finish(ctx, reference, false)
		h.logger.Warn("webhook user not found",
			slog.String("lookup_key", string(decision.Credit.LookupKey)),
			slog.String("reference", reference),
		)
		return c.Status(http.StatusOK).JSON(ackResponse{Success: false, Message: "User not found"})

	default:
		h.guard.Finish(ctx, reference, false)
		h.logger.Error("webhook processing failed", slog.String("reference", reference), slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error":   "failed to process event",
			"details": err.Error(),
		})
	}
}
