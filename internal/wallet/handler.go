package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet read endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Reference   string    `json:"reference"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Balance returns the wallet balance for a user.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID := c.Params("userId")
	balance, err := h.service.Balance(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id": balance.UserID,
		"balance": balance.Amount.StringFixed(2),
		"as_of":   balance.AsOf,
	})
}

// Transactions returns the wallet history for a user, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID := c.Params("userId")
	history, err := h.service.Transactions(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]transactionResponse, 0, len(history))
	for _, tr := range history {
		items = append(items, transactionResponse{
			ID:          tr.ID,
			Type:        tr.Type,
			Amount:      tr.Amount.StringFixed(2),
			Description: tr.Description,
			Reference:   tr.Reference,
			Status:      tr.Status,
			CreatedAt:   tr.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user_id": userID, "transactions": items})
}
