package payout

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/prep-pay/prep_pay/internal/wallet"
)

// Handler exposes HTTP endpoints for withdrawals.
type Handler struct {
	service *Service
}

// NewHandler constructs a payout handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Withdraw processes a wallet withdrawal to a bank account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	userID := c.Params("userId")
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		UserID:        userID,
		Amount:        req.Amount,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		AccountName:   req.AccountName,
		Reference:     req.Reference,
	})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrUserNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, wallet.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, wallet.ErrDuplicateReference):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(WithdrawResponse{
		TransactionID: result.TransactionID,
		TransferCode:  result.TransferCode,
		Reference:     result.Reference,
		Balance:       result.Balance.StringFixed(2),
	})
}
