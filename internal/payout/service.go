package payout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prep-pay/prep_pay/internal/notification"
	"github.com/prep-pay/prep_pay/internal/paystack"
	"github.com/prep-pay/prep_pay/internal/wallet"
)

const (
	descriptionWithdrawal = "Withdrawal to bank account"
	descriptionReversal   = "Withdrawal reversal"
)

// Provider abstracts the payment provider's transfer API.
type Provider interface {
	CreateTransferRecipient(ctx context.Context, input paystack.RecipientInput) (paystack.TransferRecipient, error)
	InitiateTransfer(ctx context.Context, input paystack.TransferInput) (paystack.Transfer, error)
}

// Service coordinates wallet debits with provider-side transfers.
type Service struct {
	wallets  *wallet.Service
	provider Provider
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds a payout service.
func NewService(wallets *wallet.Service, provider Provider, notifier notification.Notifier, logger *slog.Logger) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("provider client is required")
	}
	return &Service{wallets: wallets, provider: provider, notifier: notifier, logger: logger}, nil
}

// WithdrawInput captures a withdrawal request.
type WithdrawInput struct {
	UserID        string
	Amount        decimal.Decimal
	AccountNumber string
	BankCode      string
	AccountName   string
	Reference     string
}

// WithdrawResult describes an initiated withdrawal.
type WithdrawResult struct {
	TransactionID string
	TransferCode  string
	Reference     string
	Balance       decimal.Decimal
	CompletedAt   time.Time
}

// Withdraw debits the wallet and initiates a provider transfer to the user's
// bank account. The wallet debit is posted first; if the provider call fails
// the debit is reversed by a compensating credit.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (WithdrawResult, error) {
	if !input.Amount.IsPositive() {
		return WithdrawResult{}, fmt.Errorf("amount must be positive")
	}
	minorUnits := input.Amount.Shift(2)
	if !minorUnits.IsInteger() {
		return WithdrawResult{}, fmt.Errorf("amount precision exceeds minor units")
	}
	if input.Reference == "" {
		input.Reference = uuid.NewString()
	}

	user, err := s.wallets.Get(ctx, input.UserID)
	if err != nil {
		return WithdrawResult{}, err
	}

	recipientCode := user.RecipientCode
	if recipientCode == "" {
		if input.AccountNumber == "" || input.BankCode == "" {
			return WithdrawResult{}, fmt.Errorf("bank account details are required")
		}
		recipient, err := s.provider.CreateTransferRecipient(ctx, paystack.RecipientInput{
			Name:          input.AccountName,
			AccountNumber: input.AccountNumber,
			BankCode:      input.BankCode,
		})
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("create transfer recipient: %w", err)
		}
		recipientCode = recipient.RecipientCode
		if err := s.wallets.SetRecipientCode(ctx, user.ID, recipientCode); err != nil {
			return WithdrawResult{}, err
		}
	}

	debit, err := s.wallets.Debit(ctx, wallet.DebitInput{
		UserID:      user.ID,
		Amount:      input.Amount,
		Reference:   input.Reference,
		Description: descriptionWithdrawal,
	})
	if err != nil {
		return WithdrawResult{}, err
	}

	transfer, err := s.provider.InitiateTransfer(ctx, paystack.TransferInput{
		RecipientCode: recipientCode,
		AmountMinor:   minorUnits.IntPart(),
		Reference:     input.Reference,
		Reason:        descriptionWithdrawal,
	})
	if err != nil {
		s.reverse(ctx, user, input)
		return WithdrawResult{}, fmt.Errorf("initiate transfer: %w", err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWithdrawal,
			Destination: user.Email,
			Body:        fmt.Sprintf("Withdrawal of %s initiated", input.Amount.StringFixed(2)),
		})
	}

	return WithdrawResult{
		TransactionID: debit.TransactionID,
		TransferCode:  transfer.TransferCode,
		Reference:     input.Reference,
		Balance:       debit.Balance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// reverse posts a compensating credit for a debit whose provider transfer
// failed. The credit targets the debited user's identifier directly rather
// than re-running the lookup policy, and carries a derived reference so the
// original debit remains deduplicated.
func (s *Service) reverse(ctx context.Context, user wallet.User, input WithdrawInput) {
	_, err := s.wallets.Refund(ctx, wallet.RefundInput{
		UserID:      user.ID,
		Amount:      input.Amount,
		Reference:   input.Reference + ":reversal",
		Description: descriptionReversal,
	})
	if err != nil && s.logger != nil {
		s.logger.Error("withdrawal reversal failed, wallet debited without transfer",
			slog.String("user_id", user.ID),
			slog.String("reference", input.Reference),
			slog.Any("error", err),
		)
	}
}
