package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prep-pay/prep_pay/internal/notification"
)

// LookupKey selects which user field a credit instruction resolves against.
type LookupKey string

const (
	// LookupEmail resolves the user by email address.
	LookupEmail LookupKey = "email"
	// LookupRecipientCode resolves the user by provider recipient code.
	LookupRecipientCode LookupKey = "recipient_code"
)

// Service exposes wallet operations backed by the user repository.
type Service struct {
	repo     Repository
	notifier notification.Notifier
}

// NewService builds a wallet service instance.
func NewService(repo Repository, notifier notification.Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// CreditInput captures a resolved payment event to apply to a wallet.
type CreditInput struct {
	LookupKey   LookupKey
	LookupValue string
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// CreditResult describes the outcome of crediting a wallet.
type CreditResult struct {
	UserID        string
	TransactionID string
	Balance       decimal.Decimal
	CompletedAt   time.Time
}

// Credit resolves the target user and applies the balance increment plus the
// audit entry. A replayed reference returns the recorded outcome together
// with ErrDuplicateReference so callers can acknowledge without re-applying.
func (s *Service) Credit(ctx context.Context, input CreditInput) (CreditResult, error) {
	if !input.Amount.IsPositive() {
		return CreditResult{}, fmt.Errorf("amount must be positive")
	}
	if input.Reference == "" {
		return CreditResult{}, fmt.Errorf("reference is required")
	}

	user, err := s.resolve(ctx, input.LookupKey, input.LookupValue)
	if err != nil {
		return CreditResult{}, err
	}

	res, err := s.repo.Credit(ctx, user.ID, Entry{
		Amount:      input.Amount,
		Description: input.Description,
		Reference:   input.Reference,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			return CreditResult{
				UserID:        user.ID,
				TransactionID: res.TransactionID,
				Balance:       res.Balance,
				CompletedAt:   time.Now().UTC(),
			}, err
		}
		return CreditResult{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWalletCredit,
			Destination: user.Email,
			Body:        fmt.Sprintf("Your wallet was credited with %s", input.Amount.StringFixed(2)),
		})
	}

	return CreditResult{
		UserID:        user.ID,
		TransactionID: res.TransactionID,
		Balance:       res.Balance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// RefundInput captures a compensating credit for an already-resolved user.
type RefundInput struct {
	UserID      string
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// Refund applies a credit to a known user identifier, bypassing the lookup
// policy. Reversals use this so the compensation lands on the exact account
// that was debited even when lookup keys are shared between records.
func (s *Service) Refund(ctx context.Context, input RefundInput) (CreditResult, error) {
	if !input.Amount.IsPositive() {
		return CreditResult{}, fmt.Errorf("amount must be positive")
	}
	if input.Reference == "" {
		return CreditResult{}, fmt.Errorf("reference is required")
	}

	res, err := s.repo.Credit(ctx, input.UserID, Entry{
		Amount:      input.Amount,
		Description: input.Description,
		Reference:   input.Reference,
	})
	if err != nil {
		return CreditResult{}, err
	}

	return CreditResult{
		UserID:        input.UserID,
		TransactionID: res.TransactionID,
		Balance:       res.Balance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// DebitInput captures a withdrawal to post against a wallet.
type DebitInput struct {
	UserID      string
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// DebitResult describes the outcome of debiting a wallet.
type DebitResult struct {
	TransactionID string
	Balance       decimal.Decimal
	CompletedAt   time.Time
}

// Debit posts a withdrawal against the user's wallet.
func (s *Service) Debit(ctx context.Context, input DebitInput) (DebitResult, error) {
	if !input.Amount.IsPositive() {
		return DebitResult{}, fmt.Errorf("amount must be positive")
	}
	if input.Reference == "" {
		return DebitResult{}, fmt.Errorf("reference is required")
	}

	res, err := s.repo.Debit(ctx, input.UserID, Entry{
		Amount:      input.Amount,
		Description: input.Description,
		Reference:   input.Reference,
	})
	if err != nil {
		return DebitResult{}, err
	}

	return DebitResult{
		TransactionID: res.TransactionID,
		Balance:       res.Balance,
		CompletedAt:   time.Now().UTC(),
	}, nil
}

// Get retrieves a user record.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

// SetRecipientCode stores the provider recipient code on the user record.
func (s *Service) SetRecipientCode(ctx context.Context, id, code string) error {
	return s.repo.SetRecipientCode(ctx, id, code)
}

// Balance returns the wallet balance for the user.
func (s *Service) Balance(ctx context.Context, userID string) (Balance, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{UserID: user.ID, Amount: user.Balance, AsOf: time.Now().UTC()}, nil
}

// Transactions lists the user's wallet history, newest first.
func (s *Service) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.Transactions(ctx, userID)
}

func (s *Service) resolve(ctx context.Context, key LookupKey, value string) (User, error) {
	if value == "" {
		return User{}, ErrUserNotFound
	}
	switch key {
	case LookupEmail:
		return s.repo.FindByEmail(ctx, value)
	case LookupRecipientCode:
		return s.repo.FindByRecipientCode(ctx, value)
	default:
		return User{}, fmt.Errorf("unknown lookup key %q", key)
	}
}
