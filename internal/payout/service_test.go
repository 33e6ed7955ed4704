package payout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prep-pay/prep_pay/internal/logging"
	"github.com/prep-pay/prep_pay/internal/paystack"
	"github.com/prep-pay/prep_pay/internal/wallet"
)

type fakeProvider struct {
	recipients int
	transfers  []paystack.TransferInput
	failNext   bool
}

func (f *fakeProvider) CreateTransferRecipient(_ context.Context, _ paystack.RecipientInput) (paystack.TransferRecipient, error) {
	f.recipients++
	return paystack.TransferRecipient{RecipientCode: fmt.Sprintf("RCP_%d", f.recipients)}, nil
}

func (f *fakeProvider) InitiateTransfer(_ context.Context, input paystack.TransferInput) (paystack.Transfer, error) {
	if f.failNext {
		f.failNext = false
		return paystack.Transfer{}, errors.New("provider unavailable")
	}
	f.transfers = append(f.transfers, input)
	return paystack.Transfer{TransferCode: "TRF_" + uuid.NewString(), Reference: input.Reference, Status: "pending"}, nil
}

func setupPayout(t *testing.T, user wallet.User) (*Service, *wallet.Service, *fakeProvider) {
	t.Helper()
	repo := wallet.NewMemoryRepository()
	wallet.SeedUser(repo, user)
	walletSvc := wallet.NewService(repo, nil)

	provider := &fakeProvider{}
	svc, err := NewService(walletSvc, provider, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, walletSvc, provider
}

func TestWithdrawDebitsAndTransfers(t *testing.T) {
	userID := uuid.NewString()
	svc, walletSvc, provider := setupPayout(t, wallet.User{
		ID:      userID,
		Email:   "a@b.com",
		Balance: decimal.NewFromInt(5000),
	})

	ctx := context.Background()
	res, err := svc.Withdraw(ctx, WithdrawInput{
		UserID:        userID,
		Amount:        decimal.RequireFromString("1500.50"),
		AccountNumber: "0123456789",
		BankCode:      "058",
		AccountName:   "A Student",
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !res.Balance.Equal(decimal.RequireFromString("3499.50")) {
		t.Fatalf("expected balance 3499.50, got %s", res.Balance)
	}
	if res.TransferCode == "" {
		t.Fatal("expected transfer code")
	}
	if len(provider.transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(provider.transfers))
	}
	if provider.transfers[0].AmountMinor != 150_050 {
		t.Fatalf("expected 150050 minor units, got %d", provider.transfers[0].AmountMinor)
	}

	// Recipient code is stored for reuse on later withdrawals.
	user, err := walletSvc.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.RecipientCode == "" {
		t.Fatal("expected recipient code to be stored")
	}

	if _, err := svc.Withdraw(ctx, WithdrawInput{UserID: userID, Amount: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if provider.recipients != 1 {
		t.Fatalf("expected recipient created once, got %d", provider.recipients)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	userID := uuid.NewString()
	svc, _, _ := setupPayout(t, wallet.User{
		ID:            userID,
		Email:         "a@b.com",
		RecipientCode: "RCP_abc",
		Balance:       decimal.NewFromInt(100),
	})

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		UserID: userID,
		Amount: decimal.NewFromInt(500),
	})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestWithdrawReversesDebitOnProviderFailure(t *testing.T) {
	userID := uuid.NewString()
	svc, walletSvc, provider := setupPayout(t, wallet.User{
		ID:            userID,
		Email:         "a@b.com",
		RecipientCode: "RCP_abc",
		Balance:       decimal.NewFromInt(2000),
	})
	provider.failNext = true

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		UserID: userID,
		Amount: decimal.NewFromInt(800),
	})
	if err == nil {
		t.Fatal("expected provider failure to surface")
	}

	balance, err := walletSvc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected reversal to restore 2000, got %s", balance.Amount)
	}
}

func TestWithdrawReversalTargetsDebitedUser(t *testing.T) {
	repo := wallet.NewMemoryRepository()
	now := time.Now().UTC()
	// Two records share the email; the lookup policy would resolve the
	// older one, which must not receive the reversal.
	older := wallet.User{ID: uuid.NewString(), Email: "shared@b.com", Balance: decimal.NewFromInt(50), CreatedAt: now.Add(-time.Hour)}
	wallet.SeedUser(repo, older)
	debited := wallet.User{ID: uuid.NewString(), Email: "shared@b.com", RecipientCode: "RCP_abc", Balance: decimal.NewFromInt(2000), CreatedAt: now}
	wallet.SeedUser(repo, debited)

	walletSvc := wallet.NewService(repo, nil)
	provider := &fakeProvider{failNext: true}
	svc, err := NewService(walletSvc, provider, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Withdraw(context.Background(), WithdrawInput{
		UserID: debited.ID,
		Amount: decimal.NewFromInt(800),
	})
	if err == nil {
		t.Fatal("expected provider failure to surface")
	}

	balance, err := walletSvc.Balance(context.Background(), debited.ID)
	if err != nil {
		t.Fatalf("debited balance: %v", err)
	}
	if !balance.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected reversal to restore debited user to 2000, got %s", balance.Amount)
	}

	otherBalance, err := walletSvc.Balance(context.Background(), older.ID)
	if err != nil {
		t.Fatalf("older balance: %v", err)
	}
	if !otherBalance.Amount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected older record untouched at 50, got %s", otherBalance.Amount)
	}
}

func TestWithdrawRejectsFractionalKobo(t *testing.T) {
	userID := uuid.NewString()
	svc, _, _ := setupPayout(t, wallet.User{
		ID:            userID,
		Email:         "a@b.com",
		RecipientCode: "RCP_abc",
		Balance:       decimal.NewFromInt(100),
	})

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		UserID: userID,
		Amount: decimal.RequireFromString("10.005"),
	})
	if err == nil {
		t.Fatal("expected sub-minor-unit amount to be rejected")
	}
}
