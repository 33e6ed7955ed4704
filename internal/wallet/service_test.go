package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func seedService(t *testing.T, user User) (*Service, Repository) {
	t.Helper()
	repo := NewMemoryRepository()
	SeedUser(repo, user)
	return NewService(repo, nil), repo
}

func TestServiceCreditByEmail(t *testing.T) {
	userID := uuid.NewString()
	svc, _ := seedService(t, User{ID: userID, Email: "a@b.com", Balance: decimal.RequireFromString("1000.0")})

	ctx := context.Background()
	res, err := svc.Credit(ctx, CreditInput{
		LookupKey:   LookupEmail,
		LookupValue: "a@b.com",
		Amount:      decimal.RequireFromString("5000"),
		Reference:   "REF1",
		Description: "Wallet funded via card payment",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, res.UserID)
	}
	if !res.Balance.Equal(decimal.RequireFromString("6000")) {
		t.Fatalf("expected balance 6000, got %s", res.Balance)
	}

	history, err := svc.Transactions(ctx, userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(history))
	}
	if history[0].Type != TypeCredit || history[0].Status != StatusCompleted {
		t.Fatalf("unexpected transaction %+v", history[0])
	}
}

func TestServiceCreditByRecipientCode(t *testing.T) {
	userID := uuid.NewString()
	svc, _ := seedService(t, User{ID: userID, Email: "a@b.com", RecipientCode: "RCP_abc"})

	res, err := svc.Credit(context.Background(), CreditInput{
		LookupKey:   LookupRecipientCode,
		LookupValue: "RCP_abc",
		Amount:      decimal.RequireFromString("250"),
		Reference:   "TRF_1",
		Description: "Wallet funded via bank transfer",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if !res.Balance.Equal(decimal.RequireFromString("250")) {
		t.Fatalf("expected balance 250, got %s", res.Balance)
	}
}

func TestServiceCreditUnknownUser(t *testing.T) {
	svc, _ := seedService(t, User{ID: uuid.NewString(), Email: "a@b.com"})

	_, err := svc.Credit(context.Background(), CreditInput{
		LookupKey:   LookupEmail,
		LookupValue: "nobody@b.com",
		Amount:      decimal.NewFromInt(100),
		Reference:   "REF1",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestServiceCreditDuplicateReference(t *testing.T) {
	userID := uuid.NewString()
	svc, _ := seedService(t, User{ID: userID, Email: "a@b.com"})

	ctx := context.Background()
	input := CreditInput{
		LookupKey:   LookupEmail,
		LookupValue: "a@b.com",
		Amount:      decimal.NewFromInt(100),
		Reference:   "REF_DUP",
	}

	if _, err := svc.Credit(ctx, input); err != nil {
		t.Fatalf("first credit: %v", err)
	}

	res, err := svc.Credit(ctx, input)
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
	if !res.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100 after replay, got %s", res.Balance)
	}

	history, err := svc.Transactions(ctx, userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 transaction after replay, got %d", len(history))
	}
}

func TestServiceCreditConcurrentNoLostUpdate(t *testing.T) {
	userID := uuid.NewString()
	svc, _ := seedService(t, User{ID: userID, Email: "a@b.com", Balance: decimal.NewFromInt(1000)})

	const workers = 16
	amount := decimal.RequireFromString("12.34")

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Credit(context.Background(), CreditInput{
				LookupKey:   LookupEmail,
				LookupValue: "a@b.com",
				Amount:      amount,
				Reference:   fmt.Sprintf("REF_%d", n),
			})
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent credit: %v", err)
		}
	}

	balance, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	expected := decimal.NewFromInt(1000).Add(amount.Mul(decimal.NewFromInt(workers)))
	if !balance.Amount.Equal(expected) {
		t.Fatalf("expected balance %s, got %s", expected, balance.Amount)
	}

	history, err := svc.Transactions(context.Background(), userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(history) != workers {
		t.Fatalf("expected %d transactions, got %d", workers, len(history))
	}
}

func TestServiceCreditConcurrentSameReference(t *testing.T) {
	userID := uuid.NewString()
	svc, _ := seedService(t, User{ID: userID, Email: "a@b.com", Balance: decimal.NewFromInt(1000)})

	const workers = 16
	amount := decimal.NewFromInt(500)

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(context.Background(), CreditInput{
				LookupKey:   LookupEmail,
				LookupValue: "a@b.com",
				Amount:      amount,
				Reference:   "REF_SHARED",
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var applied, replayed int
	for err := range errCh {
		switch {
		case err == nil:
			applied++
		case errors.Is(err, ErrDuplicateReference):
			replayed++
		default:
			t.Fatalf("concurrent credit: %v", err)
		}
	}
	if applied != 1 || replayed != workers-1 {
		t.Fatalf("expected 1 applied and %d replays, got %d and %d", workers-1, applied, replayed)
	}

	balance, err := svc.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected single credit yielding 1500, got %s", balance.Amount)
	}

	history, err := svc.Transactions(context.Background(), userID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected exactly one transaction, got %d", len(history))
	}
}

func TestServiceDebit(t *testing.T) {
	userID := uuid.NewString()
	svc, _ := seedService(t, User{ID: userID, Email: "a@b.com", Balance: decimal.NewFromInt(500)})

	ctx := context.Background()
	res, err := svc.Debit(ctx, DebitInput{
		UserID:      userID,
		Amount:      decimal.NewFromInt(200),
		Reference:   "WD_1",
		Description: "Withdrawal to bank account",
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !res.Balance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected balance 300, got %s", res.Balance)
	}

	_, err = svc.Debit(ctx, DebitInput{
		UserID:    userID,
		Amount:    decimal.NewFromInt(1000),
		Reference: "WD_2",
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestServiceLookupPrefersOldestMatch(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Now().UTC()
	first := User{ID: uuid.NewString(), Email: "shared@b.com", CreatedAt: now.Add(-time.Hour)}
	SeedUser(repo, first)
	second := User{ID: uuid.NewString(), Email: "shared@b.com", CreatedAt: now}
	SeedUser(repo, second)
	svc := NewService(repo, nil)

	res, err := svc.Credit(context.Background(), CreditInput{
		LookupKey:   LookupEmail,
		LookupValue: "shared@b.com",
		Amount:      decimal.NewFromInt(50),
		Reference:   "REF1",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.UserID != first.ID {
		t.Fatalf("expected oldest match %s, got %s", first.ID, res.UserID)
	}
}
