package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryRepository struct {
	mu           sync.RWMutex
	users        map[string]User
	transactions map[string][]Transaction
}

// NewMemoryRepository constructs a concurrency-safe in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:        make(map[string]User),
		transactions: make(map[string][]Transaction),
	}
}

// SeedUser is a test helper that inserts a user into the in-memory repository.
func SeedUser(repo Repository, user User) {
	mem, ok := repo.(*memoryRepository)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	mem.users[user.ID] = user
}

func (r *memoryRepository) Get(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findFirst(func(u User) bool { return u.Email == email })
}

func (r *memoryRepository) FindByRecipientCode(_ context.Context, code string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findFirst(func(u User) bool { return u.RecipientCode == code })
}

// findFirst mirrors the limit-1 lookup policy of the Postgres repository:
// when several users match, the oldest record wins.
func (r *memoryRepository) findFirst(match func(User) bool) (User, error) {
	var (
		found  bool
		oldest User
	)
	for _, u := range r.users {
		if !match(u) {
			continue
		}
		if !found || u.CreatedAt.Before(oldest.CreatedAt) {
			oldest = u
			found = true
		}
	}
	if !found {
		return User{}, ErrUserNotFound
	}
	return oldest, nil
}

func (r *memoryRepository) SetRecipientCode(_ context.Context, id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.RecipientCode = code
	r.users[id] = user
	return nil
}

func (r *memoryRepository) Credit(_ context.Context, userID string, entry Entry) (MutationResult, error) {
	return r.mutate(userID, entry, TypeCredit)
}

func (r *memoryRepository) Debit(_ context.Context, userID string, entry Entry) (MutationResult, error) {
	return r.mutate(userID, entry, TypeDebit)
}

func (r *memoryRepository) mutate(userID string, entry Entry, kind string) (MutationResult, error) {
	if !entry.Amount.IsPositive() {
		return MutationResult{}, fmt.Errorf("amount must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return MutationResult{}, ErrUserNotFound
	}

	for _, tr := range r.transactions[userID] {
		if tr.Reference == entry.Reference {
			return MutationResult{TransactionID: tr.ID, Balance: user.Balance}, ErrDuplicateReference
		}
	}

	var balance decimal.Decimal
	switch kind {
	case TypeCredit:
		balance = user.Balance.Add(entry.Amount)
	case TypeDebit:
		if user.Balance.LessThan(entry.Amount) {
			return MutationResult{}, ErrInsufficientFunds
		}
		balance = user.Balance.Sub(entry.Amount)
	}

	user.Balance = balance
	r.users[userID] = user

	tr := Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        kind,
		Amount:      entry.Amount,
		Description: entry.Description,
		Reference:   entry.Reference,
		Status:      StatusCompleted,
		CreatedAt:   time.Now().UTC(),
	}
	r.transactions[userID] = append(r.transactions[userID], tr)

	return MutationResult{TransactionID: tr.ID, Balance: balance}, nil
}

func (r *memoryRepository) Transactions(_ context.Context, userID string) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.transactions[userID]
	result := make([]Transaction, len(history))
	// Newest first, matching the Postgres ordering.
	for i, tr := range history {
		result[len(history)-1-i] = tr
	}
	return result, nil
}
