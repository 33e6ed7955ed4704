package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// TypeCredit marks a transaction that increases the wallet balance.
	TypeCredit = "credit"
	// TypeDebit marks a transaction that decreases the wallet balance.
	TypeDebit = "debit"
	// StatusCompleted represents a settled transaction.
	StatusCompleted = "completed"
)

// User represents a student account holding a stored-value wallet. Accounts
// are created by the signup flow; this service only reads them and mutates
// the balance.
type User struct {
	ID            string
	Email         string
	RecipientCode string
	Balance       decimal.Decimal
	CreatedAt     time.Time
}

// Transaction is an immutable entry in a user's wallet history.
type Transaction struct {
	ID          string
	UserID      string
	Type        string
	Amount      decimal.Decimal
	Description string
	Reference   string
	Status      string
	CreatedAt   time.Time
}

// Balance encapsulates available funds for a user's wallet.
type Balance struct {
	UserID string
	Amount decimal.Decimal
	AsOf   time.Time
}
