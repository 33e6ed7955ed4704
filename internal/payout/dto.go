package payout

import "github.com/shopspring/decimal"

// WithdrawRequest captures user-provided data to withdraw wallet funds to a
// bank account. Amount is in major units; strings are accepted so clients
// can avoid float encoding.
type WithdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	AccountNumber string          `json:"account_number"`
	BankCode      string          `json:"bank_code"`
	AccountName   string          `json:"account_name"`
	Reference     string          `json:"reference"`
}

// WithdrawResponse represents the API response for a withdrawal.
type WithdrawResponse struct {
	TransactionID string `json:"transaction_id"`
	TransferCode  string `json:"transfer_code"`
	Reference     string `json:"reference"`
	Balance       string `json:"balance"`
}
