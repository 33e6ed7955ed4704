package webhook

import (
	"github.com/shopspring/decimal"

	"github.com/prep-pay/prep_pay/internal/wallet"
)

const (
	// EventTransferSuccess is emitted by the provider when a bank transfer completes.
	EventTransferSuccess = "transfer.success"
	// EventChargeSuccess is emitted by the provider when a card charge completes.
	EventChargeSuccess = "charge.success"

	statusSuccess = "success"

	descriptionTransfer = "Wallet funded via bank transfer"
	descriptionCharge   = "Wallet funded via card payment"
)

// Event is the provider's webhook envelope.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries the payload fields this service routes on. Transfer
// events populate Recipient; charge events populate Customer.
type EventData struct {
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	Reference string    `json:"reference"`
	Customer  Customer  `json:"customer"`
	Recipient Recipient `json:"recipient"`
}

// Customer identifies the paying customer on charge events.
type Customer struct {
	Email string `json:"email"`
}

// Recipient identifies the transfer recipient on transfer events.
type Recipient struct {
	RecipientCode string `json:"recipient_code"`
}

// Decision is the classifier outcome: either a credit instruction or an
// ignore reason.
type Decision struct {
	Credit *wallet.CreditInput
	Reason string
}

// Classify maps a provider event to its internal effect. Only successful
// transfers and charges produce a credit; everything else is acknowledged
// without action.
func Classify(evt Event) Decision {
	switch evt.Event {
	case EventTransferSuccess:
		if evt.Data.Status != statusSuccess {
			return Decision{Reason: "Transfer not successful"}
		}
		return Decision{Credit: &wallet.CreditInput{
			LookupKey:   wallet.LookupRecipientCode,
			LookupValue: evt.Data.Recipient.RecipientCode,
			Amount:      majorUnits(evt.Data.Amount),
			Reference:   evt.Data.Reference,
			Description: descriptionTransfer,
		}}
	case EventChargeSuccess:
		if evt.Data.Status != statusSuccess {
			return Decision{Reason: "Charge not successful"}
		}
		return Decision{Credit: &wallet.CreditInput{
			LookupKey:   wallet.LookupEmail,
			LookupValue: evt.Data.Customer.Email,
			Amount:      majorUnits(evt.Data.Amount),
			Reference:   evt.Data.Reference,
			Description: descriptionCharge,
		}}
	default:
		return Decision{Reason: "Unhandled event"}
	}
}

// majorUnits converts provider minor units (kobo) to an exact major-unit
// decimal. The exponent shift avoids any floating-point division.
func majorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
