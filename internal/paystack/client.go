package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	defaultTimeout = 15 * time.Second
)

// Client is a minimal connector for the provider's transfer API. The
// provider's own settlement logic is opaque; this client only initiates
// operations and reports outcomes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient builds a provider client. An empty baseURL selects the
// production API.
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		secretKey:  secretKey,
	}
}

// envelope is the provider's standard response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// RecipientInput describes the bank account to register as a transfer recipient.
type RecipientInput struct {
	Name          string
	AccountNumber string
	BankCode      string
	Currency      string
}

// TransferRecipient is the provider-side handle for a registered bank account.
type TransferRecipient struct {
	RecipientCode string `json:"recipient_code"`
}

// CreateTransferRecipient registers a bank account and returns its recipient code.
func (c *Client) CreateTransferRecipient(ctx context.Context, input RecipientInput) (TransferRecipient, error) {
	currency := input.Currency
	if currency == "" {
		currency = "NGN"
	}
	payload := map[string]string{
		"type":           "nuban",
		"name":           input.Name,
		"account_number": input.AccountNumber,
		"bank_code":      input.BankCode,
		"currency":       currency,
	}

	var recipient TransferRecipient
	if err := c.post(ctx, "/transferrecipient", payload, &recipient); err != nil {
		return TransferRecipient{}, err
	}
	if recipient.RecipientCode == "" {
		return TransferRecipient{}, fmt.Errorf("provider returned no recipient code")
	}
	return recipient, nil
}

// TransferInput describes an outbound transfer to a registered recipient.
type TransferInput struct {
	RecipientCode string
	AmountMinor   int64
	Reference     string
	Reason        string
}

// Transfer is the provider-side record of an initiated transfer.
type Transfer struct {
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
}

// InitiateTransfer starts a transfer from the provider balance to the recipient.
func (c *Client) InitiateTransfer(ctx context.Context, input TransferInput) (Transfer, error) {
	if input.AmountMinor <= 0 {
		return Transfer{}, fmt.Errorf("amount must be positive")
	}
	payload := map[string]any{
		"source":    "balance",
		"amount":    input.AmountMinor,
		"recipient": input.RecipientCode,
		"reference": input.Reference,
		"reason":    input.Reason,
	}

	var transfer Transfer
	if err := c.post(ctx, "/transfer", payload, &transfer); err != nil {
		return Transfer{}, err
	}
	return transfer, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		return fmt.Errorf("provider rejected %s: %s", path, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode provider data: %w", err)
		}
	}
	return nil
}
