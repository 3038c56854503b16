// Package payments wraps the hosted-checkout payment processor's REST API.
// The auction core treats it as an external collaborator: thin calls, typed
// results, no retries.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the HTTP client for the payment processor
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewClient initializes a payment processor client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Account is a connected seller account at the processor
type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	ChargesOn bool   `json:"charges_enabled"`
}

// AccountLink is a single-use onboarding URL for a connected account
type AccountLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CheckoutSession is a hosted checkout session
type CheckoutSession struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// Transfer is a payout transfer to a connected account
type Transfer struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount"`
	Destination string `json:"destination"`
}

// CreateAccount creates a connected account for a seller
func (c *Client) CreateAccount(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := c.do(ctx, http.MethodPost, "/v1/accounts", map[string]interface{}{
		"type":  "express",
		"email": email,
	}, &account)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &account, nil
}

// CreateAccountLink creates an onboarding link for a connected account
func (c *Client) CreateAccountLink(ctx context.Context, accountID, returnURL string) (*AccountLink, error) {
	var link AccountLink
	err := c.do(ctx, http.MethodPost, "/v1/account_links", map[string]interface{}{
		"account":     accountID,
		"return_url":  returnURL,
		"refresh_url": returnURL,
	}, &link)
	if err != nil {
		return nil, fmt.Errorf("failed to create account link: %w", err)
	}
	return &link, nil
}

// CreateCheckoutSessionParams carries the session request
type CreateCheckoutSessionParams struct {
	LinkID          string
	Title           string
	AmountCents     int64
	Currency        string
	SellerAccountID string
	SuccessURL      string
	CancelURL       string
	CustomerEmail   string
}

// CreateCheckoutSession creates a hosted checkout session
func (c *Client) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	body := map[string]interface{}{
		"amount":       params.AmountCents,
		"currency":     params.Currency,
		"description":  params.Title,
		"on_behalf_of": params.SellerAccountID,
		"success_url":  params.SuccessURL,
		"cancel_url":   params.CancelURL,
		"metadata": map[string]string{
			"link_id": params.LinkID,
		},
	}
	if params.CustomerEmail != "" {
		body["customer_email"] = params.CustomerEmail
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &session, nil
}

// GetCheckoutSession fetches a checkout session by id
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil, &session); err != nil {
		return nil, fmt.Errorf("failed to fetch checkout session: %w", err)
	}
	return &session, nil
}

// CreateTransfer issues a payout transfer to a connected account
func (c *Client) CreateTransfer(ctx context.Context, accountID string, amountCents int64, currency, orderRef string) (*Transfer, error) {
	var transfer Transfer
	err := c.do(ctx, http.MethodPost, "/v1/transfers", map[string]interface{}{
		"amount":      amountCents,
		"currency":    currency,
		"destination": accountID,
		"metadata": map[string]string{
			"order": orderRef,
		},
	}, &transfer)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}
	return &transfer, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
