package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"broker-backend/internal/domain"
)

// LineItem in a checkout request.
type LineItem struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

// CheckoutInput is what the billing provider needs to host a payment page.
type CheckoutInput struct {
	DealID        string     `json:"deal_id"`
	Items         []LineItem `json:"items"`
	Total         int64      `json:"total"`
	Currency      string     `json:"currency"`
	CustomerEmail string     `json:"customer_email"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// CheckoutClient talks to the billing provider. Failures surface as
// ProviderError; handlers turn them into a generic retry prompt.
type CheckoutClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// CreateCheckout posts the checkout and returns the redirect URL.
func (c *CheckoutClient) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
	if c.BaseURL == "" {
		return "", &domain.ProviderError{Provider: "billing", Err: fmt.Errorf("BILLING_API_URL is not set")}
	}
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/v1/checkouts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", &domain.ProviderError{Provider: "billing", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.ProviderError{Provider: "billing", Err: fmt.Errorf("status %d body: %s", resp.StatusCode, respBody)}
	}
	var out checkoutResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &domain.ProviderError{Provider: "billing", Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.URL == "" {
		return "", &domain.ProviderError{Provider: "billing", Err: fmt.Errorf("no redirect url in response")}
	}
	return out.URL, nil
}
