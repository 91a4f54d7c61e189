package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"broker-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckout(t *testing.T) {
	var gotIn CheckoutInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkouts", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotIn))
		json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example/c/123"})
	}))
	defer srv.Close()

	c := &CheckoutClient{BaseURL: srv.URL, APIKey: "key-1"}
	url, err := c.CreateCheckout(context.Background(), CheckoutInput{
		DealID: "deal-1",
		Items: []LineItem{
			{Name: "Espresso machine", Amount: 900, Currency: "USD", Quantity: 1},
			{Name: "Broker fee", Amount: 45, Currency: "USD", Quantity: 1},
		},
		Total:         945,
		Currency:      "USD",
		CustomerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/c/123", url)
	assert.Equal(t, "deal-1", gotIn.DealID)
	require.Len(t, gotIn.Items, 2)
}

func TestCreateCheckout_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &CheckoutClient{BaseURL: srv.URL}
	_, err := c.CreateCheckout(context.Background(), CheckoutInput{})
	require.Error(t, err)
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "billing", pe.Provider)
}

func TestCreateCheckout_MissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := &CheckoutClient{BaseURL: srv.URL}
	_, err := c.CreateCheckout(context.Background(), CheckoutInput{})
	require.Error(t, err)
	var pe *domain.ProviderError
	assert.ErrorAs(t, err, &pe)
}
