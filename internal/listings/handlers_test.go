package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"broker-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asUser(userID uuid.UUID) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"email":   "seller@example.com",
			"role":    "seller",
		})
		return c.Next()
	}
}

func TestCreateListingHandler(t *testing.T) {
	s, _ := setupListingsTest(t)
	h := &Handlers{Service: s}
	seller := uuid.New()

	app := fiber.New()
	app.Use(asUser(seller))
	app.Post("/api/v1/listings", h.CreateListing)

	body, _ := json.Marshal(map[string]interface{}{
		"name":                   "Road bike",
		"category":               "sports",
		"asking_price":           1000,
		"minimum_price":          850,
		"flexibility_percentage": 20,
		"quantity_available":     1,
		"deadline":               "2026-10-01T00:00:00Z",
	})
	req := httptest.NewRequest("POST", "/api/v1/listings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data := out["data"].(map[string]interface{})
	assert.Equal(t, seller.String(), data["seller_id"])
	assert.NotNil(t, data["deadline"])
}

func TestCreateListingHandler_BadDeadline(t *testing.T) {
	s, _ := setupListingsTest(t)
	h := &Handlers{Service: s}

	app := fiber.New()
	app.Use(asUser(uuid.New()))
	app.Post("/api/v1/listings", h.CreateListing)

	body, _ := json.Marshal(map[string]interface{}{
		"name":               "Road bike",
		"category":           "sports",
		"asking_price":       1000,
		"minimum_price":      850,
		"quantity_available": 1,
		"deadline":           "next tuesday",
	})
	req := httptest.NewRequest("POST", "/api/v1/listings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetListingHandler_IncludesRange(t *testing.T) {
	s, _ := setupListingsTest(t)
	h := &Handlers{Service: s}
	seller := uuid.New()

	listing, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/api/v1/listings/:id", h.GetListing)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/listings/"+listing.ListingID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data := out["data"].(map[string]interface{})
	got := data["listing"].(map[string]interface{})
	assert.Equal(t, seller.String(), got["seller_id"])
	r := data["negotiable_range"].(map[string]interface{})
	assert.Equal(t, float64(850), r["min"])
	assert.Equal(t, float64(1000), r["max"])
}

func TestGetListingHandler_NotFound(t *testing.T) {
	s, _ := setupListingsTest(t)
	h := &Handlers{Service: s}
	app := fiber.New()
	app.Get("/api/v1/listings/:id", h.GetListing)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/listings/"+uuid.New().String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeactivateHandler_OwnerScoped(t *testing.T) {
	s, db := setupListingsTest(t)
	h := &Handlers{Service: s}
	seller := uuid.New()

	listing, err := s.CreateListing(context.Background(), validInput(seller))
	require.NoError(t, err)

	// Another user cannot deactivate it.
	app := fiber.New()
	app.Use(asUser(uuid.New()))
	app.Delete("/api/v1/listings/:id", h.Deactivate)
	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/listings/"+listing.ListingID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var stored domain.Listing
	require.NoError(t, db.Where("listing_id = ?", listing.ListingID).First(&stored).Error)
	assert.True(t, stored.IsActive)

	owner := fiber.New()
	owner.Use(asUser(seller))
	owner.Delete("/api/v1/listings/:id", h.Deactivate)
	resp, err = owner.Test(httptest.NewRequest("DELETE", "/api/v1/listings/"+listing.ListingID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
