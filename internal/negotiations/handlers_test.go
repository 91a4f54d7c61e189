package negotiations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"broker-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupNegotiationHandlers(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Product{}, &domain.Listing{}, &domain.Negotiation{},
		&domain.Offer{}, &domain.NegotiationEvent{},
	))
	return &Handlers{Service: &Service{DB: db}}, db
}

// asUser injects a session user the way the session middleware would.
func asUser(userID uuid.UUID) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"email":   "test@example.com",
			"role":    "both",
		})
		return c.Next()
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestOpenHandler_CreatesNegotiation(t *testing.T) {
	h, db := setupNegotiationHandlers(t)
	seller, buyer := uuid.New(), uuid.New()
	listing := newListing(t, db, seller, 1000, 850, 20)

	app := fiber.New()
	app.Use(asUser(buyer))
	app.Post("/api/v1/negotiations", h.Open)

	code, out := postJSON(t, app, "/api/v1/negotiations", map[string]interface{}{
		"listing_id":   listing.ListingID.String(),
		"offer_amount": 900,
	})
	assert.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "success", out["status"])
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "active", data["status"])
	assert.Equal(t, float64(900), data["current_offer"])
}

func TestOpenHandler_OutOfRangeIs400(t *testing.T) {
	h, db := setupNegotiationHandlers(t)
	seller, buyer := uuid.New(), uuid.New()
	listing := newListing(t, db, seller, 1000, 850, 20)

	app := fiber.New()
	app.Use(asUser(buyer))
	app.Post("/api/v1/negotiations", h.Open)

	code, out := postJSON(t, app, "/api/v1/negotiations", map[string]interface{}{
		"listing_id":   listing.ListingID.String(),
		"offer_amount": 100,
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
	errObj := out["error"].(map[string]interface{})
	assert.Equal(t, "offer_amount", errObj["details"].(map[string]interface{})["field"])
}

func TestOpenHandler_Unauthorized(t *testing.T) {
	h, _ := setupNegotiationHandlers(t)
	app := fiber.New()
	app.Post("/api/v1/negotiations", h.Open)

	code, _ := postJSON(t, app, "/api/v1/negotiations", map[string]interface{}{
		"listing_id":   uuid.New().String(),
		"offer_amount": 900,
	})
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestOpenHandler_BadListingID(t *testing.T) {
	h, _ := setupNegotiationHandlers(t)
	app := fiber.New()
	app.Use(asUser(uuid.New()))
	app.Post("/api/v1/negotiations", h.Open)

	code, _ := postJSON(t, app, "/api/v1/negotiations", map[string]interface{}{
		"listing_id":   "not-a-uuid",
		"offer_amount": 900,
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestActionOnTerminalIs409(t *testing.T) {
	h, db := setupNegotiationHandlers(t)
	seller, buyer := uuid.New(), uuid.New()
	listing := newListing(t, db, seller, 1000, 850, 20)

	n, err := h.Service.Open(context.Background(), OpenInput{
		ListingID: listing.ListingID, BuyerID: buyer, Amount: 900,
	})
	require.NoError(t, err)
	_, err = h.Service.Accept(context.Background(), n.NegotiationID, seller)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(asUser(buyer))
	app.Post("/api/v1/negotiations/:id/cancel", h.Cancel)

	code, _ := postJSON(t, app, "/api/v1/negotiations/"+n.NegotiationID.String()+"/cancel", nil)
	assert.Equal(t, fiber.StatusConflict, code)
}

func TestBrokerCounterHandler(t *testing.T) {
	h, db := setupNegotiationHandlers(t)
	seller, buyer := uuid.New(), uuid.New()
	listing := newListing(t, db, seller, 1000, 850, 20)
	h.Policy = fixedProposer(940)

	n, err := h.Service.Open(context.Background(), OpenInput{
		ListingID: listing.ListingID, BuyerID: buyer, Amount: 860,
	})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(asUser(seller))
	app.Post("/api/v1/negotiations/:id/broker-counter", h.BrokerCounter)

	code, out := postJSON(t, app, "/api/v1/negotiations/"+n.NegotiationID.String()+"/broker-counter", nil)
	assert.Equal(t, fiber.StatusCreated, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, float64(940), data["current_offer"])
}

func TestBrokerCounterHandler_NoPolicy(t *testing.T) {
	h, db := setupNegotiationHandlers(t)
	seller, buyer := uuid.New(), uuid.New()
	listing := newListing(t, db, seller, 1000, 850, 20)

	n, err := h.Service.Open(context.Background(), OpenInput{
		ListingID: listing.ListingID, BuyerID: buyer, Amount: 860,
	})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(asUser(seller))
	app.Post("/api/v1/negotiations/:id/broker-counter", h.BrokerCounter)

	code, _ := postJSON(t, app, "/api/v1/negotiations/"+n.NegotiationID.String()+"/broker-counter", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
}
