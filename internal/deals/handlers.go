package deals

import (
	"broker-backend/internal/domain"
	"broker-backend/internal/middleware"
	"broker-backend/internal/payments"
	"broker-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service  *Service
	Checkout *payments.CheckoutClient
}

type finalizeRequest struct {
	NegotiationID string `json:"negotiation_id"`
}

// Finalize POST /api/v1/deals — converts an accepted negotiation into a
// pending deal. Safe to call twice.
func (h *Handlers) Finalize(c *fiber.Ctx) error {
	var req finalizeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	negotiationID, err := uuid.Parse(req.NegotiationID)
	if err != nil {
		return response.Error(c, "Invalid negotiation id", fiber.StatusBadRequest, fiber.Map{"field": "negotiation_id"})
	}
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deal, err := h.Service.Finalize(c.Context(), negotiationID, userID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Deal finalized", deal, nil)
}

// GetByNegotiation GET /api/v1/deals/by-negotiation/:id
func (h *Handlers) GetByNegotiation(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid negotiation id", fiber.StatusBadRequest, nil)
	}
	deal, err := h.Service.GetByNegotiation(c.Context(), id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Deal fetched", deal, nil)
}

// CreateCheckout POST /api/v1/deals/:id/checkout — asks the billing provider
// for a hosted payment page and returns its redirect URL.
func (h *Handlers) CreateCheckout(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid deal id", fiber.StatusBadRequest, nil)
	}
	user, _ := middleware.GetUser(c).(map[string]interface{})
	email, _ := user["email"].(string)

	deal, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return response.DomainError(c, err)
	}
	if deal.Status != domain.DealPending {
		return response.DomainError(c, &domain.PreconditionError{Reason: "Deal is not pending payment"})
	}

	url, err := h.Checkout.CreateCheckout(c.Context(), payments.CheckoutInput{
		DealID: deal.DealID.String(),
		Items: []payments.LineItem{
			{Name: "Negotiated purchase", Amount: deal.FinalPrice, Currency: deal.Currency, Quantity: 1},
			{Name: "Broker fee", Amount: deal.BrokerFee, Currency: deal.Currency, Quantity: 1},
		},
		Total:         deal.FinalPrice + deal.BrokerFee,
		Currency:      deal.Currency,
		CustomerEmail: email,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Checkout created", fiber.Map{"redirect_url": url}, nil)
}

// Cancel POST /api/v1/deals/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid deal id", fiber.StatusBadRequest, nil)
	}
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	deal, err := h.Service.Cancel(c.Context(), id, userID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Deal cancelled", deal, nil)
}
