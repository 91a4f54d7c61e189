package negotiations

import (
	"context"

	"broker-backend/internal/domain"
	"broker-backend/internal/middleware"
	"broker-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
	// Policy proposes broker counter-offers; rule-based or model-driven.
	Policy CounterProposer
}

type openRequest struct {
	ListingID   string  `json:"listing_id"`
	OfferAmount int64   `json:"offer_amount"`
	Message     *string `json:"message"`
}

// Open POST /api/v1/negotiations — buyer's first offer on a listing.
func (h *Handlers) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	buyerID := middleware.GetUserID(c)
	if buyerID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, fiber.Map{"field": "listing_id"})
	}
	n, err := h.Service.Open(c.Context(), OpenInput{
		ListingID: listingID,
		BuyerID:   buyerID,
		Amount:    req.OfferAmount,
		Message:   req.Message,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Negotiation opened", n, nil)
}

// Get GET /api/v1/negotiations/:id — lazy expiry applies.
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid negotiation id", fiber.StatusBadRequest, nil)
	}
	n, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Negotiation fetched", n, nil)
}

// ListMine GET /api/v1/negotiations — all where the user is a party.
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	negs, err := h.Service.ListForUser(c.Context(), userID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Negotiations fetched", negs, nil)
}

// History GET /api/v1/negotiations/:id/history — the ordered ledger.
func (h *Handlers) History(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid negotiation id", fiber.StatusBadRequest, nil)
	}
	offers, err := h.Service.History(c.Context(), id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Offer history fetched", offers, nil)
}

type offerRequest struct {
	OfferAmount int64   `json:"offer_amount"`
	Message     *string `json:"message"`
}

// Offer POST /api/v1/negotiations/:id/offer
func (h *Handlers) Offer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid negotiation id", fiber.StatusBadRequest, nil)
	}
	var req offerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	n, err := h.Service.MakeOffer(c.Context(), OfferInput{
		NegotiationID: id,
		FromUserID:    userID,
		Amount:        req.OfferAmount,
		Message:       req.Message,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Offer placed", n, nil)
}

// Accept POST /api/v1/negotiations/:id/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	return h.act(c, h.Service.Accept, "Negotiation accepted")
}

// Decline POST /api/v1/negotiations/:id/decline
func (h *Handlers) Decline(c *fiber.Ctx) error {
	return h.act(c, h.Service.Decline, "Negotiation declined")
}

// Cancel POST /api/v1/negotiations/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	return h.act(c, h.Service.Cancel, "Negotiation cancelled")
}

// BrokerCounter POST /api/v1/negotiations/:id/broker-counter — the broker
// policy proposes and places a counter-offer for the seller.
func (h *Handlers) BrokerCounter(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid negotiation id", fiber.StatusBadRequest, nil)
	}
	if h.Policy == nil {
		return response.Error(c, "Broker policy not configured", fiber.StatusServiceUnavailable, nil)
	}
	n, err := h.Service.BrokerCounter(c.Context(), id, h.Policy)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Broker counter-offer placed", n, nil)
}

func (h *Handlers) act(c *fiber.Ctx, action func(ctx context.Context, negotiationID, userID uuid.UUID) (*domain.Negotiation, error), message string) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid negotiation id", fiber.StatusBadRequest, nil)
	}
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	n, err := action(c.Context(), id, userID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, message, n, nil)
}
