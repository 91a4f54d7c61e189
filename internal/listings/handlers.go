package listings

import (
	"time"

	"broker-backend/internal/middleware"
	"broker-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

type createListingRequest struct {
	Name                  string  `json:"name"`
	Description           string  `json:"description"`
	Category              string  `json:"category"`
	Condition             string  `json:"condition"`
	ImageURL              *string `json:"image_url"`
	AskingPrice           int64   `json:"asking_price"`
	MinimumPrice          int64   `json:"minimum_price"`
	FlexibilityPercentage int     `json:"flexibility_percentage"`
	Currency              string  `json:"currency"`
	QuantityAvailable     int     `json:"quantity_available"`
	SpecialConditions     *string `json:"special_conditions"`
	Deadline              *string `json:"deadline"`
}

// CreateListing POST /api/v1/listings
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	var req createListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	sellerID := middleware.GetUserID(c)
	if sellerID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var deadline *time.Time
	if req.Deadline != nil && *req.Deadline != "" {
		t, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil {
			return response.Error(c, "Invalid deadline format, expected RFC3339", fiber.StatusBadRequest, fiber.Map{"field": "deadline"})
		}
		deadline = &t
	}

	listing, err := h.Service.CreateListing(c.Context(), CreateListingInput{
		SellerID:              sellerID,
		Name:                  req.Name,
		Description:           req.Description,
		Category:              req.Category,
		Condition:             req.Condition,
		ImageURL:              req.ImageURL,
		AskingPrice:           req.AskingPrice,
		MinimumPrice:          req.MinimumPrice,
		FlexibilityPercentage: req.FlexibilityPercentage,
		Currency:              req.Currency,
		QuantityAvailable:     req.QuantityAvailable,
		SpecialConditions:     req.SpecialConditions,
		Deadline:              deadline,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// GetListing GET /api/v1/listings/:id — includes the negotiable range.
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.GetListing(c.Context(), id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", fiber.Map{
		"listing":          listing,
		"negotiable_range": NegotiableRange(listing),
	}, nil)
}

// ListActive GET /api/v1/listings
func (h *Handlers) ListActive(c *fiber.Ctx) error {
	listings, err := h.Service.ListActive(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", listings, nil)
}

// ListMine GET /api/v1/listings/mine
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	sellerID := middleware.GetUserID(c)
	if sellerID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	listings, err := h.Service.ListBySeller(c.Context(), sellerID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", listings, nil)
}

type editListingRequest struct {
	NewAskingPrice *int64 `json:"new_asking_price"`
	NewMinimum     *int64 `json:"new_minimum_price"`
	NewFlexibility *int   `json:"new_flexibility_percentage"`
	NewQuantity    *int   `json:"new_quantity_available"`
}

// EditListing PATCH /api/v1/listings/:id
func (h *Handlers) EditListing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
	}
	var req editListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	sellerID := middleware.GetUserID(c)
	if sellerID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	listing, err := h.Service.EditListing(c.Context(), EditListingInput{
		ListingID:      id,
		SellerID:       sellerID,
		NewAskingPrice: req.NewAskingPrice,
		NewMinimum:     req.NewMinimum,
		NewFlexibility: req.NewFlexibility,
		NewQuantity:    req.NewQuantity,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listing updated successfully", listing, nil)
}

// Deactivate DELETE /api/v1/listings/:id
func (h *Handlers) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
	}
	sellerID := middleware.GetUserID(c)
	if sellerID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := h.Service.Deactivate(c.Context(), id, sellerID); err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Listing deactivated", nil, nil)
}
