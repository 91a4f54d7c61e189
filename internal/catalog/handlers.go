package catalog

import (
	"broker-backend/internal/middleware"
	"broker-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// ListProducts GET /api/v1/products
func (h *Handlers) ListProducts(c *fiber.Ctx) error {
	products, err := h.Service.ListProducts(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Products fetched successfully", products, nil)
}

// GetProduct GET /api/v1/products/:id
func (h *Handlers) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid product id", fiber.StatusBadRequest, nil)
	}
	product, err := h.Service.GetProduct(c.Context(), id)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Product fetched successfully", product, nil)
}

type insertProductRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       int64   `json:"price"`
	ImageURL    *string `json:"image_url"`
	Status      string  `json:"status"`
}

// InsertProduct POST /api/v1/products
func (h *Handlers) InsertProduct(c *fiber.Ctx) error {
	var req insertProductRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	sellerID := middleware.GetUserID(c)
	if sellerID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := h.Service.InsertProduct(c.Context(), InsertProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Status:      req.Status,
		SellerID:    sellerID,
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Product added to marketplace", fiber.Map{"product_id": id}, nil)
}
