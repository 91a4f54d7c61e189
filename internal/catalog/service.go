package catalog

import (
	"context"
	"errors"

	"broker-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

type InsertProductInput struct {
	Title       string
	Description string
	Price       int64
	ImageURL    *string
	Status      string
	SellerID    uuid.UUID
}

// InsertProduct adds a product to the catalog and returns the generated id.
// Used by the chat add_product tool and the listing form. When a price is
// supplied, a firm-price listing is created alongside the product so the
// entry is immediately purchasable.
func (s *Service) InsertProduct(ctx context.Context, in InsertProductInput) (uuid.UUID, error) {
	if in.Title == "" {
		return uuid.Nil, &domain.ValidationError{Field: "title", Reason: "Title is required"}
	}
	if in.SellerID == uuid.Nil {
		return uuid.Nil, &domain.ValidationError{Field: "seller_id", Reason: "Seller is required"}
	}
	if in.Price < 0 {
		return uuid.Nil, &domain.ValidationError{Field: "price", Reason: "Price cannot be negative"}
	}
	status := in.Status
	if status == "" {
		status = "active"
	}
	product := &domain.Product{
		SellerID:    in.SellerID,
		Name:        in.Title,
		Description: in.Description,
		Category:    "uncategorized",
		Condition:   domain.ConditionGood,
		ImageURL:    in.ImageURL,
		Status:      status,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		if in.Price > 0 {
			listing := &domain.Listing{
				ProductID:             product.ProductID,
				SellerID:              in.SellerID,
				AskingPrice:           in.Price,
				MinimumPrice:          in.Price,
				FlexibilityPercentage: 0,
				QuantityAvailable:     1,
				IsActive:              true,
			}
			if err := tx.Create(listing).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, &domain.ProviderError{Provider: "catalog", Err: err}
	}
	return product.ProductID, nil
}

// ListProducts returns every catalog entry.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, &domain.ProviderError{Provider: "catalog", Err: err}
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	if err := s.DB.WithContext(ctx).Where("product_id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ValidationError{Field: "product_id", Reason: "Product not found"}
		}
		return nil, &domain.ProviderError{Provider: "catalog", Err: err}
	}
	return &product, nil
}
