package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"broker-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Range is the band a broker may negotiate within for a listing, in minor
// units. Min never goes below the listing's minimum_price.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Contains reports whether amount falls inside the range (inclusive).
func (r Range) Contains(amount int64) bool {
	return amount >= r.Min && amount <= r.Max
}

type Service struct {
	DB *gorm.DB
}

type CreateListingInput struct {
	SellerID              uuid.UUID
	Name                  string
	Description           string
	Category              string
	Condition             string
	ImageURL              *string
	AskingPrice           int64
	MinimumPrice          int64
	FlexibilityPercentage int
	Currency              string
	QuantityAvailable     int
	SpecialConditions     *string
	Deadline              *time.Time
}

// validate checks fields in a fixed order so the failure always names the
// first invalid one: name, category, asking_price, minimum_price,
// flexibility, quantity.
func (in *CreateListingInput) validate() error {
	if in.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "Product name is required"}
	}
	if in.Category == "" {
		return &domain.ValidationError{Field: "category", Reason: "Category is required"}
	}
	if in.AskingPrice <= 0 {
		return &domain.ValidationError{Field: "asking_price", Reason: "Asking price must be greater than 0"}
	}
	if in.MinimumPrice <= 0 {
		return &domain.ValidationError{Field: "minimum_price", Reason: "Minimum price must be greater than 0"}
	}
	if in.MinimumPrice > in.AskingPrice {
		return &domain.ValidationError{Field: "minimum_price", Reason: "Minimum price cannot be higher than asking price"}
	}
	if in.FlexibilityPercentage < 0 || in.FlexibilityPercentage > 100 {
		return &domain.ValidationError{Field: "flexibility_percentage", Reason: "Flexibility must be between 0-100%"}
	}
	if in.QuantityAvailable < 1 {
		return &domain.ValidationError{Field: "quantity_available", Reason: "Quantity must be at least 1"}
	}
	return nil
}

// CreateListing creates the product row and its listing in one transaction.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	condition := in.Condition
	if condition == "" {
		condition = domain.ConditionGood
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product := &domain.Product{
			SellerID:    in.SellerID,
			Name:        in.Name,
			Description: in.Description,
			Category:    in.Category,
			Condition:   condition,
			ImageURL:    in.ImageURL,
			Status:      "active",
		}
		if err := tx.Create(product).Error; err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		listing = &domain.Listing{
			ProductID:             product.ProductID,
			SellerID:              in.SellerID,
			AskingPrice:           in.AskingPrice,
			MinimumPrice:          in.MinimumPrice,
			FlexibilityPercentage: in.FlexibilityPercentage,
			Currency:              currency,
			QuantityAvailable:     in.QuantityAvailable,
			IsActive:              true,
			SpecialConditions:     in.SpecialConditions,
			Deadline:              in.Deadline,
		}
		if err := tx.Create(listing).Error; err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// NegotiableRange returns [max(asking - asking*flex/100, minimum), asking].
// The minimum price is an absolute floor regardless of the flexibility math.
func NegotiableRange(l *domain.Listing) Range {
	flex := l.AskingPrice * int64(l.FlexibilityPercentage) / 100
	min := l.AskingPrice - flex
	if min < l.MinimumPrice {
		min = l.MinimumPrice
	}
	return Range{Min: min, Max: l.AskingPrice}
}

func (s *Service) GetListing(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ValidationError{Field: "listing_id", Reason: "Listing not found"}
		}
		return nil, err
	}
	return &listing, nil
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Where("seller_id = ?", sellerID).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

type EditListingInput struct {
	ListingID      uuid.UUID
	SellerID       uuid.UUID
	NewAskingPrice *int64
	NewMinimum     *int64
	NewFlexibility *int
	NewQuantity    *int
}

// EditListing updates price/flexibility/quantity for the owning seller. The
// listing row is locked for the duration of the transaction so a negotiation
// reading the negotiable range never sees a half-applied edit.
func (s *Service) EditListing(ctx context.Context, in EditListingInput) (*domain.Listing, error) {
	var listing domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("listing_id = ?", in.ListingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.ValidationError{Field: "listing_id", Reason: "Listing not found"}
			}
			return err
		}
		if listing.SellerID != in.SellerID {
			return &domain.ValidationError{Field: "seller_id", Reason: "Only the seller can edit this listing"}
		}
		if !listing.IsActive {
			return &domain.PreconditionError{Reason: "Listing is not active"}
		}

		if in.NewAskingPrice != nil {
			listing.AskingPrice = *in.NewAskingPrice
		}
		if in.NewMinimum != nil {
			listing.MinimumPrice = *in.NewMinimum
		}
		if in.NewFlexibility != nil {
			listing.FlexibilityPercentage = *in.NewFlexibility
		}
		if in.NewQuantity != nil {
			listing.QuantityAvailable = *in.NewQuantity
		}

		// name/category are not editable; placeholders satisfy the shared
		// validation order for the price fields.
		check := CreateListingInput{
			Name:                  listing.ListingID.String(),
			Category:              listing.ListingID.String(),
			AskingPrice:           listing.AskingPrice,
			MinimumPrice:          listing.MinimumPrice,
			FlexibilityPercentage: listing.FlexibilityPercentage,
			QuantityAvailable:     listing.QuantityAvailable,
		}
		if err := check.validate(); err != nil {
			return err
		}
		return tx.Save(&listing).Error
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Deactivate withdraws a listing from the marketplace.
func (s *Service) Deactivate(ctx context.Context, listingID, sellerID uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("listing_id = ? AND seller_id = ?", listingID, sellerID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ValidationError{Field: "listing_id", Reason: "Listing not found"}
	}
	return nil
}
