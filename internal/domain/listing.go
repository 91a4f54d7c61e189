package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is a seller's offer to sell a product: an asking price, an absolute
// minimum the seller will never go below, and a flexibility percentage that
// defines how far below asking the broker may negotiate. All amounts are in
// currency minor units (cents).
type Listing struct {
	ListingID             uuid.UUID  `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	ProductID             uuid.UUID  `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	SellerID              uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	AskingPrice           int64      `gorm:"column:asking_price;not null" json:"asking_price"`
	MinimumPrice          int64      `gorm:"column:minimum_price;not null" json:"minimum_price"`
	FlexibilityPercentage int        `gorm:"column:flexibility_percentage;not null;default:0" json:"flexibility_percentage"`
	Currency              string     `gorm:"column:currency;type:varchar(3);default:'USD'" json:"currency"`
	QuantityAvailable     int        `gorm:"column:quantity_available;not null;default:1" json:"quantity_available"`
	IsActive              bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	SpecialConditions     *string    `gorm:"column:special_conditions" json:"special_conditions"`
	Deadline              *time.Time `gorm:"column:deadline" json:"deadline"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}
