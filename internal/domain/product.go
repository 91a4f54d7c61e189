package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product condition values accepted by the storefront.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like-new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// Product is a catalog entry. A product may be referenced by many listings
// over time but carries no pricing itself; prices live on the Listing.
type Product struct {
	ProductID      uuid.UUID      `gorm:"column:product_id;type:uuid;primaryKey" json:"product_id"`
	SellerID       uuid.UUID      `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Description    string         `gorm:"column:description;not null" json:"description"`
	Category       string         `gorm:"column:category;not null" json:"category"`
	Condition      string         `gorm:"column:condition;type:varchar(20);default:'good'" json:"condition"`
	ImageURL       *string        `gorm:"column:image_url" json:"image_url"`
	Specifications datatypes.JSON `gorm:"column:specifications;type:jsonb" json:"specifications"`
	Status         string         `gorm:"column:status;type:varchar(20);default:'active'" json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ProductID == uuid.Nil {
		p.ProductID = uuid.New()
	}
	return nil
}
