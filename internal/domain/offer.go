package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Offer is one ledger entry of a negotiation. Offers are append-only and
// immutable once created; the ledger is never compacted or rewritten.
type Offer struct {
	OfferID        uuid.UUID `gorm:"column:offer_id;type:uuid;primaryKey" json:"offer_id"`
	NegotiationID  uuid.UUID `gorm:"column:negotiation_id;type:uuid;not null;index" json:"negotiation_id"`
	FromUserID     uuid.UUID `gorm:"column:from_user_id;type:uuid;not null" json:"from_user_id"`
	OfferAmount    int64     `gorm:"column:offer_amount;not null" json:"offer_amount"`
	Message        *string   `gorm:"column:message" json:"message"`
	IsCounterOffer bool      `gorm:"column:is_counter_offer;not null;default:false" json:"is_counter_offer"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Offer) TableName() string {
	return "offers"
}

func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.OfferID == uuid.Nil {
		o.OfferID = uuid.New()
	}
	return nil
}
