package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deal statuses.
const (
	DealPending   = "pending"
	DealCompleted = "completed"
	DealCancelled = "cancelled"
)

// Deal is the finalized outcome of an accepted negotiation. At most one deal
// exists per negotiation (unique index); the pending → completed move is driven
// by the billing provider's webhook.
type Deal struct {
	DealID         uuid.UUID  `gorm:"column:deal_id;type:uuid;primaryKey" json:"deal_id"`
	NegotiationID  uuid.UUID  `gorm:"column:negotiation_id;type:uuid;uniqueIndex;not null" json:"negotiation_id"`
	FinalPrice     int64      `gorm:"column:final_price;not null" json:"final_price"`
	BrokerFee      int64      `gorm:"column:broker_fee;not null" json:"broker_fee"`
	Currency       string     `gorm:"column:currency;type:varchar(3);default:'USD'" json:"currency"`
	Status         string     `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentRef     *string    `gorm:"column:payment_ref" json:"payment_ref"`
	CompletionDate *time.Time `gorm:"column:completion_date" json:"completion_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Deal) TableName() string {
	return "deals"
}

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.DealID == uuid.Nil {
		d.DealID = uuid.New()
	}
	return nil
}
