package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Negotiation statuses. Active is the only non-terminal status.
const (
	NegotiationActive    = "active"
	NegotiationAccepted  = "accepted"
	NegotiationDeclined  = "declined"
	NegotiationCancelled = "cancelled"
	NegotiationExpired   = "expired"
)

// Negotiation is the back-and-forth between one buyer and one seller over one
// listing. CurrentOffer always equals the amount of the newest ledger entry.
// Version is the optimistic lock counter: every mutation runs as
// UPDATE ... WHERE version = <read version> inside a transaction.
type Negotiation struct {
	NegotiationID uuid.UUID  `gorm:"column:negotiation_id;type:uuid;primaryKey" json:"negotiation_id"`
	ListingID     uuid.UUID  `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	BuyerID       uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	SellerID      uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Status        string     `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	CurrentOffer  int64      `gorm:"column:current_offer;not null" json:"current_offer"`
	Currency      string     `gorm:"column:currency;type:varchar(3);default:'USD'" json:"currency"`
	BrokerNotes   *string    `gorm:"column:broker_notes" json:"broker_notes"`
	ExpiresAt     *time.Time `gorm:"column:expires_at" json:"expires_at"`
	Version       int64      `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Negotiation) TableName() string {
	return "negotiations"
}

func (n *Negotiation) BeforeCreate(tx *gorm.DB) error {
	if n.NegotiationID == uuid.Nil {
		n.NegotiationID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether no further actions are allowed.
func (n *Negotiation) IsTerminal() bool {
	return n.Status != NegotiationActive
}
