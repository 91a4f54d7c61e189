package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Negotiation event types.
const (
	EventOpened    = "OPENED"
	EventOffer     = "OFFER"
	EventAccepted  = "ACCEPTED"
	EventDeclined  = "DECLINED"
	EventCancelled = "CANCELLED"
	EventExpired   = "EXPIRED"
	EventFinalized = "FINALIZED"
)

// NegotiationEvent is the audit trail of a negotiation: one row per offer and
// per transition, written in the same transaction as the change itself.
type NegotiationEvent struct {
	EventID       uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	NegotiationID uuid.UUID      `gorm:"column:negotiation_id;type:uuid;not null;index" json:"negotiation_id"`
	EventType     string         `gorm:"column:event_type;type:varchar(20);not null" json:"event_type"`
	EventData     datatypes.JSON `gorm:"column:event_data;type:jsonb" json:"event_data"`
	ActorID       *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (NegotiationEvent) TableName() string {
	return "negotiation_events"
}

func (e *NegotiationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
