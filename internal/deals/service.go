package deals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"broker-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
	// FeePercent is the broker's cut of the final price, in whole percent.
	FeePercent int
}

// Fee computes the broker fee in minor units, rounded half-up.
func (s *Service) Fee(finalPrice int64) int64 {
	return (finalPrice*int64(s.FeePercent) + 50) / 100
}

// Finalize converts an accepted negotiation into a pending deal. Only a party
// to the negotiation may finalize. Calling it again for the same negotiation
// returns the existing deal unchanged.
func (s *Service) Finalize(ctx context.Context, negotiationID, callerID uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n domain.Negotiation
		if err := tx.Where("negotiation_id = ?", negotiationID).First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.ValidationError{Field: "negotiation_id", Reason: "Negotiation not found"}
			}
			return err
		}
		if callerID != n.BuyerID && callerID != n.SellerID {
			return &domain.ValidationError{Field: "user_id", Reason: "Not a party to this negotiation"}
		}

		// Idempotency: at most one deal per negotiation.
		err := tx.Where("negotiation_id = ?", negotiationID).First(&deal).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if n.Status != domain.NegotiationAccepted {
			return &domain.PreconditionError{Reason: fmt.Sprintf("Negotiation must be accepted to finalize (status: %s)", n.Status)}
		}

		deal = domain.Deal{
			NegotiationID: negotiationID,
			FinalPrice:    n.CurrentOffer,
			BrokerFee:     s.Fee(n.CurrentOffer),
			Currency:      n.Currency,
			Status:        domain.DealPending,
		}
		if err := tx.Create(&deal).Error; err != nil {
			return err
		}

		b, _ := json.Marshal(map[string]interface{}{
			"deal_id":     deal.DealID,
			"final_price": deal.FinalPrice,
			"broker_fee":  deal.BrokerFee,
		})
		return tx.Create(&domain.NegotiationEvent{
			NegotiationID: negotiationID,
			EventType:     domain.EventFinalized,
			EventData:     datatypes.JSON(b),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Complete moves a pending deal to completed, recording the payment reference.
// Completing an already-completed deal is a no-op (never double-applies).
func (s *Service) Complete(ctx context.Context, dealID uuid.UUID, paymentRef string) (*domain.Deal, error) {
	var deal domain.Deal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deal_id = ?", dealID).First(&deal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.ValidationError{Field: "deal_id", Reason: "Deal not found"}
			}
			return err
		}
		if deal.Status == domain.DealCompleted {
			return nil
		}
		if deal.Status != domain.DealPending {
			return &domain.PreconditionError{Reason: fmt.Sprintf("Deal is not pending (status: %s)", deal.Status)}
		}
		now := time.Now()
		deal.Status = domain.DealCompleted
		deal.PaymentRef = &paymentRef
		deal.CompletionDate = &now
		return tx.Save(&deal).Error
	})
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Cancel moves a pending deal to cancelled. Only a party to the underlying
// negotiation may cancel; completed deals cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, dealID, callerID uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deal_id = ?", dealID).First(&deal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.ValidationError{Field: "deal_id", Reason: "Deal not found"}
			}
			return err
		}
		var n domain.Negotiation
		if err := tx.Where("negotiation_id = ?", deal.NegotiationID).First(&n).Error; err != nil {
			return err
		}
		if callerID != n.BuyerID && callerID != n.SellerID {
			return &domain.ValidationError{Field: "user_id", Reason: "Not a party to this negotiation"}
		}
		if deal.Status == domain.DealCancelled {
			return nil
		}
		if deal.Status != domain.DealPending {
			return &domain.PreconditionError{Reason: fmt.Sprintf("Only pending deals can be cancelled (status: %s)", deal.Status)}
		}
		deal.Status = domain.DealCancelled
		return tx.Save(&deal).Error
	})
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Get returns a deal by id.
func (s *Service) Get(ctx context.Context, dealID uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	if err := s.DB.WithContext(ctx).Where("deal_id = ?", dealID).First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ValidationError{Field: "deal_id", Reason: "Deal not found"}
		}
		return nil, err
	}
	return &deal, nil
}

// GetByNegotiation returns the deal for a negotiation, if one exists.
func (s *Service) GetByNegotiation(ctx context.Context, negotiationID uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	if err := s.DB.WithContext(ctx).Where("negotiation_id = ?", negotiationID).First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ValidationError{Field: "negotiation_id", Reason: "No deal for this negotiation"}
		}
		return nil, err
	}
	return &deal, nil
}
