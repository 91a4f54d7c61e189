package negotiations

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"broker-backend/internal/domain"
	"broker-backend/internal/listings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actions recorded in TransitionError messages and event rows.
const (
	actionOffer   = "offer"
	actionAccept  = "accept"
	actionDecline = "decline"
	actionCancel  = "cancel"
)

// errVersionConflict signals a lost optimistic-lock race; the mutation is
// retried once against the fresh row.
var errVersionConflict = errors.New("negotiation version conflict")

// CounterProposer decides a counter-offer amount for the broker. Implemented
// by broker.MidpointPolicy and broker.ModelPolicy; range and status checks
// still apply regardless of which proposer is plugged in.
type CounterProposer interface {
	ProposeCounter(ctx context.Context, currentOffer int64, r listings.Range) (int64, error)
}

type Service struct {
	DB *gorm.DB
	// OfferExpiry is applied to new negotiations; zero means no expiry.
	OfferExpiry time.Duration
	// Now is the clock, swappable in tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type OpenInput struct {
	ListingID uuid.UUID
	BuyerID   uuid.UUID
	Amount    int64
	Message   *string
}

// Open creates a negotiation from a buyer's first offer. The offer must lie
// within the listing's negotiable range; out-of-range amounts are rejected
// here rather than flagged for later override.
func (s *Service) Open(ctx context.Context, in OpenInput) (*domain.Negotiation, error) {
	var neg *domain.Negotiation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", in.ListingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.ValidationError{Field: "listing_id", Reason: "Listing not found"}
			}
			return err
		}
		if !listing.IsActive {
			return &domain.PreconditionError{Reason: "Listing is no longer active"}
		}
		if listing.SellerID == in.BuyerID {
			return &domain.ValidationError{Field: "buyer_id", Reason: "Sellers cannot make offers on their own listing"}
		}
		r := listings.NegotiableRange(&listing)
		if !r.Contains(in.Amount) {
			return &domain.ValidationError{Field: "offer_amount", Reason: "Offer is outside the negotiable range for this listing"}
		}

		var existing domain.Negotiation
		err := tx.Where("listing_id = ? AND buyer_id = ? AND status = ?",
			in.ListingID, in.BuyerID, domain.NegotiationActive).First(&existing).Error
		if err == nil {
			return &domain.ValidationError{Field: "listing_id", Reason: "An active negotiation for this listing already exists"}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		neg = &domain.Negotiation{
			ListingID:    in.ListingID,
			BuyerID:      in.BuyerID,
			SellerID:     listing.SellerID,
			Status:       domain.NegotiationActive,
			CurrentOffer: in.Amount,
			Currency:     listing.Currency,
		}
		if s.OfferExpiry > 0 {
			exp := s.now().Add(s.OfferExpiry)
			neg.ExpiresAt = &exp
		}
		if err := tx.Create(neg).Error; err != nil {
			return err
		}
		offer := &domain.Offer{
			NegotiationID: neg.NegotiationID,
			FromUserID:    in.BuyerID,
			OfferAmount:   in.Amount,
			Message:       in.Message,
		}
		if err := tx.Create(offer).Error; err != nil {
			return err
		}
		return s.writeEvent(tx, neg.NegotiationID, domain.EventOpened, &in.BuyerID, map[string]interface{}{
			"offer_amount": in.Amount,
		})
	})
	if err != nil {
		return nil, err
	}
	return neg, nil
}

// Get returns the negotiation, transitioning it to expired first when its
// deadline has passed (lazy expiry on read).
func (s *Service) Get(ctx context.Context, negotiationID uuid.UUID) (*domain.Negotiation, error) {
	var n domain.Negotiation
	if err := s.DB.WithContext(ctx).Where("negotiation_id = ?", negotiationID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ValidationError{Field: "negotiation_id", Reason: "Negotiation not found"}
		}
		return nil, err
	}
	if s.isExpired(&n) {
		if err := s.expire(ctx, &n); err != nil && !errors.Is(err, errVersionConflict) {
			return nil, err
		}
		// Re-read: either we expired it or a racing writer moved it on.
		if err := s.DB.WithContext(ctx).Where("negotiation_id = ?", negotiationID).First(&n).Error; err != nil {
			return nil, err
		}
	}
	return &n, nil
}

// History returns the ordered, append-only offer ledger.
func (s *Service) History(ctx context.Context, negotiationID uuid.UUID) ([]domain.Offer, error) {
	var offers []domain.Offer
	if err := s.DB.WithContext(ctx).Where("negotiation_id = ?", negotiationID).
		Order("created_at ASC").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// ListForUser returns negotiations where the user is buyer or seller.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Negotiation, error) {
	var negs []domain.Negotiation
	if err := s.DB.WithContext(ctx).Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("updated_at DESC").Find(&negs).Error; err != nil {
		return nil, err
	}
	return negs, nil
}

type OfferInput struct {
	NegotiationID uuid.UUID
	FromUserID    uuid.UUID
	Amount        int64
	Message       *string
}

// MakeOffer appends an offer to an active negotiation. Buyer offers must lie
// within the listing's negotiable range; seller counters within
// [minimum_price, asking_price].
func (s *Service) MakeOffer(ctx context.Context, in OfferInput) (*domain.Negotiation, error) {
	return s.mutate(ctx, in.NegotiationID, actionOffer, func(tx *gorm.DB, n *domain.Negotiation) error {
		if in.FromUserID != n.BuyerID && in.FromUserID != n.SellerID {
			return &domain.ValidationError{Field: "from_user_id", Reason: "Not a party to this negotiation"}
		}

		var listing domain.Listing
		if err := tx.Where("listing_id = ?", n.ListingID).First(&listing).Error; err != nil {
			return err
		}
		if in.FromUserID == n.BuyerID {
			r := listings.NegotiableRange(&listing)
			if !r.Contains(in.Amount) {
				return &domain.ValidationError{Field: "offer_amount", Reason: "Offer is outside the negotiable range for this listing"}
			}
		} else {
			if in.Amount < listing.MinimumPrice || in.Amount > listing.AskingPrice {
				return &domain.ValidationError{Field: "offer_amount", Reason: "Counter-offer must be between the minimum and asking price"}
			}
		}

		var last domain.Offer
		if err := tx.Where("negotiation_id = ?", n.NegotiationID).
			Order("created_at DESC").First(&last).Error; err != nil {
			return err
		}
		offer := &domain.Offer{
			NegotiationID:  n.NegotiationID,
			FromUserID:     in.FromUserID,
			OfferAmount:    in.Amount,
			Message:        in.Message,
			IsCounterOffer: last.FromUserID != in.FromUserID,
		}
		if err := tx.Create(offer).Error; err != nil {
			return err
		}
		n.CurrentOffer = in.Amount
		return s.writeEvent(tx, n.NegotiationID, domain.EventOffer, &in.FromUserID, map[string]interface{}{
			"offer_amount":     in.Amount,
			"is_counter_offer": offer.IsCounterOffer,
		})
	})
}

// Accept moves an active negotiation to accepted. Only the counterpart of the
// latest offer may accept; accepting your own standing offer is rejected.
func (s *Service) Accept(ctx context.Context, negotiationID, userID uuid.UUID) (*domain.Negotiation, error) {
	return s.mutate(ctx, negotiationID, actionAccept, func(tx *gorm.DB, n *domain.Negotiation) error {
		if userID != n.BuyerID && userID != n.SellerID {
			return &domain.ValidationError{Field: "user_id", Reason: "Not a party to this negotiation"}
		}
		var last domain.Offer
		if err := tx.Where("negotiation_id = ?", n.NegotiationID).
			Order("created_at DESC").First(&last).Error; err != nil {
			return err
		}
		if last.FromUserID == userID {
			return &domain.ValidationError{Field: "user_id", Reason: "Cannot accept your own offer"}
		}
		n.Status = domain.NegotiationAccepted
		return s.writeEvent(tx, n.NegotiationID, domain.EventAccepted, &userID, map[string]interface{}{
			"final_price": n.CurrentOffer,
		})
	})
}

// Decline is a seller-only rejection of the negotiation.
func (s *Service) Decline(ctx context.Context, negotiationID, sellerID uuid.UUID) (*domain.Negotiation, error) {
	return s.mutate(ctx, negotiationID, actionDecline, func(tx *gorm.DB, n *domain.Negotiation) error {
		if sellerID != n.SellerID {
			return &domain.ValidationError{Field: "user_id", Reason: "Only the seller can decline"}
		}
		n.Status = domain.NegotiationDeclined
		return s.writeEvent(tx, n.NegotiationID, domain.EventDeclined, &sellerID, nil)
	})
}

// Cancel may be called by either party.
func (s *Service) Cancel(ctx context.Context, negotiationID, userID uuid.UUID) (*domain.Negotiation, error) {
	return s.mutate(ctx, negotiationID, actionCancel, func(tx *gorm.DB, n *domain.Negotiation) error {
		if userID != n.BuyerID && userID != n.SellerID {
			return &domain.ValidationError{Field: "user_id", Reason: "Not a party to this negotiation"}
		}
		n.Status = domain.NegotiationCancelled
		return s.writeEvent(tx, n.NegotiationID, domain.EventCancelled, &userID, nil)
	})
}

// BrokerCounter asks the proposer for a counter amount and appends it as a
// seller-originated counter-offer. Proposals outside the listing's bounds are
// rejected by the same checks as a manual seller counter.
func (s *Service) BrokerCounter(ctx context.Context, negotiationID uuid.UUID, proposer CounterProposer) (*domain.Negotiation, error) {
	n, err := s.Get(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", n.ListingID).First(&listing).Error; err != nil {
		return nil, err
	}
	amount, err := proposer.ProposeCounter(ctx, n.CurrentOffer, listings.NegotiableRange(&listing))
	if err != nil {
		return nil, err
	}
	msg := "Broker counter-offer"
	return s.MakeOffer(ctx, OfferInput{
		NegotiationID: negotiationID,
		FromUserID:    n.SellerID,
		Amount:        amount,
		Message:       &msg,
	})
}

// mutate runs fn against an active negotiation inside a transaction, guarded
// by the negotiation's version counter. Lost races retry once against the
// fresh row; expiry is evaluated before fn so no action lands on a
// past-deadline negotiation.
func (s *Service) mutate(ctx context.Context, negotiationID uuid.UUID, action string, fn func(tx *gorm.DB, n *domain.Negotiation) error) (*domain.Negotiation, error) {
	var result *domain.Negotiation
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		result, err = s.mutateOnce(ctx, negotiationID, action, fn)
		if !errors.Is(err, errVersionConflict) {
			return result, err
		}
	}
	return nil, &domain.TransitionError{Status: "contended", Action: action}
}

func (s *Service) mutateOnce(ctx context.Context, negotiationID uuid.UUID, action string, fn func(tx *gorm.DB, n *domain.Negotiation) error) (*domain.Negotiation, error) {
	// Lazy expiry runs in its own transaction before the action: the expired
	// status must stick even though the action below is then rejected and
	// rolled back.
	var probe domain.Negotiation
	if err := s.DB.WithContext(ctx).Where("negotiation_id = ?", negotiationID).First(&probe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.ValidationError{Field: "negotiation_id", Reason: "Negotiation not found"}
		}
		return nil, err
	}
	if s.isExpired(&probe) {
		if err := s.expire(ctx, &probe); err != nil && !errors.Is(err, errVersionConflict) {
			return nil, err
		}
		return nil, &domain.TransitionError{Status: domain.NegotiationExpired, Action: action}
	}

	var n domain.Negotiation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("negotiation_id = ?", negotiationID).First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.ValidationError{Field: "negotiation_id", Reason: "Negotiation not found"}
			}
			return err
		}
		if n.IsTerminal() {
			return &domain.TransitionError{Status: n.Status, Action: action}
		}

		prevVersion := n.Version
		if err := fn(tx, &n); err != nil {
			return err
		}

		res := tx.Model(&domain.Negotiation{}).
			Where("negotiation_id = ? AND version = ?", n.NegotiationID, prevVersion).
			Updates(map[string]interface{}{
				"status":        n.Status,
				"current_offer": n.CurrentOffer,
				"version":       prevVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errVersionConflict
		}
		n.Version = prevVersion + 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Service) isExpired(n *domain.Negotiation) bool {
	return n.Status == domain.NegotiationActive && n.ExpiresAt != nil && s.now().After(*n.ExpiresAt)
}

// expire transitions to expired in its own transaction so the state change
// survives even when the caller's action is then rejected.
func (s *Service) expire(ctx context.Context, n *domain.Negotiation) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.expireInTx(tx, n)
	})
}

func (s *Service) expireInTx(tx *gorm.DB, n *domain.Negotiation) error {
	res := tx.Model(&domain.Negotiation{}).
		Where("negotiation_id = ? AND version = ? AND status = ?", n.NegotiationID, n.Version, domain.NegotiationActive).
		Updates(map[string]interface{}{
			"status":  domain.NegotiationExpired,
			"version": n.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	n.Status = domain.NegotiationExpired
	n.Version++
	return s.writeEvent(tx, n.NegotiationID, domain.EventExpired, nil, nil)
}

func (s *Service) writeEvent(tx *gorm.DB, negotiationID uuid.UUID, eventType string, actorID *uuid.UUID, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	b, _ := json.Marshal(data)
	return tx.Create(&domain.NegotiationEvent{
		NegotiationID: negotiationID,
		EventType:     eventType,
		EventData:     datatypes.JSON(b),
		ActorID:       actorID,
	}).Error
}
