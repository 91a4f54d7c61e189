package deals

import (
	"context"
	"testing"

	"broker-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDealsTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Negotiation{}, &domain.Deal{}, &domain.NegotiationEvent{}))
	return &Service{DB: db, FeePercent: 5}, db
}

func seedNegotiation(t *testing.T, db *gorm.DB, status string, offer int64) *domain.Negotiation {
	n := &domain.Negotiation{
		ListingID:    uuid.New(),
		BuyerID:      uuid.New(),
		SellerID:     uuid.New(),
		Status:       status,
		CurrentOffer: offer,
		Currency:     "USD",
	}
	require.NoError(t, db.Create(n).Error)
	return n
}

func TestFee_RoundsHalfUp(t *testing.T) {
	s := &Service{FeePercent: 5}
	assert.Equal(t, int64(45), s.Fee(900))
	assert.Equal(t, int64(50), s.Fee(999))  // 49.95 rounds up
	assert.Equal(t, int64(500), s.Fee(10000))
	assert.Equal(t, int64(0), s.Fee(0))
}

func TestFinalize_RequiresAccepted(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationActive, 900)

	_, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.Error(t, err)
	var pe *domain.PreconditionError
	assert.ErrorAs(t, err, &pe)
}

func TestFinalize_UnknownNegotiation(t *testing.T) {
	s, _ := setupDealsTest(t)
	_, err := s.Finalize(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestFinalize_CreatesPendingDeal(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationAccepted, 900)

	deal, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealPending, deal.Status)
	assert.Equal(t, int64(900), deal.FinalPrice)
	assert.Equal(t, int64(45), deal.BrokerFee)
	assert.Equal(t, "USD", deal.Currency)

	var events []domain.NegotiationEvent
	require.NoError(t, db.Where("negotiation_id = ? AND event_type = ?",
		n.NegotiationID, domain.EventFinalized).Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestFinalize_Idempotent(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationAccepted, 900)

	first, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.NoError(t, err)
	second, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.NoError(t, err)
	assert.Equal(t, first.DealID, second.DealID)

	var count int64
	require.NoError(t, db.Model(&domain.Deal{}).Where("negotiation_id = ?", n.NegotiationID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Redelivered finalize must not write a second event either.
	var events int64
	require.NoError(t, db.Model(&domain.NegotiationEvent{}).
		Where("negotiation_id = ?", n.NegotiationID).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestFinalize_NonParty(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationAccepted, 900)

	_, err := s.Finalize(context.Background(), n.NegotiationID, uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	var count int64
	require.NoError(t, db.Model(&domain.Deal{}).Where("negotiation_id = ?", n.NegotiationID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// Either party may finalize.
	_, err = s.Finalize(context.Background(), n.NegotiationID, n.SellerID)
	require.NoError(t, err)
}

func TestCancel_NonParty(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationAccepted, 900)
	deal, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.NoError(t, err)

	_, err = s.Cancel(context.Background(), deal.DealID, uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	var stored domain.Deal
	require.NoError(t, db.Where("deal_id = ?", deal.DealID).First(&stored).Error)
	assert.Equal(t, domain.DealPending, stored.Status)

	_, err = s.Cancel(context.Background(), deal.DealID, n.SellerID)
	require.NoError(t, err)
}

func TestComplete(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationAccepted, 900)
	deal, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.NoError(t, err)

	done, err := s.Complete(context.Background(), deal.DealID, "pay_123")
	require.NoError(t, err)
	assert.Equal(t, domain.DealCompleted, done.Status)
	require.NotNil(t, done.PaymentRef)
	assert.Equal(t, "pay_123", *done.PaymentRef)
	assert.NotNil(t, done.CompletionDate)

	// Completing again keeps the original payment reference.
	again, err := s.Complete(context.Background(), deal.DealID, "pay_456")
	require.NoError(t, err)
	require.NotNil(t, again.PaymentRef)
	assert.Equal(t, "pay_123", *again.PaymentRef)
}

func TestCancel(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationAccepted, 900)
	deal, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.NoError(t, err)

	cancelled, err := s.Cancel(context.Background(), deal.DealID, n.BuyerID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealCancelled, cancelled.Status)

	// Idempotent.
	_, err = s.Cancel(context.Background(), deal.DealID, n.BuyerID)
	require.NoError(t, err)

	// A cancelled deal cannot be completed.
	_, err = s.Complete(context.Background(), deal.DealID, "pay_123")
	require.Error(t, err)
	var pe *domain.PreconditionError
	assert.ErrorAs(t, err, &pe)
}

func TestCancel_CompletedRejected(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationAccepted, 900)
	deal, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.NoError(t, err)
	_, err = s.Complete(context.Background(), deal.DealID, "pay_123")
	require.NoError(t, err)

	_, err = s.Cancel(context.Background(), deal.DealID, n.BuyerID)
	require.Error(t, err)
	var pe *domain.PreconditionError
	assert.ErrorAs(t, err, &pe)
}

func TestGetByNegotiation(t *testing.T) {
	s, db := setupDealsTest(t)
	n := seedNegotiation(t, db, domain.NegotiationAccepted, 900)

	_, err := s.GetByNegotiation(context.Background(), n.NegotiationID)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	deal, err := s.Finalize(context.Background(), n.NegotiationID, n.BuyerID)
	require.NoError(t, err)
	got, err := s.GetByNegotiation(context.Background(), n.NegotiationID)
	require.NoError(t, err)
	assert.Equal(t, deal.DealID, got.DealID)
}
