package broker

import (
	"context"

	"broker-backend/internal/listings"

	"github.com/rs/zerolog/log"
)

// MidpointPolicy proposes the midpoint between the standing offer and the
// asking price, clamped into the negotiable range.
type MidpointPolicy struct{}

func (MidpointPolicy) ProposeCounter(ctx context.Context, currentOffer int64, r listings.Range) (int64, error) {
	return clamp((currentOffer+r.Max)/2, r), nil
}

// AmountProposer is the model-provider capability ModelPolicy needs: given the
// standing offer and the allowed band, return a proposed amount.
type AmountProposer interface {
	ProposeAmount(ctx context.Context, currentOffer, min, max int64) (int64, error)
}

// ModelPolicy lets the conversational model pick the counter amount. The model
// is advisory only: an errored or out-of-range reply falls back to the
// midpoint, so the proposal always lands inside the negotiable range.
type ModelPolicy struct {
	Model    AmountProposer
	Fallback MidpointPolicy
}

func (p *ModelPolicy) ProposeCounter(ctx context.Context, currentOffer int64, r listings.Range) (int64, error) {
	if p.Model != nil {
		amount, err := p.Model.ProposeAmount(ctx, currentOffer, r.Min, r.Max)
		if err == nil && r.Contains(amount) {
			return amount, nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("model counter proposal failed, using midpoint")
		} else {
			log.Warn().Int64("amount", amount).Int64("min", r.Min).Int64("max", r.Max).Msg("model proposed out-of-range counter, using midpoint")
		}
	}
	return p.Fallback.ProposeCounter(ctx, currentOffer, r)
}

func clamp(v int64, r listings.Range) int64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}
