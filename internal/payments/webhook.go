package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"broker-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DealCompleter settles a pending deal once the provider confirms payment.
// Implemented by the deals service and wired in app setup.
type DealCompleter interface {
	Complete(ctx context.Context, dealID uuid.UUID, paymentRef string) (*domain.Deal, error)
}

// WebhookHandler settles deals from billing provider events. Mounted before
// the body parser so the raw payload is available for signature verification.
type WebhookHandler struct {
	Deals         DealCompleter
	WebhookSecret string
}

type billingEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type paymentObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// HandleWebhook POST /api/v1/billing/webhook — raw body, signature
// verification, then process. Domain errors still return 200 so the provider
// does not retry them.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Billing-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("billing webhook received empty body")
		return c.Status(400).SendString("Webhook Error: empty body")
	}
	if err := verifySignature(rawBody, sig, wh.WebhookSecret); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("billing webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event billingEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Warn().Err(err).Msg("billing webhook JSON parse failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if event.Type == "payment.succeeded" {
		var p paymentObject
		if err := json.Unmarshal(event.Data.Object, &p); err != nil {
			return c.Status(200).SendString("ok")
		}
		if err := wh.handlePaymentSucceeded(c.Context(), p); err != nil {
			log.Warn().Err(err).Str("payment_id", p.ID).Msg("billing webhook processing failed")
			return c.Status(200).SendString("ok")
		}
	}

	return c.Status(200).SendString("ok")
}

func (wh *WebhookHandler) handlePaymentSucceeded(ctx context.Context, p paymentObject) error {
	dealIDStr := p.Metadata["deal_id"]
	if dealIDStr == "" {
		return nil // not ours, skip silently
	}
	dealID, err := uuid.Parse(dealIDStr)
	if err != nil {
		return nil
	}
	// Complete is a no-op for already-completed deals, so redelivered events
	// never double-apply.
	_, err = wh.Deals.Complete(ctx, dealID, p.ID)
	return err
}

// verifySignature checks "t=<unix>,v1=<hex hmac-sha256>" over "<t>.<payload>"
// with a 5 minute tolerance.
func verifySignature(payload []byte, sigHeader, secret string) error {
	if sigHeader == "" || secret == "" {
		return errors.New("missing signature or secret")
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return errors.New("invalid signature format")
	}

	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expectedSig)) {
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				return errors.New("invalid timestamp")
			}
			diff := time.Now().Unix() - ts
			if diff < 0 {
				diff = -diff
			}
			if diff > 300 {
				return errors.New("timestamp too old")
			}
			return nil
		}
	}
	return errors.New("signature mismatch")
}
