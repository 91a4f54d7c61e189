package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"broker-backend/internal/catalog"
	"broker-backend/internal/listings"
	"broker-backend/internal/negotiations"

	"github.com/google/uuid"
)

// Tool is a named capability the model may invoke mid-turn. Execute returns a
// string result fed back to the model; execution errors are also fed back as
// text so the model can recover instead of aborting the turn.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Execute     func(ctx context.Context, args json.RawMessage) (string, error)
}

// Spec converts the tool to its provider wire description.
func (t Tool) Spec() ToolSpec {
	return ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Toolset builds the per-turn tool registry. The current user is bound at
// construction so get_current_user needs no session plumbing inside the loop.
func Toolset(cat *catalog.Service, lst *listings.Service, neg *negotiations.Service, currentUserID uuid.UUID) []Tool {
	return []Tool{
		{
			Name:        "get_current_user",
			Description: "Get the current user id",
			Parameters:  objectSchema(map[string]interface{}{}),
			Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
				if currentUserID == uuid.Nil {
					return "", nil
				}
				return currentUserID.String(), nil
			},
		},
		{
			Name:        "get_product_information",
			Description: "Get all products available in the marketplace",
			Parameters: objectSchema(map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			}, "query"),
			Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
				products, err := cat.ListProducts(ctx)
				if err != nil {
					return "", err
				}
				b, err := json.Marshal(products)
				if err != nil {
					return "", err
				}
				return string(b), nil
			},
		},
		{
			Name:        "get_seller_intent",
			Description: "Get the seller's negotiation intent for a listing",
			Parameters: objectSchema(map[string]interface{}{
				"listing_id": map[string]interface{}{"type": "string"},
			}, "listing_id"),
			Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					ListingID string `json:"listing_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
				id, err := uuid.Parse(in.ListingID)
				if err != nil {
					return "", fmt.Errorf("invalid listing_id")
				}
				listing, err := lst.GetListing(ctx, id)
				if err != nil {
					return "", err
				}
				r := listings.NegotiableRange(listing)
				intent := fmt.Sprintf(
					"Seller asks %d and will negotiate down to %d (%d%% flexibility).",
					listing.AskingPrice, r.Min, listing.FlexibilityPercentage)
				if listing.Deadline != nil {
					intent += fmt.Sprintf(" Seller needs to sell by %s.", listing.Deadline.Format("2006-01-02"))
				}
				return intent, nil
			},
		},
		{
			Name:        "add_product",
			Description: "Add a product to the marketplace",
			Parameters: objectSchema(map[string]interface{}{
				"title":         map[string]interface{}{"type": "string"},
				"description":   map[string]interface{}{"type": "string"},
				"current_price": map[string]interface{}{"type": "number"},
				"image_url":     map[string]interface{}{"type": "string"},
				"status":        map[string]interface{}{"type": "string"},
				"seller_id":     map[string]interface{}{"type": "string"},
			}, "title", "description", "current_price", "seller_id"),
			Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Title        string  `json:"title"`
					Description  string  `json:"description"`
					CurrentPrice int64   `json:"current_price"`
					ImageURL     *string `json:"image_url"`
					Status       string  `json:"status"`
					SellerID     string  `json:"seller_id"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
				sellerID, err := uuid.Parse(in.SellerID)
				if err != nil {
					return "", fmt.Errorf("invalid seller_id")
				}
				id, err := cat.InsertProduct(ctx, catalog.InsertProductInput{
					Title:       in.Title,
					Description: in.Description,
					Price:       in.CurrentPrice,
					ImageURL:    in.ImageURL,
					Status:      in.Status,
					SellerID:    sellerID,
				})
				if err != nil {
					return fmt.Sprintf("Error adding product: %v", err), nil
				}
				return fmt.Sprintf("Product %q successfully added to marketplace with ID: %s", in.Title, id), nil
			},
		},
		{
			Name:        "make_offer",
			Description: "Make an offer on a listing on behalf of the current user",
			Parameters: objectSchema(map[string]interface{}{
				"listing_id":   map[string]interface{}{"type": "string"},
				"offer_amount": map[string]interface{}{"type": "number"},
				"message":      map[string]interface{}{"type": "string"},
			}, "listing_id", "offer_amount"),
			Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					ListingID   string  `json:"listing_id"`
					OfferAmount int64   `json:"offer_amount"`
					Message     *string `json:"message"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
				if currentUserID == uuid.Nil {
					return "Error: no user is signed in", nil
				}
				listingID, err := uuid.Parse(in.ListingID)
				if err != nil {
					return "", fmt.Errorf("invalid listing_id")
				}
				n, err := neg.Open(ctx, negotiations.OpenInput{
					ListingID: listingID,
					BuyerID:   currentUserID,
					Amount:    in.OfferAmount,
					Message:   in.Message,
				})
				if err != nil {
					return fmt.Sprintf("Error making offer: %v", err), nil
				}
				return fmt.Sprintf("Offer of %d placed, negotiation %s is %s", n.CurrentOffer, n.NegotiationID, n.Status), nil
			},
		},
	}
}
