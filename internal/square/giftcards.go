package square

import (
	"context"
	"fmt"
)

// CreateGiftCard creates a digital gift card shell in PENDING state.
//
// Parameters:
// - idempotencyKey string: Deterministic key; retries converge on one card.
// - locationID string: The Square location the card belongs to.
func (c *Client) CreateGiftCard(ctx context.Context, idempotencyKey, locationID string) (*GiftCard, error) {
	req := map[string]interface{}{
		"idempotency_key": idempotencyKey,
		"location_id":     locationID,
		"gift_card":       map[string]string{"type": "DIGITAL"},
	}
	var resp struct {
		GiftCard *GiftCard `json:"gift_card"`
	}
	if err := c.post(ctx, "/v2/gift-cards", req, &resp); err != nil {
		return nil, err
	}
	return resp.GiftCard, nil
}

// RetrieveGiftCard fetches the authoritative card state, including the GAN
// that may not have been assigned at creation time.
func (c *Client) RetrieveGiftCard(ctx context.Context, giftCardID string) (*GiftCard, error) {
	var resp struct {
		GiftCard *GiftCard `json:"gift_card"`
	}
	if err := c.get(ctx, "/v2/gift-cards/"+giftCardID, &resp); err != nil {
		return nil, err
	}
	return resp.GiftCard, nil
}

// ActivateWithOrder activates a gift card by linking it to a paid order line
// item (the eGift purchase path).
func (c *Client) ActivateWithOrder(ctx context.Context, idempotencyKey, giftCardGAN, locationID, orderID, lineItemUID string) (*GiftCardActivity, error) {
	return c.createActivity(ctx, idempotencyKey, map[string]interface{}{
		"type":          ActivityActivate,
		"location_id":   locationID,
		"gift_card_gan": giftCardGAN,
		"activate_activity_details": ActivateDetails{
			OrderID:     orderID,
			LineItemUID: lineItemUID,
		},
	})
}

// ActivateOwnerFunded activates a gift card against the owner's payment
// instrument, used when no customer-paid order exists for the reward.
func (c *Client) ActivateOwnerFunded(ctx context.Context, idempotencyKey, giftCardGAN, locationID string, amount Money, instrumentID string) (*GiftCardActivity, error) {
	return c.createActivity(ctx, idempotencyKey, map[string]interface{}{
		"type":          ActivityActivate,
		"location_id":   locationID,
		"gift_card_gan": giftCardGAN,
		"activate_activity_details": ActivateDetails{
			AmountMoney:               &amount,
			BuyerPaymentInstrumentIDs: []string{instrumentID},
		},
	})
}

// AdjustIncrement loads balance onto an already-active card, or acts as the
// last-resort funding tier when activation fails.
func (c *Client) AdjustIncrement(ctx context.Context, idempotencyKey, giftCardGAN, locationID string, amount Money, reason string) (*GiftCardActivity, error) {
	return c.createActivity(ctx, idempotencyKey, map[string]interface{}{
		"type":          ActivityAdjustIncrement,
		"location_id":   locationID,
		"gift_card_gan": giftCardGAN,
		"adjust_increment_activity_details": AdjustIncrementDetails{
			AmountMoney: amount,
			Reason:      reason,
		},
	})
}

func (c *Client) createActivity(ctx context.Context, idempotencyKey string, activity map[string]interface{}) (*GiftCardActivity, error) {
	req := map[string]interface{}{
		"idempotency_key":    idempotencyKey,
		"gift_card_activity": activity,
	}
	var resp struct {
		GiftCardActivity *GiftCardActivity `json:"gift_card_activity"`
	}
	if err := c.post(ctx, "/v2/gift-cards/activities", req, &resp); err != nil {
		return nil, err
	}
	return resp.GiftCardActivity, nil
}

// LinkCustomerToGiftCard attaches the card to the customer profile so it
// shows up in their Square account.
func (c *Client) LinkCustomerToGiftCard(ctx context.Context, giftCardID, customerID string) error {
	req := map[string]string{"customer_id": customerID}
	return c.post(ctx, fmt.Sprintf("/v2/gift-cards/%s/link-customer", giftCardID), req, nil)
}
