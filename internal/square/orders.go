package square

import "context"

// CreateGiftCardOrder creates a one-line order selling a digital gift card,
// which the reward engine can then activate against.
func (c *Client) CreateGiftCardOrder(ctx context.Context, idempotencyKey, locationID string, amount Money) (*Order, error) {
	req := map[string]interface{}{
		"idempotency_key": idempotencyKey,
		"order": Order{
			LocationID: locationID,
			LineItems: []OrderLineItem{
				{
					Name:           "Referral reward eGift",
					Quantity:       "1",
					ItemType:       "GIFT_CARD",
					BasePriceMoney: amount,
				},
			},
		},
	}
	var resp struct {
		Order *Order `json:"order"`
	}
	if err := c.post(ctx, "/v2/orders", req, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

// CreateOrderPayment pays for an order with the owner's payment source,
// completing it so the gift card activation can reference its line item.
func (c *Client) CreateOrderPayment(ctx context.Context, idempotencyKey, orderID, sourceID string, amount Money) (*Payment, error) {
	req := map[string]interface{}{
		"idempotency_key": idempotencyKey,
		"order_id":        orderID,
		"source_id":       sourceID,
		"amount_money":    amount,
	}
	var resp struct {
		Payment *Payment `json:"payment"`
	}
	if err := c.post(ctx, "/v2/payments", req, &resp); err != nil {
		return nil, err
	}
	return resp.Payment, nil
}

// RetrieveLocation fetches a location, used to resolve display names.
func (c *Client) RetrieveLocation(ctx context.Context, locationID string) (*Location, error) {
	var resp struct {
		Location *Location `json:"location"`
	}
	if err := c.get(ctx, "/v2/locations/"+locationID, &resp); err != nil {
		return nil, err
	}
	return resp.Location, nil
}
