package square

import (
	"context"
	"fmt"
)

// RetrieveCustomer fetches one customer profile.
func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var resp struct {
		Customer *Customer `json:"customer"`
	}
	if err := c.get(ctx, "/v2/customers/"+customerID, &resp); err != nil {
		return nil, err
	}
	return resp.Customer, nil
}

// AppendCustomerNote adds a human-readable line to the customer's note field,
// preserving whatever the operator already wrote there.
func (c *Client) AppendCustomerNote(ctx context.Context, customerID, note string) error {
	current, err := c.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	merged := note
	if current.Note != "" {
		merged = current.Note + "\n" + note
	}
	req := map[string]string{"note": merged}
	return c.put(ctx, "/v2/customers/"+customerID, req, nil)
}

// ListCustomerCustomAttributes returns every custom attribute on a customer.
// Referral codes sometimes arrive through intake forms that write here.
func (c *Client) ListCustomerCustomAttributes(ctx context.Context, customerID string) ([]CustomAttribute, error) {
	var resp struct {
		CustomAttributes []CustomAttribute `json:"custom_attributes"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v2/customers/%s/custom-attributes", customerID), &resp); err != nil {
		return nil, err
	}
	return resp.CustomAttributes, nil
}

// UpsertCustomerCustomAttribute writes one custom attribute on a customer.
func (c *Client) UpsertCustomerCustomAttribute(ctx context.Context, customerID, key string, value interface{}) error {
	req := map[string]interface{}{
		"custom_attribute": map[string]interface{}{"value": value},
	}
	return c.post(ctx, fmt.Sprintf("/v2/customers/%s/custom-attributes/%s", customerID, key), req, nil)
}
