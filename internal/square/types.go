package square

import "fmt"

// Money is an amount in minor currency units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// ErrorDetail is one entry of Square's structured error payload.
type ErrorDetail struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
	Field    string `json:"field,omitempty"`
}

// APIError carries the structured errors Square returns on non-2xx responses.
type APIError struct {
	StatusCode int           `json:"status_code"`
	Errors     []ErrorDetail `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("square: %d %s: %s", e.StatusCode, e.Errors[0].Code, e.Errors[0].Detail)
	}
	return fmt.Sprintf("square: unexpected status %d", e.StatusCode)
}

// Retriable reports whether the request may be retried safely. Square
// mutating endpoints are idempotency-keyed, so 5xx and 429 are retriable.
func (e *APIError) Retriable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// GiftCard is Square's gift card resource. The delivery URLs are assigned by
// Square some time after activation, so they are empty on early fetches.
type GiftCard struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	GANSource     string `json:"gan_source,omitempty"`
	State         string `json:"state"`
	BalanceMoney  Money  `json:"balance_money"`
	GAN           string `json:"gan,omitempty"`
	ActivationURL string `json:"activation_url,omitempty"`
	PassURL       string `json:"pass_url,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// Gift card activity types used by the reward engine.
const (
	ActivityActivate        = "ACTIVATE"
	ActivityAdjustIncrement = "ADJUST_INCREMENT"
)

// GiftCardActivity is the result of activating or adjusting a card.
type GiftCardActivity struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	GiftCardID           string `json:"gift_card_id"`
	GiftCardGAN          string `json:"gift_card_gan,omitempty"`
	GiftCardBalanceMoney Money  `json:"gift_card_balance_money"`
	CreatedAt            string `json:"created_at,omitempty"`
}

// ActivateDetails funds an activation either from an order line item or from
// buyer payment instruments (owner-funded).
type ActivateDetails struct {
	AmountMoney               *Money   `json:"amount_money,omitempty"`
	OrderID                   string   `json:"order_id,omitempty"`
	LineItemUID               string   `json:"line_item_uid,omitempty"`
	BuyerPaymentInstrumentIDs []string `json:"buyer_payment_instrument_ids,omitempty"`
}

// AdjustIncrementDetails adds balance outside of an activation.
type AdjustIncrementDetails struct {
	AmountMoney Money  `json:"amount_money"`
	Reason      string `json:"reason"`
}

// Customer is Square's customer resource, narrowed to the fields Chairside
// reads and writes.
type Customer struct {
	ID           string `json:"id"`
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Note         string `json:"note,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CustomAttribute is one customer custom attribute.
type CustomAttribute struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// OrderLineItem is a single line of a created order.
type OrderLineItem struct {
	UID            string `json:"uid,omitempty"`
	Name           string `json:"name"`
	Quantity       string `json:"quantity"`
	ItemType       string `json:"item_type,omitempty"`
	BasePriceMoney Money  `json:"base_price_money"`
}

// Order is Square's order resource, narrowed to gift card sales.
type Order struct {
	ID         string          `json:"id"`
	LocationID string          `json:"location_id"`
	State      string          `json:"state,omitempty"`
	LineItems  []OrderLineItem `json:"line_items"`
	TotalMoney Money           `json:"total_money,omitempty"`
}

// Payment is Square's payment resource.
type Payment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	OrderID     string `json:"order_id,omitempty"`
	AmountMoney Money  `json:"amount_money"`
}

// Location is Square's location resource.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
	Status   string `json:"status,omitempty"`
}
