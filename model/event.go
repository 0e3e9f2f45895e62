package model

import (
	"encoding/json"
	"time"
)

// Recognized Square webhook event types.
const (
	EventCustomerCreated = "customer.created"
	EventBookingCreated  = "booking.created"
	EventBookingUpdated  = "booking.updated"
	EventPaymentCreated  = "payment.created"
	EventPaymentUpdated  = "payment.updated"
)

// WebhookEvent is the Square webhook envelope. Data.Object is kept raw and
// decoded per event type by the router.
type WebhookEvent struct {
	MerchantID string    `json:"merchant_id"`
	Type       string    `json:"type"`
	EventID    string    `json:"event_id"`
	CreatedAt  time.Time `json:"created_at"`
	Data       struct {
		Type   string          `json:"type"`
		ID     string          `json:"id"`
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ResourceID returns the id of the resource the event refers to, used as the
// correlation-id seed.
func (e *WebhookEvent) ResourceID() string {
	return e.Data.ID
}

// Money is Square's amount representation, in minor currency units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CustomField carries operator-defined booking intake fields. Referral codes
// usually arrive through one of these.
type CustomField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// CustomerObject is the data.object payload of customer.* events.
type CustomerObject struct {
	Customer struct {
		ID           string                 `json:"id"`
		GivenName    string                 `json:"given_name"`
		FamilyName   string                 `json:"family_name"`
		EmailAddress string                 `json:"email_address"`
		PhoneNumber  string                 `json:"phone_number"`
		CreatedAt    time.Time              `json:"created_at"`
		Preferences  map[string]interface{} `json:"preferences"`
	} `json:"customer"`
}

// AppointmentSegment is one service within a booking.
type AppointmentSegment struct {
	ServiceVariationID string        `json:"service_variation_id"`
	TeamMemberID       string        `json:"team_member_id"`
	DurationMinutes    int           `json:"duration_minutes"`
	CapabilityDetails  string        `json:"capability_details"`
	CustomFields       []CustomField `json:"custom_fields"`
}

// BookingObject is the data.object payload of booking.* events.
type BookingObject struct {
	Booking struct {
		ID                  string               `json:"id"`
		CustomerID          string               `json:"customer_id"`
		LocationID          string               `json:"location_id"`
		StartAt             time.Time            `json:"start_at"`
		Status              string               `json:"status"`
		CustomerNote        string               `json:"customer_note"`
		AppointmentSegments []AppointmentSegment `json:"appointment_segments"`
		CustomFields        []CustomField        `json:"custom_fields"`
	} `json:"booking"`
}

// PaymentObject is the data.object payload of payment.* events.
type PaymentObject struct {
	Payment struct {
		ID          string    `json:"id"`
		CustomerID  string    `json:"customer_id"`
		LocationID  string    `json:"location_id"`
		OrderID     string    `json:"order_id"`
		Status      string    `json:"status"`
		AmountMoney Money     `json:"amount_money"`
		CreatedAt   time.Time `json:"created_at"`
	} `json:"payment"`
}
