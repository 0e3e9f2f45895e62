package model

import (
	"fmt"
	"time"
)

// Booking is one service segment of a Square booking. Multi-service bookings
// produce one row per segment; all rows share the Square booking id as a
// prefix of BookingID ("{square id}" for segment 0, "{square id}:{n}" after).
type Booking struct {
	BookingID        string                 `json:"booking_id"`
	SquareBookingID  string                 `json:"square_booking_id"`
	CustomerID       string                 `json:"customer_id"`
	LocationID       string                 `json:"location_id"`
	LocationName     string                 `json:"location_name"`
	ServiceVariation string                 `json:"service_variation"`
	TeamMemberID     string                 `json:"team_member_id"`
	StartAt          time.Time              `json:"start_at"`
	Status           string                 `json:"status"`
	ReferralCode     string                 `json:"referral_code"`
	ReferralSource   string                 `json:"referral_source"`
	CreatedAt        time.Time              `json:"created_at"`
	MetaData         map[string]interface{} `json:"meta_data"`
}

// SegmentBookingID derives the row id for the nth service segment.
func SegmentBookingID(squareBookingID string, segment int) string {
	if segment == 0 {
		return squareBookingID
	}
	return fmt.Sprintf("%s:%d", squareBookingID, segment)
}

// Referral-code detection locations, in priority order. Recorded on the
// booking row so operators can see where a code came from.
const (
	ReferralSourceServiceDetails  = "service_capability_details"
	ReferralSourceBookingFields   = "booking_custom_fields"
	ReferralSourceSegmentFields   = "segment_custom_fields"
	ReferralSourceCustomAttribute = "customer_custom_attribute"
)
