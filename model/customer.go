package model

import "time"

// Customer mirrors a Square customer profile enriched with referral state.
// The personal referral code is globally unique; UsedReferralCode is the code
// this customer redeemed when they booked through a friend.
type Customer struct {
	CustomerID       string                 `json:"customer_id"`
	GivenName        string                 `json:"given_name"`
	FamilyName       string                 `json:"family_name"`
	EmailAddress     string                 `json:"email_address"`
	PhoneNumber      string                 `json:"phone_number"`
	ReferralCode     string                 `json:"referral_code"`
	UsedReferralCode string                 `json:"used_referral_code"`
	IsReferrer       bool                   `json:"is_referrer"`
	TotalReferrals   int                    `json:"total_referrals"`
	FirstPaymentAt   time.Time              `json:"first_payment_at"`
	CreatedAt        time.Time              `json:"created_at"`
	MetaData         map[string]interface{} `json:"meta_data"`
}

// FullName joins given and family name, ignoring whichever is empty.
func (c *Customer) FullName() string {
	switch {
	case c.GivenName == "":
		return c.FamilyName
	case c.FamilyName == "":
		return c.GivenName
	default:
		return c.GivenName + " " + c.FamilyName
	}
}
