/*
Copyright 2024 Chairside Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package chairside

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/internal/square"
	"github.com/chairside/chairside/model"
)

// Square custom attribute key holding the code a customer redeemed.
const usedReferralAttributeKey = "chairside_referred_by"

// referralCodePattern matches codes minted by GenerateReferralCode: a short
// name prefix, a dash and five characters from the unambiguous alphabet.
var referralCodePattern = regexp.MustCompile(`\b([A-Z]{2,10}-[A-Z2-9]{5})\b`)

// handleBookingCreated ingests a booking.created event. Each appointment
// segment becomes its own row, and the intake fields are scanned for a
// referral code which, once validated, is attached to the customer.
func (c *Chairside) handleBookingCreated(ctx context.Context, correlationID string, event model.WebhookEvent) error {
	var obj model.BookingObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return errors.Wrap(err, "decode booking payload")
	}
	booking := obj.Booking
	if booking.ID == "" {
		return errors.New("booking payload missing id")
	}

	c.runs.UpdateStage(ctx, correlationID, "booking_ingest", model.RunStatusRunning)

	code, source := c.detectReferralCode(ctx, &obj)
	if code != "" {
		code = c.validateReferralCode(ctx, code, booking.CustomerID)
		if code == "" {
			source = ""
		}
	}

	locationName := c.locationName(ctx, booking.LocationID)

	segments := booking.AppointmentSegments
	if len(segments) == 0 {
		// A booking with no segments still gets one row so cancellations
		// can find it later.
		segments = []model.AppointmentSegment{{}}
	}
	for i, segment := range segments {
		row := model.Booking{
			BookingID:        model.SegmentBookingID(booking.ID, i),
			SquareBookingID:  booking.ID,
			CustomerID:       booking.CustomerID,
			LocationID:       booking.LocationID,
			LocationName:     locationName,
			ServiceVariation: segment.ServiceVariationID,
			TeamMemberID:     segment.TeamMemberID,
			StartAt:          booking.StartAt,
			Status:           booking.Status,
			ReferralCode:     code,
			ReferralSource:   source,
		}
		if _, err := c.datasource.CreateBooking(ctx, row); err != nil {
			return errors.Wrapf(err, "persist booking segment %d", i)
		}
	}

	if code != "" {
		if err := c.datasource.UpdateCustomerReferral(ctx, booking.CustomerID, code); err != nil {
			logrus.WithError(err).Warn("attach referral code to customer")
		}
		c.runs.AddContext(ctx, correlationID, map[string]interface{}{
			"referral_code":   code,
			"referral_source": source,
		})
		if err := c.issueFriendReward(ctx, correlationID, event, booking.CustomerID, code); err != nil {
			c.runs.MarkError(ctx, correlationID, "friend_reward", err)
			return err
		}
	}

	c.runs.UpdateStage(ctx, correlationID, "booking_recorded", model.RunStatusCompleted)
	return nil
}

// issueFriendReward issues the welcome gift card to the newly referred
// customer as soon as their booking lands. The referrer's side waits for the
// friend's first completed payment.
func (c *Chairside) issueFriendReward(ctx context.Context, correlationID string, event model.WebhookEvent, customerID, code string) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	c.runs.UpdateStage(ctx, correlationID, "friend_reward", model.RunStatusRunning)

	// The customer row may lag behind the booking when customer.created has
	// not arrived yet; deliveries then wait for the contact backfill.
	friend := model.Customer{CustomerID: customerID}
	if row, err := c.datasource.GetCustomerByID(ctx, customerID); err == nil {
		friend = *row
	} else if err != sql.ErrNoRows {
		return errors.Wrap(err, "lookup referred customer")
	}

	card, err := c.IssueReward(ctx, correlationID+":friend", model.RewardIntent{
		CustomerID:      customerID,
		Amount:          cfg.Reward.FriendAmount,
		IdempotencySeed: model.BuildIdempotencyKey(event.EventID, customerID, "friend"),
		Reason:          fmt.Sprintf("Referral welcome reward (%s)", code),
	})
	if err != nil && !errors.Is(err, ErrRewardAlreadyIssued) {
		return errors.Wrap(err, "issue friend reward")
	}
	c.queueGiftCardDeliveries(correlationID+":friend", friend, *card)

	c.runs.UpdateStage(ctx, correlationID, "friend_rewarded", model.RunStatusCompleted)
	return nil
}

// handleBookingUpdated propagates a status change to every segment row. A
// booking that was never recorded, because its creation event predated the
// service or was lost, is recorded now from the update payload.
func (c *Chairside) handleBookingUpdated(ctx context.Context, correlationID string, event model.WebhookEvent) error {
	var obj model.BookingObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return errors.Wrap(err, "decode booking payload")
	}
	booking := obj.Booking
	if booking.ID == "" {
		return errors.New("booking payload missing id")
	}

	c.runs.UpdateStage(ctx, correlationID, "booking_update", model.RunStatusRunning)

	touched, err := c.datasource.UpdateBookingsBySquareID(ctx, booking.ID, booking.Status)
	if err != nil {
		return errors.Wrap(err, "update booking segments")
	}
	if touched == 0 {
		logrus.WithField("booking_id", booking.ID).Info("unknown booking on update, recording from update payload")
		c.runs.AddContext(ctx, correlationID, map[string]interface{}{
			"recovered_from_update": true,
		})
		return c.handleBookingCreated(ctx, correlationID, event)
	}

	c.runs.UpdateStage(ctx, correlationID, "booking_updated", model.RunStatusCompleted)
	return nil
}

// detectReferralCode scans the booking for a referral code. Sources are
// checked in priority order and the first hit wins:
//
//  1. segment capability details, set by the online booking flow
//  2. booking-level custom intake fields
//  3. segment-level custom intake fields
//  4. the customer's referred-by custom attribute in Square
func (c *Chairside) detectReferralCode(ctx context.Context, obj *model.BookingObject) (string, string) {
	for _, segment := range obj.Booking.AppointmentSegments {
		if code := extractReferralCode(segment.CapabilityDetails); code != "" {
			return code, model.ReferralSourceServiceDetails
		}
	}
	for _, field := range obj.Booking.CustomFields {
		if code := extractReferralCode(field.Value); code != "" {
			return code, model.ReferralSourceBookingFields
		}
	}
	for _, segment := range obj.Booking.AppointmentSegments {
		for _, field := range segment.CustomFields {
			if code := extractReferralCode(field.Value); code != "" {
				return code, model.ReferralSourceSegmentFields
			}
		}
	}
	if obj.Booking.CustomerID != "" {
		attributes, err := c.square.ListCustomerCustomAttributes(ctx, obj.Booking.CustomerID)
		if err != nil {
			square.LogAPIError("list customer custom attributes", err)
			return "", ""
		}
		for _, attribute := range attributes {
			if attribute.Key != usedReferralAttributeKey {
				continue
			}
			if value, ok := attribute.Value.(string); ok {
				if code := extractReferralCode(value); code != "" {
					return code, model.ReferralSourceCustomAttribute
				}
			}
		}
	}
	return "", ""
}

// extractReferralCode pulls the first thing that looks like a referral code
// out of free text.
func extractReferralCode(text string) string {
	if text == "" {
		return ""
	}
	return referralCodePattern.FindString(strings.ToUpper(text))
}

// validateReferralCode confirms a detected code exists and does not belong
// to the booking customer themselves. Returns the code or empty.
func (c *Chairside) validateReferralCode(ctx context.Context, code, customerID string) string {
	owner, err := c.datasource.GetCustomerByReferralCode(ctx, code)
	if err == sql.ErrNoRows {
		logrus.WithField("referral_code", code).Info("referral code not recognized, ignoring")
		return ""
	}
	if err != nil {
		logrus.WithError(err).Warn("resolve referral code")
		return ""
	}
	if owner.CustomerID == customerID {
		logrus.WithField("referral_code", code).Info("self-referral rejected")
		return ""
	}
	if booker, err := c.datasource.GetCustomerByID(ctx, customerID); err == nil {
		if booker.ReferralCode == code {
			logrus.WithField("referral_code", code).Info("customer redeemed their own code, rejecting")
			return ""
		}
		if booker.IsReferrer {
			// An activated referrer cannot also enter the program as a
			// referred friend.
			logrus.WithField("customer_id", customerID).Info("referrer redeeming a code, rejecting")
			return ""
		}
	}
	return code
}
