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

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/model"
)

const paymentCompleted = "COMPLETED"

// handlePaymentEvent processes payment.created and payment.updated. Both run
// the same pipeline because a payment often arrives PENDING and only turns
// COMPLETED in a later update.
//
// A completed payment settles the referrer's side: the first completed
// payment of a referred customer issues or loads the referrer's gift card.
func (c *Chairside) handlePaymentEvent(ctx context.Context, correlationID string, event model.WebhookEvent) error {
	var obj model.PaymentObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return errors.Wrap(err, "decode payment payload")
	}
	payment := obj.Payment
	if payment.ID == "" {
		return errors.New("payment payload missing id")
	}

	c.runs.UpdateStage(ctx, correlationID, "payment_ingest", model.RunStatusRunning)

	if payment.Status != paymentCompleted {
		c.runs.UpdateStage(ctx, correlationID, "payment_not_completed", model.RunStatusCompleted)
		return nil
	}
	if payment.CustomerID == "" {
		// Walk-in card payments carry no customer; nothing to attribute.
		c.runs.UpdateStage(ctx, correlationID, "payment_anonymous", model.RunStatusCompleted)
		return nil
	}

	friend, err := c.datasource.GetCustomerByID(ctx, payment.CustomerID)
	if err == sql.ErrNoRows {
		// The customer.created delivery can lag behind the payment, or
		// never arrive. Backfill the row from Square so the first-payment
		// stamp has somewhere to land.
		friend, err = c.backfillCustomer(ctx, payment.CustomerID)
		if err != nil {
			logrus.WithError(err).WithField("customer_id", payment.CustomerID).
				Warn("paying customer unknown and backfill failed")
			c.runs.UpdateStage(ctx, correlationID, "payment_unknown_customer", model.RunStatusCompleted)
			return nil
		}
	} else if err != nil {
		return errors.Wrap(err, "lookup paying customer")
	}

	first, err := c.datasource.RecordFirstPayment(ctx, payment.CustomerID)
	if err != nil {
		return errors.Wrap(err, "record first payment")
	}
	if !first {
		c.runs.UpdateStage(ctx, correlationID, "payment_not_first", model.RunStatusCompleted)
		return nil
	}

	// First completed payment. Send the customer their own code so the
	// chain keeps growing, whether or not they were referred themselves.
	if friend.ReferralCode != "" {
		payer := *friend
		go func() {
			c.publishReferralCode(context.Background(), payer)
			if err := c.SendReferralCodeEmail(context.Background(), payer); err != nil {
				logrus.WithError(err).Warn("send referral code email")
			}
		}()
	}

	code := friend.UsedReferralCode
	if code == "" {
		// The booking pipeline may have recorded a code the customer row
		// never received.
		if booking, err := c.datasource.GetFirstBookingReferral(ctx, friend.CustomerID); err == nil {
			code = booking.ReferralCode
		}
	}
	if code == "" {
		c.runs.UpdateStage(ctx, correlationID, "payment_no_referral", model.RunStatusCompleted)
		return nil
	}

	referrer, err := c.datasource.GetCustomerByReferralCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			c.runs.UpdateStage(ctx, correlationID, "payment_code_unresolved", model.RunStatusCompleted)
			return nil
		}
		return errors.Wrap(err, "resolve referrer")
	}
	if referrer.CustomerID == friend.CustomerID {
		logrus.WithField("referral_code", code).Warn("self-referral reached payment stage, rejecting")
		c.runs.UpdateStage(ctx, correlationID, "payment_self_referral", model.RunStatusCompleted)
		return nil
	}

	return c.rewardReferrer(ctx, correlationID, event, *referrer, *friend, code)
}

// rewardReferrer records the reward pair and pays the referrer's side of the
// referral. A referrer who already holds a card gets it loaded instead of a
// second card. The referred customer received their welcome card at booking
// time; nothing more is owed to them here.
func (c *Chairside) rewardReferrer(ctx context.Context, correlationID string, event model.WebhookEvent, referrer, friend model.Customer, code string) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	c.runs.UpdateStage(ctx, correlationID, "referrer_reward", model.RunStatusRunning)
	c.runs.AddContext(ctx, correlationID, map[string]interface{}{
		"referrer_id":   referrer.CustomerID,
		"friend_id":     friend.CustomerID,
		"referral_code": code,
	})

	reward := model.ReferralReward{
		ReferrerID:   referrer.CustomerID,
		ReferredID:   friend.CustomerID,
		ReferralCode: code,
		Amount:       cfg.Reward.ReferrerAmount,
		Status:       model.RewardStatusIssued,
	}
	if _, err := c.datasource.CreateReward(ctx, reward); err != nil {
		// The unique pair constraint makes a redelivered payment land
		// here; the Square calls below are idempotent per seed anyway.
		if existing, lookupErr := c.datasource.GetRewardByPair(ctx, referrer.CustomerID, friend.CustomerID); lookupErr == nil {
			logrus.WithField("reward_id", existing.RewardID).Info("referral pair already rewarded")
		} else {
			return errors.Wrap(err, "record referral reward")
		}
	}

	seed := model.BuildIdempotencyKey(event.EventID, referrer.CustomerID, "referrer")

	var card *model.GiftCard
	existing, err := c.datasource.GetGiftCardByCustomerID(ctx, referrer.CustomerID)
	switch {
	case err == nil:
		card, err = c.LoadGiftCard(ctx, *existing, cfg.Reward.ReferrerAmount, seed)
	case err == sql.ErrNoRows:
		card, err = c.IssueReward(ctx, correlationID+":referrer", model.RewardIntent{
			CustomerID:      referrer.CustomerID,
			Amount:          cfg.Reward.ReferrerAmount,
			IdempotencySeed: seed,
			Reason:          fmt.Sprintf("Referral reward for %s", code),
		})
	default:
		err = errors.Wrap(err, "lookup referrer gift card")
	}
	if err != nil && !errors.Is(err, ErrRewardAlreadyIssued) {
		c.runs.MarkError(ctx, correlationID, "referrer_reward", err)
		return err
	}

	if err := c.datasource.MarkReferrer(ctx, referrer.CustomerID); err != nil {
		logrus.WithError(err).Warn("increment referrer totals")
	}
	c.queueGiftCardDeliveries(correlationID+":referrer", referrer, *card)

	c.runs.UpdateStage(ctx, correlationID, "referrer_rewarded", model.RunStatusCompleted)
	return nil
}

// backfillCustomer mirrors a Square profile that never arrived over the
// webhook, minting a referral code for it the same way ingest would.
func (c *Chairside) backfillCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	profile, err := c.square.RetrieveCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "retrieve customer profile")
	}
	created, err := c.createCustomerWithCode(ctx, model.Customer{
		CustomerID:   profile.ID,
		GivenName:    profile.GivenName,
		FamilyName:   profile.FamilyName,
		EmailAddress: profile.EmailAddress,
		PhoneNumber:  profile.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
