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
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/internal/notification"
	"github.com/chairside/chairside/internal/square"
	"github.com/chairside/chairside/model"
)

// ErrRewardAlreadyIssued is returned when a correlation id already produced a
// card. Callers treat it as success and reuse the existing card.
var ErrRewardAlreadyIssued = errors.New("reward already issued for this correlation id")

// IssueReward creates and funds a gift card for one reward intent. The whole
// sequence is idempotent: every Square call derives its key from the intent's
// seed, and the local card row is unique per correlation id, so a crashed or
// redelivered run converges on the same card.
//
// Funding is tiered. The engine first tries to activate the card against a
// paid eGift order; when that fails it activates against the owner's payment
// instrument directly; when activation is impossible it falls back to loading
// the balance with an adjust-increment activity.
//
// Parameters:
// - ctx context.Context: The context for Square and database calls.
// - correlationID string: The correlation id of the triggering event.
// - intent model.RewardIntent: Who gets how much, and why.
//
// Returns:
// - *model.GiftCard: The issued (or previously issued) card.
// - error: An error when every funding tier failed.
func (c *Chairside) IssueReward(ctx context.Context, correlationID string, intent model.RewardIntent) (*model.GiftCard, error) {
	ctx, span := otel.Tracer("chairside.reward").Start(ctx, "Issue Gift Card Reward")
	span.SetAttributes(
		attribute.String("correlation.id", correlationID),
		attribute.Int64("reward.amount", intent.Amount),
	)
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if existing, err := c.datasource.GetGiftCardByCorrelationID(ctx, correlationID); err == nil {
		logrus.WithField("gift_card_id", existing.GiftCardID).Info("reward already issued, reusing card")
		return existing, ErrRewardAlreadyIssued
	} else if err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "check existing reward")
	}

	locationID := cfg.Square.LocationID
	amount := square.Money{Amount: intent.Amount, Currency: "USD"}

	createKey := model.BuildIdempotencyKey(intent.IdempotencySeed, "create")
	squareCard, err := c.square.CreateGiftCard(ctx, createKey, locationID)
	if err != nil {
		return nil, errors.Wrap(err, "create gift card")
	}

	card := model.GiftCard{
		SquareID:      squareCard.ID,
		CustomerID:    intent.CustomerID,
		CorrelationID: correlationID,
		GAN:           model.NormalizeGAN(squareCard.GAN),
		State:         squareCard.State,
	}

	// A zero or negative amount is a card without funds; no activation tier
	// applies and the card stays pending.
	if intent.Amount <= 0 {
		created, err := c.datasource.CreateGiftCard(ctx, card)
		if err != nil {
			return nil, errors.Wrap(err, "persist gift card")
		}
		return &created, nil
	}

	activity, channel := c.fundGiftCard(ctx, cfg, intent, squareCard.ID, card.GAN, amount)
	if activity == nil {
		c.recordFailedIssue(ctx, card, intent)
		return nil, errors.New("all gift card funding tiers failed")
	}
	card.Channel = channel
	card.Balance = activity.GiftCardBalanceMoney.Amount
	card.State = model.GiftCardStateActive

	if err := c.square.LinkCustomerToGiftCard(ctx, squareCard.ID, intent.CustomerID); err != nil {
		// The card is funded either way; linking only affects visibility
		// in the customer's Square profile.
		square.LogAPIError("link gift card to customer", err)
	}

	// Re-read the card so the stored balance and state are Square's view,
	// not our assumption.
	if verified, err := c.square.RetrieveGiftCard(ctx, squareCard.ID); err == nil {
		card.State = verified.State
		card.Balance = verified.BalanceMoney.Amount
		card.ActivationURL = verified.ActivationURL
		card.PassURL = verified.PassURL
		if gan := model.NormalizeGAN(verified.GAN); gan != "" {
			card.GAN = gan
		}
	} else {
		square.LogAPIError("verify gift card", err)
	}

	created, err := c.datasource.CreateGiftCard(ctx, card)
	if err != nil {
		return nil, errors.Wrap(err, "persist gift card")
	}

	if _, err := c.datasource.RecordLedgerEntry(ctx, model.GiftCardLedgerEntry{
		GiftCardID:       created.GiftCardID,
		EntryType:        model.LedgerEntryActivate,
		Amount:           intent.Amount,
		BalanceAfter:     created.Balance,
		Channel:          channel,
		SquareActivityID: activity.ID,
		IdempotencyKey:   createKey,
	}); err != nil {
		logrus.WithError(err).Warn("record gift card ledger entry")
	}

	return &created, nil
}

// fundGiftCard walks the funding tiers and returns the first activity that
// succeeded, along with the channel name to record on the card.
func (c *Chairside) fundGiftCard(ctx context.Context, cfg *config.Configuration, intent model.RewardIntent, squareID, gan string, amount square.Money) (*square.GiftCardActivity, string) {
	locationID := cfg.Square.LocationID

	// Tier 1: activate against a paid eGift order. When the intent does not
	// carry an order, create and pay one with the owner's instrument first.
	orderID, lineItemUID := intent.OrderID, intent.LineItemUID
	if orderID == "" && cfg.Square.OwnerPaymentSource != "" {
		orderKey := model.BuildIdempotencyKey(intent.IdempotencySeed, "order", squareID)
		order, err := c.square.CreateGiftCardOrder(ctx, orderKey, locationID, amount)
		if err == nil && len(order.LineItems) > 0 {
			payKey := model.BuildIdempotencyKey(intent.IdempotencySeed, "pay", squareID)
			if _, err := c.square.CreateOrderPayment(ctx, payKey, order.ID, cfg.Square.OwnerPaymentSource, amount); err == nil {
				orderID, lineItemUID = order.ID, order.LineItems[0].UID
			} else {
				square.LogAPIError("pay gift card order", err)
			}
		} else if err != nil {
			square.LogAPIError("create gift card order", err)
		}
	}
	if orderID != "" && lineItemUID != "" {
		activateKey := model.BuildIdempotencyKey(intent.IdempotencySeed, "activate-order", squareID)
		activity, err := c.square.ActivateWithOrder(ctx, activateKey, gan, locationID, orderID, lineItemUID)
		if err == nil {
			return activity, model.ChannelEGiftOrder
		}
		square.LogAPIError("activate gift card with order", err)
	}

	// Tier 2: owner-funded activation.
	if cfg.Square.OwnerPaymentSource != "" {
		activateKey := model.BuildIdempotencyKey(intent.IdempotencySeed, "activate-owner", squareID)
		activity, err := c.square.ActivateOwnerFunded(ctx, activateKey, gan, locationID, amount, cfg.Square.OwnerPaymentSource)
		if err == nil {
			return activity, model.ChannelOwnerFundedActive
		}
		square.LogAPIError("activate gift card owner-funded", err)
	}

	// Tier 3: load via adjust-increment.
	adjustKey := model.BuildIdempotencyKey(intent.IdempotencySeed, "adjust-increment", squareID)
	activity, err := c.square.AdjustIncrement(ctx, adjustKey, gan, locationID, amount, intent.Reason)
	if err == nil {
		return activity, model.ChannelOwnerFundedAdjust
	}
	square.LogAPIError("adjust gift card balance", err)

	return nil, ""
}

// LoadGiftCard adds funds to a card that already exists for its customer. A
// pending card is activated first; an active one is topped up with an
// adjust-increment activity. The ledger entry records the balance movement.
//
// Parameters:
// - ctx context.Context: The context for Square and database calls.
// - card model.GiftCard: The stored card to load.
// - amount int64: The load amount in minor currency units.
// - seed string: The idempotency seed of the triggering event.
//
// Returns:
// - *model.GiftCard: The card with its refreshed state and balance.
// - error: An error when the load activity failed.
func (c *Chairside) LoadGiftCard(ctx context.Context, card model.GiftCard, amount int64, seed string) (*model.GiftCard, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return &card, nil
	}

	locationID := cfg.Square.LocationID
	money := square.Money{Amount: amount, Currency: "USD"}
	balanceBefore := card.Balance

	var activity *square.GiftCardActivity
	var channel, entryType string
	if card.State == model.GiftCardStatePending && cfg.Square.OwnerPaymentSource != "" {
		key := model.BuildIdempotencyKey(seed, "activate-owner", card.SquareID)
		activity, err = c.square.ActivateOwnerFunded(ctx, key, card.GAN, locationID, money, cfg.Square.OwnerPaymentSource)
		channel, entryType = model.ChannelOwnerFundedActive, model.LedgerEntryActivate
	} else {
		key := model.BuildIdempotencyKey(seed, "adjust-increment", card.SquareID)
		activity, err = c.square.AdjustIncrement(ctx, key, card.GAN, locationID, money, "Referral reward load")
		channel, entryType = model.ChannelOwnerFundedAdjust, model.LedgerEntryAdjust
	}
	if err != nil {
		square.LogAPIError("load gift card", err)
		return nil, errors.Wrap(err, "load gift card")
	}

	card.State = model.GiftCardStateActive
	card.Balance = activity.GiftCardBalanceMoney.Amount
	if err := c.datasource.UpdateGiftCardState(ctx, card.GiftCardID, card.State, card.Balance); err != nil {
		logrus.WithError(err).Warn("update gift card state after load")
	}

	if _, err := c.datasource.RecordLedgerEntry(ctx, model.GiftCardLedgerEntry{
		GiftCardID:       card.GiftCardID,
		EntryType:        entryType,
		Amount:           amount,
		BalanceBefore:    balanceBefore,
		BalanceAfter:     card.Balance,
		Channel:          channel,
		SquareActivityID: activity.ID,
		IdempotencyKey:   model.BuildIdempotencyKey(seed, "load", card.SquareID),
	}); err != nil {
		logrus.WithError(err).Warn("record gift card ledger entry")
	}

	// Delivery URLs can materialize after activation.
	if verified, err := c.square.RetrieveGiftCard(ctx, card.SquareID); err == nil {
		card.ActivationURL = verified.ActivationURL
		card.PassURL = verified.PassURL
		if err := c.datasource.UpdateGiftCardDelivery(ctx, card.GiftCardID, verified.ActivationURL, verified.PassURL); err != nil {
			logrus.WithError(err).Warn("update gift card delivery urls")
		}
	}

	return &card, nil
}

// recordFailedIssue persists the unfunded card so the correlation id stays
// claimed and an operator can finish the job by hand.
func (c *Chairside) recordFailedIssue(ctx context.Context, card model.GiftCard, intent model.RewardIntent) {
	card.State = model.GiftCardStatePending
	card.MetaData = map[string]interface{}{
		"funding_failed_at": time.Now().UTC().Format(time.RFC3339),
		"intended_amount":   intent.Amount,
	}
	if _, err := c.datasource.CreateGiftCard(ctx, card); err != nil {
		logrus.WithError(err).Error("persist unfunded gift card")
		notification.NotifyError(errors.Wrapf(err, "unfunded gift card lost for customer %s", intent.CustomerID))
	}
}
