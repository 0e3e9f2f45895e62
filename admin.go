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
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/chairside/chairside/internal/apierror"
	"github.com/chairside/chairside/model"
)

// notFound translates a datasource miss into an API error the HTTP layer
// serves as 404.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf(format, args...), nil)
	}
	return err
}

// GetWorkflowRun retrieves a single run by correlation ID.
func (c *Chairside) GetWorkflowRun(ctx context.Context, correlationID string) (*model.WorkflowRun, error) {
	run, err := c.datasource.GetRun(ctx, correlationID)
	if err != nil {
		return nil, notFound(err, "run %s not found", correlationID)
	}
	return run, nil
}

// GetWorkflowRuns lists runs in a given status, newest first.
func (c *Chairside) GetWorkflowRuns(ctx context.Context, status string, limit, offset int) ([]model.WorkflowRun, error) {
	return c.datasource.GetRunsByStatus(ctx, status, limit, offset)
}

// GetCustomer retrieves a customer by Square customer ID.
func (c *Chairside) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	customer, err := c.datasource.GetCustomerByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "customer %s not found", id)
	}
	return customer, nil
}

// GetCustomerByReferralCode resolves a referral code to its owner.
func (c *Chairside) GetCustomerByReferralCode(ctx context.Context, code string) (*model.Customer, error) {
	customer, err := c.datasource.GetCustomerByReferralCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "referral code %s not found", code)
	}
	return customer, nil
}

// GetGiftCard retrieves a gift card by its issuance correlation ID.
func (c *Chairside) GetGiftCard(ctx context.Context, correlationID string) (*model.GiftCard, error) {
	card, err := c.datasource.GetGiftCardByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, notFound(err, "gift card for %s not found", correlationID)
	}
	return card, nil
}

// GetGiftCardLedger retrieves the activity history of a gift card.
func (c *Chairside) GetGiftCardLedger(ctx context.Context, giftCardID string) ([]model.GiftCardLedgerEntry, error) {
	return c.datasource.GetLedgerEntries(ctx, giftCardID)
}

// GetAppLogs retrieves application log entries for a correlation ID.
func (c *Chairside) GetAppLogs(ctx context.Context, correlationID string, limit int) ([]model.AppLog, error) {
	return c.datasource.GetAppLogs(ctx, correlationID, limit)
}

// ManualReward issues the referral gift cards for a referrer and referred
// customer pair without waiting for a payment webhook. Operators use it to
// make good on rewards that a failed pipeline or a missed webhook left
// unissued. Issuance stays idempotent per pair because the same reward row
// and correlation IDs are reused.
//
// Parameters:
// - ctx context.Context: The request context.
// - referrerID string: Square customer ID of the code owner.
// - friendID string: Square customer ID of the referred customer.
//
// Returns:
// - *model.ReferralReward: The recorded reward pair.
// - error: An error if either customer is unknown or issuance failed.
func (c *Chairside) ManualReward(ctx context.Context, referrerID, friendID string) (*model.ReferralReward, error) {
	if referrerID == friendID {
		return nil, errors.New("referrer and referred customer must differ")
	}

	referrer, err := c.datasource.GetCustomerByID(ctx, referrerID)
	if err != nil {
		return nil, errors.Wrap(err, "referrer not found")
	}
	friend, err := c.datasource.GetCustomerByID(ctx, friendID)
	if err != nil {
		return nil, errors.Wrap(err, "referred customer not found")
	}

	// Rewards triggered before the pair exists would double-issue once the
	// real payment arrives, so the manual path reuses the payment path's
	// correlation scheme with a synthetic event.
	event := model.WebhookEvent{
		Type:    "manual.reward",
		EventID: uuid.New().String(),
	}
	if existing, err := c.datasource.GetRewardByPair(ctx, referrerID, friendID); err == nil {
		event.EventID = existing.RewardID
	}
	correlationID := model.BuildCorrelationID("manual", event.EventID, friendID)
	c.runs.EnsureRun(ctx, correlationID, event)

	// Make both sides whole: the friend's welcome card if booking-time
	// issuance never happened, then the referrer's issue-or-load.
	if _, err := c.datasource.GetGiftCardByCustomerID(ctx, friendID); err == sql.ErrNoRows {
		if err := c.issueFriendReward(ctx, correlationID, event, friendID, referrer.ReferralCode); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, errors.Wrap(err, "lookup referred customer gift card")
	}
	if err := c.rewardReferrer(ctx, correlationID, event, *referrer, *friend, referrer.ReferralCode); err != nil {
		return nil, err
	}
	c.runs.UpdateStage(ctx, correlationID, "manual_reward", model.RunStatusCompleted)
	return c.datasource.GetRewardByPair(ctx, referrerID, friendID)
}
