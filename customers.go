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

	"github.com/chairside/chairside/database"
	"github.com/chairside/chairside/internal/square"
	"github.com/chairside/chairside/model"
)

const (
	referralCodeRetries = 3

	// Square custom attribute key holding a customer's own referral code.
	referralCodeAttributeKey = "chairside_referral_code"
)

// handleCustomerCreated ingests a customer.created event. It mirrors the
// Square profile locally, mints a unique referral code for the customer and
// writes the code back to Square so staff can see it at the register.
func (c *Chairside) handleCustomerCreated(ctx context.Context, correlationID string, event model.WebhookEvent) error {
	var obj model.CustomerObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return errors.Wrap(err, "decode customer payload")
	}
	sq := model.Customer{
		CustomerID:   obj.Customer.ID,
		GivenName:    obj.Customer.GivenName,
		FamilyName:   obj.Customer.FamilyName,
		EmailAddress: obj.Customer.EmailAddress,
		PhoneNumber:  obj.Customer.PhoneNumber,
	}
	if sq.CustomerID == "" {
		return errors.New("customer payload missing id")
	}

	c.runs.UpdateStage(ctx, correlationID, "customer_ingest", model.RunStatusRunning)

	if existing, err := c.datasource.GetCustomerByID(ctx, sq.CustomerID); err == nil {
		// Redelivery; refresh contact fields instead of re-creating.
		existing.GivenName = sq.GivenName
		existing.FamilyName = sq.FamilyName
		existing.EmailAddress = sq.EmailAddress
		existing.PhoneNumber = sq.PhoneNumber
		if err := c.datasource.UpdateCustomerContact(ctx, *existing); err != nil {
			return errors.Wrap(err, "refresh customer contact")
		}
		c.runs.UpdateStage(ctx, correlationID, "customer_refreshed", model.RunStatusCompleted)
		return nil
	} else if err != sql.ErrNoRows {
		return errors.Wrap(err, "lookup customer")
	}

	customer, err := c.createCustomerWithCode(ctx, sq)
	if err != nil {
		return err
	}
	c.runs.AddContext(ctx, correlationID, map[string]interface{}{
		"referral_code": customer.ReferralCode,
	})

	// Mirror the code into Square and mail it to the customer out of band;
	// none of these writes may fail the ingest.
	if customer.ReferralCode != "" {
		go func() {
			c.publishReferralCode(context.Background(), customer)
			if err := c.SendReferralCodeEmail(context.Background(), customer); err != nil {
				logrus.WithError(err).Warn("send referral code email")
			}
		}()
	}

	c.runs.UpdateStage(ctx, correlationID, "customer_created", model.RunStatusCompleted)
	return nil
}

// createCustomerWithCode inserts the customer, retrying with a fresh code
// when the generated one collides with an existing row. Codes are a
// convenience, not a requirement: if every attempt collides the customer is
// still created, just without one.
func (c *Chairside) createCustomerWithCode(ctx context.Context, customer model.Customer) (model.Customer, error) {
	for attempt := 0; attempt < referralCodeRetries; attempt++ {
		customer.ReferralCode = model.GenerateReferralCode(customer.GivenName)
		created, err := c.datasource.CreateCustomer(ctx, customer)
		if err == nil {
			return created, nil
		}
		if !database.IsUniqueViolation(err) {
			return customer, errors.Wrap(err, "create customer")
		}
		logrus.WithField("referral_code", customer.ReferralCode).
			Warn("referral code collision, regenerating")
	}

	logrus.WithField("customer_id", customer.CustomerID).
		Warn("referral code generation exhausted, creating customer without a code")
	customer.ReferralCode = ""
	created, err := c.datasource.CreateCustomer(ctx, customer)
	if err != nil {
		return customer, errors.Wrap(err, "create customer")
	}
	return created, nil
}

// publishReferralCode writes the customer's code to their Square profile,
// both as a note line and as a custom attribute.
func (c *Chairside) publishReferralCode(ctx context.Context, customer model.Customer) {
	note := fmt.Sprintf("Referral code: %s", customer.ReferralCode)
	if err := c.square.AppendCustomerNote(ctx, customer.CustomerID, note); err != nil {
		square.LogAPIError("append referral code to customer note", err)
	}
	if err := c.square.UpsertCustomerCustomAttribute(ctx, customer.CustomerID, referralCodeAttributeKey, customer.ReferralCode); err != nil {
		square.LogAPIError("set referral code custom attribute", err)
	}
}
