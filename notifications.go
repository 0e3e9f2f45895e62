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
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/internal/notification"
	"github.com/chairside/chairside/internal/qrcode"
	"github.com/chairside/chairside/internal/request"
	"github.com/chairside/chairside/internal/square"
	"github.com/chairside/chairside/model"
)

const (
	passPollInterval = 10 * time.Second
	passPollBudget   = 2 * time.Minute
)

// queueGiftCardDeliveries fans one issued card out to the delivery queues
// and stamps the customer's Square profile. Every branch is best effort; the
// reward itself is already complete.
func (c *Chairside) queueGiftCardDeliveries(correlationID string, customer model.Customer, card model.GiftCard) {
	cfg, err := config.Fetch()
	if err != nil {
		logrus.WithError(err).Error("queue gift card deliveries")
		return
	}

	payload := DeliveryPayload{
		CorrelationID: correlationID,
		Customer:      customer,
		GiftCard:      card,
	}
	if uri, err := qrcode.DataURI(card.GAN); err == nil {
		payload.QRCodeURI = uri
	} else {
		// The stored GAN may be stale. Re-read the card from Square once
		// and retry before delivering without a code.
		logrus.WithError(err).Warn("gift card QR generation failed, re-reading card")
		if fresh, rerr := c.square.RetrieveGiftCard(context.Background(), card.SquareID); rerr == nil {
			if uri, err := qrcode.DataURI(fresh.GAN); err == nil {
				payload.QRCodeURI = uri
				payload.GiftCard.GAN = fresh.GAN
			} else {
				logrus.WithError(err).Warn("gift card QR generation failed, delivering without")
			}
		} else {
			square.LogAPIError("re-read gift card for QR", rerr)
		}
	}

	if customer.EmailAddress != "" {
		if err := c.queue.enqueueDelivery(cfg.Queue.EmailQueue, payload); err != nil {
			logrus.WithError(err).Error("enqueue gift card email")
		}
	}
	if customer.PhoneNumber != "" {
		if err := c.queue.enqueueDelivery(cfg.Queue.SmsQueue, payload); err != nil {
			logrus.WithError(err).Error("enqueue gift card sms")
		}
	}
	if err := c.queue.enqueueDelivery(cfg.Queue.PassQueue, payload); err != nil {
		logrus.WithError(err).Error("enqueue wallet pass push")
	}

	go func() {
		note := fmt.Sprintf("Chairside reward: $%.2f gift card issued", float64(card.Balance)/100)
		if err := c.square.AppendCustomerNote(context.Background(), customer.CustomerID, note); err != nil {
			square.LogAPIError("append reward note", err)
		}
	}()
}

// DeliverGiftCardEmail posts the card to the email provider. Invoked by the
// email queue worker.
func (c *Chairside) DeliverGiftCardEmail(ctx context.Context, payload DeliveryPayload) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	if cfg.Notification.Email.Url == "" {
		logrus.Warn("email provider not configured, dropping gift card email")
		return nil
	}

	body := map[string]interface{}{
		"to":             payload.Customer.EmailAddress,
		"customer_name":  payload.Customer.FullName(),
		"gift_card_gan":  payload.GiftCard.GAN,
		"balance":        payload.GiftCard.Balance,
		"qr_code_uri":    payload.QRCodeURI,
		"activation_url": payload.GiftCard.ActivationURL,
		"pass_url":       payload.GiftCard.PassURL,
	}
	return c.postNotification(ctx, cfg.Notification.Email.Url, cfg.Notification.Email.Headers, body)
}

// SendReferralCodeEmail mails a customer their own referral code so they can
// start sharing it. Called when the customer is first mirrored and again when
// their first payment completes.
func (c *Chairside) SendReferralCodeEmail(ctx context.Context, customer model.Customer) error {
	if customer.EmailAddress == "" || customer.ReferralCode == "" {
		return nil
	}
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	if cfg.Notification.Email.Url == "" {
		logrus.Warn("email provider not configured, dropping referral code email")
		return nil
	}

	body := map[string]interface{}{
		"to":            customer.EmailAddress,
		"customer_name": customer.FullName(),
		"referral_code": customer.ReferralCode,
	}
	return c.postNotification(ctx, cfg.Notification.Email.Url, cfg.Notification.Email.Headers, body)
}

// DeliverGiftCardSMS posts the card to the SMS provider. Invoked by the SMS
// queue worker.
func (c *Chairside) DeliverGiftCardSMS(ctx context.Context, payload DeliveryPayload) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	if cfg.Notification.Sms.Url == "" {
		logrus.Warn("sms provider not configured, dropping gift card sms")
		return nil
	}

	body := map[string]interface{}{
		"to":            payload.Customer.PhoneNumber,
		"customer_name": payload.Customer.FullName(),
		"gift_card_gan": payload.GiftCard.GAN,
		"balance":       payload.GiftCard.Balance,
	}
	return c.postNotification(ctx, cfg.Notification.Sms.Url, cfg.Notification.Sms.Headers, body)
}

// DeliverWalletPass pushes the wallet pass notification. Square assigns the
// pass URL some time after activation, so this polls for it on a fixed
// interval with a hard budget and sends without the URL on timeout.
func (c *Chairside) DeliverWalletPass(ctx context.Context, payload DeliveryPayload) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	passURL := payload.GiftCard.PassURL
	activationURL := payload.GiftCard.ActivationURL
	deadline := time.Now().Add(passPollBudget)
	for passURL == "" && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(passPollInterval):
		}
		card, err := c.square.RetrieveGiftCard(ctx, payload.GiftCard.SquareID)
		if err != nil {
			square.LogAPIError("poll gift card pass url", err)
			continue
		}
		passURL = card.PassURL
		if card.ActivationURL != "" {
			activationURL = card.ActivationURL
		}
	}
	if passURL == "" {
		logrus.WithField("gift_card_id", payload.GiftCard.GiftCardID).
			Warn("pass url never appeared, pushing without it")
	}

	if err := c.datasource.UpdateGiftCardDelivery(ctx, payload.GiftCard.GiftCardID, activationURL, passURL); err != nil {
		logrus.WithError(err).Warn("store gift card delivery urls")
	}

	if cfg.Notification.Push.Url == "" {
		return nil
	}
	body := map[string]interface{}{
		"gift_card_id": payload.GiftCard.GiftCardID,
		"customer_id":  payload.Customer.CustomerID,
		"pass_url":     passURL,
		"reason":       "referral_reward",
	}
	if err := c.postNotification(ctx, cfg.Notification.Push.Url, cfg.Notification.Push.Headers, body); err != nil {
		// Push is a side channel; log and alert, never fail the task into
		// a retry loop.
		notification.NotifyError(errors.Wrap(err, "wallet pass push failed"))
	}
	return nil
}

func (c *Chairside) postNotification(ctx context.Context, url string, headers map[string]string, body map[string]interface{}) error {
	payload, err := request.ToJsonReq(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	var response map[string]interface{}
	resp, err := request.Call(req, &response)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return errors.Errorf("notification provider returned %d", resp.StatusCode)
	}
	return nil
}
