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
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/database/mocks"
	"github.com/chairside/chairside/model"
)

const testEmailProviderURL = "https://mail.example.test/send"

func mockNotificationConfig() {
	cfg := &config.Configuration{
		Square: config.SquareConfig{
			BaseURL:     "https://connect.squareupsandbox.com",
			AccessToken: "test-token",
			LocationID:  "L123",
		},
		Reward: config.RewardConfig{FriendAmount: 1000, ReferrerAmount: 1500},
		Queue:  config.QueueConfig{StageQueue: "stage", EmailQueue: "email", SmsQueue: "sms", PassQueue: "pass"},
	}
	cfg.Notification.Email.Url = testEmailProviderURL
	config.MockConfig(cfg)
}

func TestSendReferralCodeEmail_PostsCodeToProvider(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	mockNotificationConfig()

	var sent map[string]interface{}
	httpmock.RegisterResponder("POST", testEmailProviderURL,
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &sent))
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	c := newTestChairside(t, new(mocks.MockDataSource))

	err := c.SendReferralCodeEmail(context.Background(), model.Customer{
		CustomerID:   "cus_amy",
		GivenName:    "Amy",
		EmailAddress: "amy@example.com",
		ReferralCode: "AMY-X7Q4K",
	})
	assert.NoError(t, err)
	assert.Equal(t, "amy@example.com", sent["to"])
	assert.Equal(t, "AMY-X7Q4K", sent["referral_code"])
}

func TestSendReferralCodeEmail_NothingToSend(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	mockNotificationConfig()

	c := newTestChairside(t, new(mocks.MockDataSource))

	// No address, then no code. Neither reaches the provider.
	assert.NoError(t, c.SendReferralCodeEmail(context.Background(), model.Customer{
		CustomerID: "cus_amy", ReferralCode: "AMY-X7Q4K",
	}))
	assert.NoError(t, c.SendReferralCodeEmail(context.Background(), model.Customer{
		CustomerID: "cus_amy", EmailAddress: "amy@example.com",
	}))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

// An unreadable stored GAN triggers one re-read from Square before the card
// goes out; the refreshed number feeds both the QR image and the payload.
func TestQueueGiftCardDeliveries_RefreshesUnreadableGAN(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	mockNotificationConfig()

	httpmock.RegisterResponder("GET", "https://connect.squareupsandbox.com/v2/gift-cards/gftc:stale",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"gift_card": map[string]interface{}{
				"id": "gftc:stale", "state": "ACTIVE", "gan": "7783320001002000",
				"balance_money": map[string]interface{}{"amount": 1000, "currency": "USD"},
			},
		}))
	httpmock.RegisterResponder("GET", "https://connect.squareupsandbox.com/v2/customers/cus_amy",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"customer": map[string]interface{}{"id": "cus_amy"},
		}))
	httpmock.RegisterResponder("PUT", "https://connect.squareupsandbox.com/v2/customers/cus_amy",
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	c.queueGiftCardDeliveries("booking:bk9:friend",
		model.Customer{CustomerID: "cus_amy", EmailAddress: "amy@example.com"},
		model.GiftCard{GiftCardID: "gc_1", SquareID: "gftc:stale", GAN: "not-a-gan", Balance: 1000})

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["GET https://connect.squareupsandbox.com/v2/gift-cards/gftc:stale"])

	tasks, err := c.queue.Inspector.ListPendingTasks("email")
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	var payload DeliveryPayload
	require.NoError(t, json.Unmarshal(tasks[0].Payload, &payload))
	assert.NotEmpty(t, payload.QRCodeURI)
	assert.Equal(t, "7783320001002000", payload.GiftCard.GAN)
}
