package square

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	client := NewClient("https://connect.squareupsandbox.com", "test-token")
	httpmock.ActivateNonDefault(client.http)
	return client
}

func TestCreateGiftCard(t *testing.T) {
	client := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://connect.squareupsandbox.com/v2/gift-cards",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
			assert.Equal(t, apiVersion, req.Header.Get("Square-Version"))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"gift_card": map[string]interface{}{
					"id":    "gftc:abc",
					"type":  "DIGITAL",
					"state": "PENDING",
					"gan":   "7783320001001000",
				},
			})
		})

	card, err := client.CreateGiftCard(context.Background(), "idem-key", "L123")
	require.NoError(t, err)
	assert.Equal(t, "gftc:abc", card.ID)
	assert.Equal(t, "PENDING", card.State)
	assert.Equal(t, "7783320001001000", card.GAN)
}

func TestActivateWithOrderSendsOrderDetails(t *testing.T) {
	client := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://connect.squareupsandbox.com/v2/gift-cards/activities",
		func(req *http.Request) (*http.Response, error) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "idem", body["idempotency_key"])
			activity := body["gift_card_activity"].(map[string]interface{})
			details := activity["activate_activity_details"].(map[string]interface{})
			assert.Equal(t, "order1", details["order_id"])
			assert.Equal(t, "li1", details["line_item_uid"])
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"gift_card_activity": map[string]interface{}{
					"id":   "gca:1",
					"type": ActivityActivate,
					"gift_card_balance_money": map[string]interface{}{
						"amount":   1000,
						"currency": "USD",
					},
				},
			})
		})

	activity, err := client.ActivateWithOrder(context.Background(), "idem", "7783320001001000", "L123", "order1", "li1")
	require.NoError(t, err)
	assert.Equal(t, ActivityActivate, activity.Type)
	assert.Equal(t, int64(1000), activity.GiftCardBalanceMoney.Amount)
}

func TestRetriesOnServerError(t *testing.T) {
	client := newTestClient()
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder("GET", "https://connect.squareupsandbox.com/v2/gift-cards/gftc:abc",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewJsonResponse(http.StatusBadGateway, map[string]interface{}{
					"errors": []map[string]string{{"category": "API_ERROR", "code": "INTERNAL_SERVER_ERROR"}},
				})
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"gift_card": map[string]interface{}{"id": "gftc:abc", "state": "ACTIVE"},
			})
		})

	card, err := client.RetrieveGiftCard(context.Background(), "gftc:abc")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "ACTIVE", card.State)
}

func TestClientErrorIsNotRetried(t *testing.T) {
	client := newTestClient()
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder("POST", "https://connect.squareupsandbox.com/v2/orders",
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewJsonResponse(http.StatusBadRequest, map[string]interface{}{
				"errors": []map[string]string{{
					"category": "INVALID_REQUEST_ERROR",
					"code":     "BAD_REQUEST",
					"detail":   "location_id is required",
				}},
			})
		})

	_, err := client.CreateGiftCardOrder(context.Background(), "idem", "", Money{Amount: 1000, Currency: "USD"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST", apiErr.Errors[0].Code)
	assert.False(t, apiErr.Retriable())
}

func TestRetrieveLocation(t *testing.T) {
	client := newTestClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://connect.squareupsandbox.com/v2/locations/L123",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"location": map[string]interface{}{"id": "L123", "name": "Main Street Salon"},
		}))

	loc, err := client.RetrieveLocation(context.Background(), "L123")
	require.NoError(t, err)
	assert.Equal(t, "Main Street Salon", loc.Name)
}
