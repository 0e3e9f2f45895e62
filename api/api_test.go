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

package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chairside/chairside"
	"github.com/chairside/chairside/api/middleware"
	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/database/mocks"
	"github.com/chairside/chairside/model"
)

const (
	testSignatureKey    = "test-signature-key"
	testNotificationURL = "https://chairside.example.com/webhooks/square"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	err := json.NewDecoder(resp.Body).Decode(&s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func testConfig(redisAddr string) *config.Configuration {
	return &config.Configuration{
		ProjectName: "Chairside",
		Redis:       config.RedisConfig{Dns: redisAddr},
		DataSource:  config.DataSourceConfig{Dns: "postgres://postgres:@localhost:5432/chairside?sslmode=disable"},
		Square: config.SquareConfig{
			BaseURL:             "https://connect.squareupsandbox.com",
			AccessToken:         "test-token",
			WebhookSignatureKey: testSignatureKey,
			NotificationURL:     testNotificationURL,
			LocationID:          "L123",
		},
	}
}

// setupRouter builds the API over a mock datasource and a miniredis
// instance. The miniredis handle is returned so tests can take Redis down.
func setupRouter(t *testing.T, ds *mocks.MockDataSource) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	ds.On("RecordAppLog", mock.Anything, mock.Anything).Return(nil).Maybe()

	mr := miniredis.RunT(t)
	config.MockConfig(testConfig(mr.Addr()))

	c, err := chairside.NewChairside(ds)
	require.NoError(t, err)
	return NewAPI(c).Router(), mr
}

// sign produces the digest Square would send for a delivery to the
// subscription's notification URL.
func sign(key, url, body string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(body))
	mac.Write([]byte(url))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookBody(eventType, eventID, objectJSON string) string {
	return `{"merchant_id":"M1","type":"` + eventType + `","event_id":"` + eventID + `",` +
		`"data":{"type":"` + strings.Split(eventType, ".")[0] + `","id":"` + eventID + `_res","object":` + objectJSON + `}}`
}

func TestSquareWebhook_MissingSignature(t *testing.T) {
	router, _ := setupRouter(t, new(mocks.MockDataSource))

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{}`),
		Response: &response,
		Method:   "POST",
		Route:    "/webhooks/square",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, 401, resp.Code)
	assert.Equal(t, "missing signature header", response["error"])
}

func TestSquareWebhook_InvalidSignature(t *testing.T) {
	router, _ := setupRouter(t, new(mocks.MockDataSource))

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{}`),
		Response: &response,
		Method:   "POST",
		Route:    "/webhooks/square",
		Router:   router,
		Header:   map[string]string{"x-square-hmacsha256-signature": "bm90LWEtcmVhbC1zaWduYXR1cmU="},
	})
	require.NoError(t, err)
	assert.Equal(t, 401, resp.Code)
	assert.Equal(t, "invalid signature", response["error"])
}

func TestSquareWebhook_UnconfiguredSignatureKey(t *testing.T) {
	ds := new(mocks.MockDataSource)
	ds.On("RecordAppLog", mock.Anything, mock.Anything).Return(nil).Maybe()
	mr := miniredis.RunT(t)

	cnf := testConfig(mr.Addr())
	cnf.Square.WebhookSignatureKey = ""
	config.MockConfig(cnf)

	c, err := chairside.NewChairside(ds)
	require.NoError(t, err)
	router := NewAPI(c).Router()

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{}`),
		Response: &response,
		Method:   "POST",
		Route:    "/webhooks/square",
		Router:   router,
		Header:   map[string]string{"x-square-hmacsha256-signature": "anything"},
	})
	require.NoError(t, err)
	assert.Equal(t, 500, resp.Code)
}

func TestSquareWebhook_MalformedPayload(t *testing.T) {
	router, _ := setupRouter(t, new(mocks.MockDataSource))
	body := `{not json`

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(body),
		Response: &response,
		Method:   "POST",
		Route:    "/webhooks/square",
		Router:   router,
		Header: map[string]string{
			"x-square-hmacsha256-signature": sign(testSignatureKey, testNotificationURL, body),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Code)
}

func TestSquareWebhook_UnsupportedEventAcknowledged(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router, _ := setupRouter(t, ds)
	body := webhookBody("invoice.created", "evt_inv", `{}`)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(body),
		Response: &response,
		Method:   "POST",
		Route:    "/webhooks/square",
		Router:   router,
		Header: map[string]string{
			"x-square-hmacsha256-signature": sign(testSignatureKey, testNotificationURL, body),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "ignored", response["status"])
	ds.AssertNotCalled(t, "UpsertRun", mock.Anything, mock.Anything)
}

func TestSquareWebhook_ProcessesInlineWhenQueueDown(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router, mr := setupRouter(t, ds)
	// With Redis gone, enqueueing fails and the event runs inline.
	mr.Close()

	ds.On("PingRuns", mock.Anything).Return(nil)
	ds.On("UpsertRun", mock.Anything, mock.Anything).Return(nil)
	ds.On("PatchRun", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ds.On("GetCustomerByID", mock.Anything, "sq_cust_1").Return(&model.Customer{
		CustomerID:   "sq_cust_1",
		ReferralCode: "CHAIR-ABCDE",
	}, nil)
	ds.On("UpdateCustomerContact", mock.Anything, mock.Anything).Return(nil)

	body := webhookBody(model.EventCustomerCreated, "evt_cust",
		`{"customer":{"id":"sq_cust_1","given_name":"Maya","email_address":"maya@example.com"}}`)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(body),
		Response: &response,
		Method:   "POST",
		Route:    "/webhooks/square",
		Router:   router,
		Header: map[string]string{
			"x-square-hmacsha256-signature": sign(testSignatureKey, testNotificationURL, body),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "processed", response["status"])
	ds.AssertCalled(t, "UpdateCustomerContact", mock.Anything, mock.Anything)
}

// An inline pipeline failure is acknowledged with 200 so Square does not
// redeliver; the run record carries the error.
func TestSquareWebhook_InlineFailureStillAcknowledged(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router, mr := setupRouter(t, ds)
	mr.Close()

	ds.On("PingRuns", mock.Anything).Return(nil)
	ds.On("UpsertRun", mock.Anything, mock.Anything).Return(nil)
	ds.On("PatchRun", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ds.On("GetCustomerByID", mock.Anything, "sq_cust_2").
		Return(nil, assert.AnError)

	body := webhookBody(model.EventCustomerCreated, "evt_cust2",
		`{"customer":{"id":"sq_cust_2","given_name":"Maya"}}`)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(body),
		Response: &response,
		Method:   "POST",
		Route:    "/webhooks/square",
		Router:   router,
		Header: map[string]string{
			"x-square-hmacsha256-signature": sign(testSignatureKey, testNotificationURL, body),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "error", response["status"])
	// The failure reached the run record before the acknowledgement.
	ds.AssertCalled(t, "PatchRun", mock.Anything, mock.Anything, mock.MatchedBy(func(p model.RunPatch) bool {
		return p.Status != nil && *p.Status == model.RunStatusError
	}))
}

func TestGetRuns(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router, _ := setupRouter(t, ds)

	ds.On("GetRunsByStatus", mock.Anything, model.RunStatusError, 50, 0).Return([]model.WorkflowRun{
		{CorrelationID: "payment:aaa", Status: model.RunStatusError},
		{CorrelationID: "payment:bbb", Status: model.RunStatusError},
	}, nil)

	var response []model.WorkflowRun
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    "/admin/runs?status=error",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Len(t, response, 2)
}

func TestGetRuns_InvalidStatus(t *testing.T) {
	router, _ := setupRouter(t, new(mocks.MockDataSource))

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    "/admin/runs?status=bogus",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Code)
}

func TestManualReward_RejectsSelfReferral(t *testing.T) {
	router, _ := setupRouter(t, new(mocks.MockDataSource))

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{"referrer_customer_id":"sq_1","referred_customer_id":"sq_1"}`),
		Response: &response,
		Method:   "POST",
		Route:    "/admin/rewards",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Code)
}

func TestAdminAuth(t *testing.T) {
	ds := new(mocks.MockDataSource)
	ds.On("RecordAppLog", mock.Anything, mock.Anything).Return(nil).Maybe()
	ds.On("GetRunsByStatus", mock.Anything, model.RunStatusError, 50, 0).Return([]model.WorkflowRun{}, nil)
	mr := miniredis.RunT(t)

	cnf := testConfig(mr.Addr())
	cnf.Server.Secure = true
	cnf.Server.SecretKey = "admin-secret"
	config.MockConfig(cnf)

	c, err := chairside.NewChairside(ds)
	require.NoError(t, err)
	router := NewAPI(c).Router()

	tests := []struct {
		name         string
		header       map[string]string
		expectedCode int
	}{
		{name: "missing key", header: nil, expectedCode: 401},
		{name: "wrong key", header: map[string]string{middleware.KeyHeader: "wrong"}, expectedCode: 401},
		{name: "valid key", header: map[string]string{middleware.KeyHeader: "admin-secret"}, expectedCode: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var response interface{}
			resp, err := SetUpTestRequest(TestRequest{
				Response: &response,
				Method:   "GET",
				Route:    "/admin/runs?status=error",
				Router:   router,
				Header:   tt.header,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}
