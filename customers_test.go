package chairside

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chairside/chairside/database/mocks"
	"github.com/chairside/chairside/model"
)

func customerEvent(t *testing.T, id, givenName, email string) model.WebhookEvent {
	t.Helper()
	var obj model.CustomerObject
	obj.Customer.ID = id
	obj.Customer.GivenName = givenName
	obj.Customer.EmailAddress = email
	raw, err := json.Marshal(obj)
	require.NoError(t, err)

	event := model.WebhookEvent{Type: model.EventCustomerCreated, EventID: "evt_" + id}
	event.Data.ID = id
	event.Data.Object = raw
	return event
}

func TestCreateCustomerWithCode_RetriesOnCollision(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	ds.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(model.Customer{}, &pq.Error{Code: "23505"}).Twice()
	ds.On("CreateCustomer", mock.Anything, mock.MatchedBy(func(customer model.Customer) bool {
		return customer.ReferralCode != ""
	})).Return(model.Customer{CustomerID: "cus_amy", ReferralCode: "AMY-X7Q4K"}, nil).Once()

	created, err := c.createCustomerWithCode(context.Background(), model.Customer{
		CustomerID: "cus_amy",
		GivenName:  "Amy",
	})
	assert.NoError(t, err)
	assert.Equal(t, "AMY-X7Q4K", created.ReferralCode)
	ds.AssertNumberOfCalls(t, "CreateCustomer", 3)
}

// Codes are best-effort. When every generated code collides, the customer
// still gets a row, just with no code.
func TestCreateCustomerWithCode_ExhaustedRetriesCreatesWithoutCode(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	ds.On("CreateCustomer", mock.Anything, mock.MatchedBy(func(customer model.Customer) bool {
		return customer.ReferralCode != ""
	})).Return(model.Customer{}, &pq.Error{Code: "23505"}).Times(referralCodeRetries)
	ds.On("CreateCustomer", mock.Anything, mock.MatchedBy(func(customer model.Customer) bool {
		return customer.ReferralCode == ""
	})).Return(model.Customer{CustomerID: "cus_amy"}, nil).Once()

	created, err := c.createCustomerWithCode(context.Background(), model.Customer{CustomerID: "cus_amy", GivenName: "Amy"})
	assert.NoError(t, err)
	assert.Empty(t, created.ReferralCode)
	ds.AssertNumberOfCalls(t, "CreateCustomer", referralCodeRetries+1)
}

// Only a unique violation means the code collided; any other insert error
// surfaces immediately instead of burning retries.
func TestCreateCustomerWithCode_NonCollisionErrorFailsFast(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	ds.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(model.Customer{}, assert.AnError)

	_, err := c.createCustomerWithCode(context.Background(), model.Customer{CustomerID: "cus_amy", GivenName: "Amy"})
	assert.Error(t, err)
	ds.AssertNumberOfCalls(t, "CreateCustomer", 1)
}

func TestHandleCustomerCreated_RedeliveryRefreshesContact(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	ds.On("PingRuns", mock.Anything).Return(&pq.Error{Code: "42P01"})
	ds.On("GetCustomerByID", mock.Anything, "cus_amy").
		Return(&model.Customer{CustomerID: "cus_amy", ReferralCode: "AMY-X7Q4K"}, nil)
	ds.On("UpdateCustomerContact", mock.Anything, mock.MatchedBy(func(customer model.Customer) bool {
		return customer.EmailAddress == "amy@example.com"
	})).Return(nil)

	err := c.handleCustomerCreated(context.Background(), "customer:c1", customerEvent(t, "cus_amy", "Amy", "amy@example.com"))
	assert.NoError(t, err)
	ds.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

// Minting a code for a new customer also mails it to them, out of band from
// the ingest itself.
func TestHandleCustomerCreated_DispatchesReferralCodeEmail(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	mockNotificationConfig()

	httpmock.RegisterResponder("GET", "https://connect.squareupsandbox.com/v2/customers/cus_amy",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"customer": map[string]interface{}{"id": "cus_amy"},
		}))
	httpmock.RegisterResponder("PUT", "https://connect.squareupsandbox.com/v2/customers/cus_amy",
		httpmock.NewStringResponder(http.StatusOK, `{}`))
	httpmock.RegisterResponder("POST", "https://connect.squareupsandbox.com/v2/customers/cus_amy/custom-attributes/chairside_referral_code",
		httpmock.NewStringResponder(http.StatusOK, `{}`))
	httpmock.RegisterResponder("POST", testEmailProviderURL,
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	ds.On("PingRuns", mock.Anything).Return(&pq.Error{Code: "42P01"})
	ds.On("GetCustomerByID", mock.Anything, "cus_amy").Return(nil, sql.ErrNoRows)
	ds.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(model.Customer{CustomerID: "cus_amy", EmailAddress: "amy@example.com", ReferralCode: "AMY-X7Q4K"}, nil)

	err := c.handleCustomerCreated(context.Background(), "customer:c3", customerEvent(t, "cus_amy", "Amy", "amy@example.com"))
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return httpmock.GetCallCountInfo()["POST "+testEmailProviderURL] == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHandleCustomerCreated_MissingIDFails(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)
	ds.On("PingRuns", mock.Anything).Return(&pq.Error{Code: "42P01"})

	err := c.handleCustomerCreated(context.Background(), "customer:c2", customerEvent(t, "", "Amy", ""))
	assert.Error(t, err)
}
