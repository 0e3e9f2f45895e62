package chairside

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chairside/chairside/database/mocks"
	"github.com/chairside/chairside/internal/apierror"
)

func TestGetCustomer_MissMapsToNotFound(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	ds.On("GetCustomerByID", mock.Anything, "cus_missing").Return(nil, sql.ErrNoRows)

	customer, err := c.GetCustomer(context.Background(), "cus_missing")
	assert.Nil(t, customer)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apierror.MapErrorToHTTPStatus(err))
}

func TestGetWorkflowRun_OtherErrorsStayInternal(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	ds.On("GetRun", mock.Anything, "payment:abc").Return(nil, assert.AnError)

	run, err := c.GetWorkflowRun(context.Background(), "payment:abc")
	assert.Nil(t, run)
	assert.Equal(t, http.StatusInternalServerError, apierror.MapErrorToHTTPStatus(err))
}

func TestManualReward_RejectsSamePair(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	reward, err := c.ManualReward(context.Background(), "cus_1", "cus_1")
	assert.Nil(t, reward)
	assert.Error(t, err)
	ds.AssertNotCalled(t, "GetCustomerByID", mock.Anything, mock.Anything)
}

func TestManualReward_UnknownReferrer(t *testing.T) {
	ds := new(mocks.MockDataSource)
	c := newTestChairside(t, ds)

	ds.On("GetCustomerByID", mock.Anything, "cus_ref").Return(nil, sql.ErrNoRows)

	reward, err := c.ManualReward(context.Background(), "cus_ref", "cus_friend")
	assert.Nil(t, reward)
	assert.ErrorContains(t, err, "referrer not found")
}
