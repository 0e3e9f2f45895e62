package chairside

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chairside/chairside/database/mocks"
	"github.com/chairside/chairside/model"
)

func testEvent(eventType, eventID, resourceID string) model.WebhookEvent {
	event := model.WebhookEvent{
		Type:    eventType,
		EventID: eventID,
	}
	event.Data.ID = resourceID
	return event
}

func TestRunTracker_RecordsRunWhenTableAvailable(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tracker := NewRunTracker(ds)

	ds.On("PingRuns", mock.Anything).Return(nil)
	ds.On("UpsertRun", mock.Anything, mock.MatchedBy(func(run model.WorkflowRun) bool {
		return run.CorrelationID != "" && run.Stage == "received" && run.Status == model.RunStatusPending
	})).Return(nil)

	event := testEvent(model.EventPaymentCreated, "evt_1", "pay_1")
	correlationID := model.BuildCorrelationID(event.Type, event.EventID, event.ResourceID())
	tracker.EnsureRun(context.Background(), correlationID, event)

	ds.AssertCalled(t, "UpsertRun", mock.Anything, mock.Anything)
}

func TestRunTracker_DegradesWhenTableMissing(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tracker := NewRunTracker(ds)

	ds.On("PingRuns", mock.Anything).Return(&pq.Error{Code: "42P01"})

	tracker.EnsureRun(context.Background(), "payment:abc", testEvent(model.EventPaymentCreated, "evt_1", "pay_1"))
	tracker.UpdateStage(context.Background(), "payment:abc", "referrer_rewarded", model.RunStatusCompleted)
	tracker.MarkError(context.Background(), "payment:abc", "referrer_reward", errors.New("boom"))

	ds.AssertNotCalled(t, "UpsertRun", mock.Anything, mock.Anything)
	ds.AssertNotCalled(t, "PatchRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunTracker_TransientCheckFailureKeepsTrackingOn(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tracker := NewRunTracker(ds)

	// Only a missing table disables tracking. A flaky connection must not
	// drop run records.
	ds.On("PingRuns", mock.Anything).Return(errors.New("read tcp: connection reset by peer"))
	ds.On("UpsertRun", mock.Anything, mock.Anything).Return(nil)

	tracker.EnsureRun(context.Background(), "payment:abc", testEvent(model.EventPaymentCreated, "evt_9", "pay_9"))

	assert.True(t, tracker.Available(context.Background()))
	ds.AssertCalled(t, "UpsertRun", mock.Anything, mock.Anything)
}

func TestRunTracker_CachesProbeResult(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tracker := NewRunTracker(ds)

	ds.On("PingRuns", mock.Anything).Return(nil).Once()
	ds.On("UpsertRun", mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 5; i++ {
		tracker.EnsureRun(context.Background(), "booking:abc", testEvent(model.EventBookingCreated, "evt_2", "bk_1"))
	}

	// A single probe serves all five calls inside the TTL window.
	ds.AssertNumberOfCalls(t, "PingRuns", 1)
	ds.AssertNumberOfCalls(t, "UpsertRun", 5)
}

func TestRunTracker_WriteFailureDisablesTracking(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tracker := NewRunTracker(ds)

	ds.On("PingRuns", mock.Anything).Return(nil).Once()
	ds.On("UpsertRun", mock.Anything, mock.Anything).Return(errors.Wrap(&pq.Error{Code: "42P01"}, "ensure run")).Once()

	tracker.EnsureRun(context.Background(), "payment:abc", testEvent(model.EventPaymentCreated, "evt_3", "pay_2"))

	// The failed write marked the table unavailable without a new probe.
	assert.False(t, tracker.Available(context.Background()))
	ds.AssertNumberOfCalls(t, "PingRuns", 1)
}

func TestRunTracker_MarkErrorTruncatesMessage(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tracker := NewRunTracker(ds)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}

	ds.On("PingRuns", mock.Anything).Return(nil)
	ds.On("PatchRun", mock.Anything, "payment:abc", mock.MatchedBy(func(patch model.RunPatch) bool {
		return patch.LastError != nil && len(*patch.LastError) == maxStoredErrorLength+3
	})).Return(nil)

	tracker.MarkError(context.Background(), "payment:abc", "referrer_reward", errors.New(string(long)))
	ds.AssertExpectations(t)
}
