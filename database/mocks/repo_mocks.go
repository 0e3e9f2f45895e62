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
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/chairside/chairside/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Customer methods

func (m *MockDataSource) CreateCustomer(ctx context.Context, customer model.Customer) (model.Customer, error) {
	args := m.Called(ctx, customer)
	return args.Get(0).(model.Customer), args.Error(1)
}

func (m *MockDataSource) GetCustomerByID(ctx context.Context, id string) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockDataSource) GetCustomerByReferralCode(ctx context.Context, code string) (*model.Customer, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockDataSource) UpdateCustomerReferral(ctx context.Context, id, usedCode string) error {
	args := m.Called(ctx, id, usedCode)
	return args.Error(0)
}

func (m *MockDataSource) MarkReferrer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) RecordFirstPayment(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) UpdateCustomerContact(ctx context.Context, customer model.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

// Booking methods

func (m *MockDataSource) CreateBooking(ctx context.Context, booking model.Booking) (model.Booking, error) {
	args := m.Called(ctx, booking)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *MockDataSource) GetBookingByID(ctx context.Context, id string) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockDataSource) GetBookingsBySquareID(ctx context.Context, squareBookingID string) ([]model.Booking, error) {
	args := m.Called(ctx, squareBookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockDataSource) UpdateBookingsBySquareID(ctx context.Context, squareBookingID, status string) (int64, error) {
	args := m.Called(ctx, squareBookingID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) GetFirstBookingReferral(ctx context.Context, customerID string) (*model.Booking, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

// Gift card methods

func (m *MockDataSource) CreateGiftCard(ctx context.Context, card model.GiftCard) (model.GiftCard, error) {
	args := m.Called(ctx, card)
	return args.Get(0).(model.GiftCard), args.Error(1)
}

func (m *MockDataSource) GetGiftCardByCorrelationID(ctx context.Context, correlationID string) (*model.GiftCard, error) {
	args := m.Called(ctx, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GiftCard), args.Error(1)
}

func (m *MockDataSource) GetGiftCardByCustomerID(ctx context.Context, customerID string) (*model.GiftCard, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GiftCard), args.Error(1)
}

func (m *MockDataSource) UpdateGiftCardState(ctx context.Context, giftCardID, state string, balance int64) error {
	args := m.Called(ctx, giftCardID, state, balance)
	return args.Error(0)
}

func (m *MockDataSource) UpdateGiftCardDelivery(ctx context.Context, giftCardID, activationURL, passURL string) error {
	args := m.Called(ctx, giftCardID, activationURL, passURL)
	return args.Error(0)
}

func (m *MockDataSource) RecordLedgerEntry(ctx context.Context, entry model.GiftCardLedgerEntry) (model.GiftCardLedgerEntry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(model.GiftCardLedgerEntry), args.Error(1)
}

func (m *MockDataSource) GetLedgerEntries(ctx context.Context, giftCardID string) ([]model.GiftCardLedgerEntry, error) {
	args := m.Called(ctx, giftCardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GiftCardLedgerEntry), args.Error(1)
}

// Reward methods

func (m *MockDataSource) CreateReward(ctx context.Context, reward model.ReferralReward) (model.ReferralReward, error) {
	args := m.Called(ctx, reward)
	return args.Get(0).(model.ReferralReward), args.Error(1)
}

func (m *MockDataSource) GetRewardByPair(ctx context.Context, referrerID, referredID string) (*model.ReferralReward, error) {
	args := m.Called(ctx, referrerID, referredID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReferralReward), args.Error(1)
}

func (m *MockDataSource) UpdateRewardStatus(ctx context.Context, rewardID, status string) error {
	args := m.Called(ctx, rewardID, status)
	return args.Error(0)
}

// Workflow run methods

func (m *MockDataSource) UpsertRun(ctx context.Context, run model.WorkflowRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDataSource) PatchRun(ctx context.Context, correlationID string, patch model.RunPatch) error {
	args := m.Called(ctx, correlationID, patch)
	return args.Error(0)
}

func (m *MockDataSource) GetRun(ctx context.Context, correlationID string) (*model.WorkflowRun, error) {
	args := m.Called(ctx, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowRun), args.Error(1)
}

func (m *MockDataSource) GetRunsByStatus(ctx context.Context, status string, limit, offset int) ([]model.WorkflowRun, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkflowRun), args.Error(1)
}

func (m *MockDataSource) PingRuns(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// App log methods

func (m *MockDataSource) RecordAppLog(ctx context.Context, entry model.AppLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDataSource) GetAppLogs(ctx context.Context, correlationID string, limit int) ([]model.AppLog, error) {
	args := m.Called(ctx, correlationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AppLog), args.Error(1)
}
