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

package database

import (
	"context"

	"github.com/chairside/chairside/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	customer    // Interface for customer-related operations
	booking     // Interface for booking-related operations
	giftCard    // Interface for gift card and ledger operations
	reward      // Interface for referral reward operations
	workflowRun // Interface for workflow run bookkeeping
	appLog      // Interface for persisted application events
}

// customer defines methods for handling customers.
type customer interface {
	CreateCustomer(ctx context.Context, customer model.Customer) (model.Customer, error) // Records a new customer
	GetCustomerByID(ctx context.Context, id string) (*model.Customer, error)             // Retrieves a customer by Square customer ID
	GetCustomerByReferralCode(ctx context.Context, code string) (*model.Customer, error) // Resolves a referral code to its owner
	UpdateCustomerReferral(ctx context.Context, id, usedCode string) error               // Marks which code a customer redeemed
	MarkReferrer(ctx context.Context, id string) error                                   // Flags a customer as a referrer and bumps their total
	RecordFirstPayment(ctx context.Context, id string) (bool, error)                     // Stamps the first completed payment; false if already stamped
	UpdateCustomerContact(ctx context.Context, customer model.Customer) error            // Refreshes contact fields from Square
}

// booking defines methods for handling booking segments.
type booking interface {
	CreateBooking(ctx context.Context, booking model.Booking) (model.Booking, error)             // Records one appointment segment
	GetBookingByID(ctx context.Context, id string) (*model.Booking, error)                       // Retrieves a segment row by its ID
	GetBookingsBySquareID(ctx context.Context, squareBookingID string) ([]model.Booking, error)  // Retrieves all segment rows of one Square booking
	UpdateBookingsBySquareID(ctx context.Context, squareBookingID, status string) (int64, error) // Updates status across a booking's segments
	GetFirstBookingReferral(ctx context.Context, customerID string) (*model.Booking, error)      // Finds the earliest segment carrying a referral code
}

// giftCard defines methods for handling gift cards and their ledger.
type giftCard interface {
	CreateGiftCard(ctx context.Context, card model.GiftCard) (model.GiftCard, error)                           // Records a new gift card
	GetGiftCardByCorrelationID(ctx context.Context, correlationID string) (*model.GiftCard, error)             // Retrieves a card by its issuance correlation ID
	GetGiftCardByCustomerID(ctx context.Context, customerID string) (*model.GiftCard, error)                   // Retrieves a customer's most recent card
	UpdateGiftCardState(ctx context.Context, giftCardID, state string, balance int64) error                    // Updates state and balance after an activity
	UpdateGiftCardDelivery(ctx context.Context, giftCardID, activationURL, passURL string) error               // Stores activation and wallet pass URLs
	RecordLedgerEntry(ctx context.Context, entry model.GiftCardLedgerEntry) (model.GiftCardLedgerEntry, error) // Appends one activity to the card ledger
	GetLedgerEntries(ctx context.Context, giftCardID string) ([]model.GiftCardLedgerEntry, error)              // Retrieves a card's activity history
}

// reward defines methods for handling referral rewards.
type reward interface {
	CreateReward(ctx context.Context, reward model.ReferralReward) (model.ReferralReward, error) // Records a referrer reward; unique per referrer/referred pair
	GetRewardByPair(ctx context.Context, referrerID, referredID string) (*model.ReferralReward, error)
	UpdateRewardStatus(ctx context.Context, rewardID, status string) error
}

// workflowRun defines methods for webhook run bookkeeping.
type workflowRun interface {
	UpsertRun(ctx context.Context, run model.WorkflowRun) error                     // Creates a run row, or bumps attempts if it exists
	PatchRun(ctx context.Context, correlationID string, patch model.RunPatch) error // Applies a partial update to a run
	GetRun(ctx context.Context, correlationID string) (*model.WorkflowRun, error)   // Retrieves a run by correlation ID
	GetRunsByStatus(ctx context.Context, status string, limit, offset int) ([]model.WorkflowRun, error)
	PingRuns(ctx context.Context) error // Cheap availability probe for the runs table
}

// appLog defines methods for persisted application events.
type appLog interface {
	RecordAppLog(ctx context.Context, entry model.AppLog) error
	GetAppLogs(ctx context.Context, correlationID string, limit int) ([]model.AppLog, error)
}
