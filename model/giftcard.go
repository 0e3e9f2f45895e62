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
package model

import (
	"strings"
	"time"
)

// Gift card lifecycle states as reported by Square.
const (
	GiftCardStatePending = "PENDING"
	GiftCardStateActive  = "ACTIVE"
)

// Delivery channels record which funding path actually succeeded for a card.
const (
	ChannelEGiftOrder        = "square_egift_order"
	ChannelOwnerFundedActive = "owner_funded_activate"
	ChannelOwnerFundedAdjust = "owner_funded_adjust"
)

// Gift card ledger entry types.
const (
	LedgerEntryCreate   = "CREATE"
	LedgerEntryActivate = "ACTIVATE"
	LedgerEntryAdjust   = "ADJUST_INCREMENT"
)

// GiftCard mirrors a Square gift card plus the delivery metadata Chairside
// tracks for notifications. Balance is in minor currency units.
type GiftCard struct {
	GiftCardID    string                 `json:"gift_card_id"`
	SquareID      string                 `json:"square_id"`
	CustomerID    string                 `json:"customer_id"`
	CorrelationID string                 `json:"correlation_id"`
	GAN           string                 `json:"gan"`
	Balance       int64                  `json:"balance"`
	State         string                 `json:"state"`
	Channel       string                 `json:"channel"`
	ActivationURL string                 `json:"activation_url"`
	PassURL       string                 `json:"pass_url"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	MetaData      map[string]interface{} `json:"meta_data"`
}

// GiftCardLedgerEntry is a best-effort audit record of one engine step.
// Failing to write one never fails the reward.
type GiftCardLedgerEntry struct {
	EntryID          string    `json:"entry_id"`
	GiftCardID       string    `json:"gift_card_id"`
	EntryType        string    `json:"entry_type"`
	Amount           int64     `json:"amount"`
	BalanceBefore    int64     `json:"balance_before"`
	BalanceAfter     int64     `json:"balance_after"`
	Channel          string    `json:"channel"`
	SquareActivityID string    `json:"square_activity_id,omitempty"`
	IdempotencyKey   string    `json:"idempotency_key,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Referral reward statuses.
const (
	RewardStatusIssued = "ISSUED"
	RewardStatusFailed = "FAILED"
)

// ReferralReward links a referrer/friend pair to the code that was redeemed.
type ReferralReward struct {
	RewardID     string    `json:"reward_id"`
	ReferrerID   string    `json:"referrer_id"`
	ReferredID   string    `json:"referred_id"`
	ReferralCode string    `json:"referral_code"`
	GiftCardID   string    `json:"gift_card_id"`
	Amount       int64     `json:"amount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// RewardIntent describes one gift card issuance or load. It is ephemeral;
// only its outcome is persisted.
type RewardIntent struct {
	CustomerID      string `json:"customer_id"`
	Amount          int64  `json:"amount"`
	IdempotencySeed string `json:"idempotency_seed"`
	OrderID         string `json:"order_id,omitempty"`
	LineItemUID     string `json:"line_item_uid,omitempty"`
	Reason          string `json:"reason"`
}

// NormalizeGAN strips every non-digit character from a raw gift account
// number. Square formats GANs with spaces in some surfaces.
func NormalizeGAN(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidGAN reports whether a cleaned GAN falls inside Square's 10-16 digit
// range. Values outside it must not be used for QR generation.
func IsValidGAN(gan string) bool {
	cleaned := NormalizeGAN(gan)
	return len(cleaned) >= 10 && len(cleaned) <= 16 && cleaned == gan
}
