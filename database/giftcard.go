package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/chairside/chairside/model"
)

const giftCardColumns = `gift_card_id, square_gift_card_id, customer_id, correlation_id, gan, balance, state, channel, activation_url, pass_url, created_at, updated_at, meta_data`

// CreateGiftCard inserts a new GiftCard into the database. The correlation id
// carries the uniqueness that makes issuance idempotent across retries.
func (d Datasource) CreateGiftCard(ctx context.Context, card model.GiftCard) (model.GiftCard, error) {
	metaDataJSON, err := json.Marshal(card.MetaData)
	if err != nil {
		return card, err
	}

	if card.GiftCardID == "" {
		card.GiftCardID = model.GenerateUUIDWithSuffix("gc")
	}
	now := time.Now()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO gift_cards (gift_card_id, square_gift_card_id, customer_id, correlation_id, gan, balance, state, channel, activation_url, pass_url, created_at, updated_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, card.GiftCardID, card.SquareID, card.CustomerID, card.CorrelationID, card.GAN, card.Balance, card.State, card.Channel, card.ActivationURL, card.PassURL, card.CreatedAt, card.UpdatedAt, metaDataJSON)

	return card, err
}

func scanGiftCard(row *sql.Row) (*model.GiftCard, error) {
	card := &model.GiftCard{}
	var metaDataJSON []byte
	err := row.Scan(
		&card.GiftCardID, &card.SquareID, &card.CustomerID, &card.CorrelationID,
		&card.GAN, &card.Balance, &card.State, &card.Channel,
		&card.ActivationURL, &card.PassURL,
		&card.CreatedAt, &card.UpdatedAt, &metaDataJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &card.MetaData); err != nil {
			return nil, err
		}
	}
	return card, nil
}

// GetGiftCardByCorrelationID retrieves the card a previous run already issued
// for this correlation id, if any.
func (d Datasource) GetGiftCardByCorrelationID(ctx context.Context, correlationID string) (*model.GiftCard, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+giftCardColumns+`
		FROM gift_cards
		WHERE correlation_id = $1
	`, correlationID)
	return scanGiftCard(row)
}

// GetGiftCardByCustomerID retrieves a customer's most recent card
func (d Datasource) GetGiftCardByCustomerID(ctx context.Context, customerID string) (*model.GiftCard, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+giftCardColumns+`
		FROM gift_cards
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, customerID)
	return scanGiftCard(row)
}

// UpdateGiftCardState updates state and balance after a Square activity
func (d Datasource) UpdateGiftCardState(ctx context.Context, giftCardID, state string, balance int64) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE gift_cards
		SET state = $2, balance = $3, updated_at = CURRENT_TIMESTAMP
		WHERE gift_card_id = $1
	`, giftCardID, state, balance)
	return err
}

// UpdateGiftCardDelivery stores the URLs attached to the card once Square
// makes them available.
func (d Datasource) UpdateGiftCardDelivery(ctx context.Context, giftCardID, activationURL, passURL string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE gift_cards
		SET activation_url = COALESCE(NULLIF($2, ''), activation_url),
			pass_url = COALESCE(NULLIF($3, ''), pass_url),
			updated_at = CURRENT_TIMESTAMP
		WHERE gift_card_id = $1
	`, giftCardID, activationURL, passURL)
	return err
}

// RecordLedgerEntry appends one activity to the card ledger
func (d Datasource) RecordLedgerEntry(ctx context.Context, entry model.GiftCardLedgerEntry) (model.GiftCardLedgerEntry, error) {
	if entry.EntryID == "" {
		entry.EntryID = model.GenerateUUIDWithSuffix("gcl")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO gift_card_ledger (entry_id, gift_card_id, entry_type, amount, balance_before, balance_after, channel, square_activity_id, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.EntryID, entry.GiftCardID, entry.EntryType, entry.Amount, entry.BalanceBefore, entry.BalanceAfter, entry.Channel, entry.SquareActivityID, entry.IdempotencyKey, entry.CreatedAt)

	return entry, err
}

// GetLedgerEntries retrieves a card's activity history, oldest first
func (d Datasource) GetLedgerEntries(ctx context.Context, giftCardID string) ([]model.GiftCardLedgerEntry, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT entry_id, gift_card_id, entry_type, amount, balance_before, balance_after, channel, square_activity_id, idempotency_key, created_at
		FROM gift_card_ledger
		WHERE gift_card_id = $1
		ORDER BY created_at ASC
	`, giftCardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.GiftCardLedgerEntry
	for rows.Next() {
		entry := model.GiftCardLedgerEntry{}
		err = rows.Scan(
			&entry.EntryID, &entry.GiftCardID, &entry.EntryType,
			&entry.Amount, &entry.BalanceBefore, &entry.BalanceAfter,
			&entry.Channel, &entry.SquareActivityID, &entry.IdempotencyKey,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreateReward inserts a ReferralReward. The referrer/referred pair is unique
// so a duplicate insert surfaces as a constraint error.
func (d Datasource) CreateReward(ctx context.Context, reward model.ReferralReward) (model.ReferralReward, error) {
	if reward.RewardID == "" {
		reward.RewardID = model.GenerateUUIDWithSuffix("rwd")
	}
	if reward.CreatedAt.IsZero() {
		reward.CreatedAt = time.Now()
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO referral_rewards (reward_id, referrer_customer_id, referred_customer_id, referral_code, gift_card_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
	`, reward.RewardID, reward.ReferrerID, reward.ReferredID, reward.ReferralCode, reward.GiftCardID, reward.Amount, reward.Status, reward.CreatedAt)

	return reward, err
}

// GetRewardByPair retrieves the reward for one referrer/referred pair
func (d Datasource) GetRewardByPair(ctx context.Context, referrerID, referredID string) (*model.ReferralReward, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT reward_id, referrer_customer_id, referred_customer_id, referral_code, COALESCE(gift_card_id, ''), amount, status, created_at
		FROM referral_rewards
		WHERE referrer_customer_id = $1 AND referred_customer_id = $2
	`, referrerID, referredID)

	reward := &model.ReferralReward{}
	err := row.Scan(
		&reward.RewardID, &reward.ReferrerID, &reward.ReferredID,
		&reward.ReferralCode, &reward.GiftCardID,
		&reward.Amount, &reward.Status, &reward.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// UpdateRewardStatus updates the status of a reward
func (d Datasource) UpdateRewardStatus(ctx context.Context, rewardID, status string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE referral_rewards
		SET status = $2
		WHERE reward_id = $1
	`, rewardID, status)
	return err
}
