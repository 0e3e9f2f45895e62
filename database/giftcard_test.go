package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/chairside/chairside/model"
)

func TestCreateGiftCard_GeneratesID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	card := model.GiftCard{
		SquareID:      "gftc:abc",
		CustomerID:    "cus_1",
		CorrelationID: "payment:abc123",
		GAN:           "7783320001001000",
		Balance:       1000,
		State:         model.GiftCardStatePending,
		Channel:       model.ChannelEGiftOrder,
	}

	mock.ExpectExec("INSERT INTO gift_cards").
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreateGiftCard(context.Background(), card)
	assert.NoError(t, err)
	assert.Contains(t, created.GiftCardID, "gc_")
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Second)
}

func TestGetGiftCardByCorrelationID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	now := time.Now()
	rows := sqlmock.NewRows([]string{"gift_card_id", "square_gift_card_id", "customer_id", "correlation_id", "gan", "balance", "state", "channel", "activation_url", "pass_url", "created_at", "updated_at", "meta_data"}).
		AddRow("gc_1", "gftc:abc", "cus_1", "payment:abc123", "7783320001001000", 1000, model.GiftCardStateActive, model.ChannelEGiftOrder, "", "", now, now, []byte(`{}`))

	mock.ExpectQuery("SELECT .* FROM gift_cards").
		WithArgs("payment:abc123").
		WillReturnRows(rows)

	card, err := ds.GetGiftCardByCorrelationID(context.Background(), "payment:abc123")
	assert.NoError(t, err)
	assert.Equal(t, model.GiftCardStateActive, card.State)
	assert.Equal(t, int64(1000), card.Balance)
}

func TestRecordLedgerEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	entry := model.GiftCardLedgerEntry{
		GiftCardID:       "gc_1",
		EntryType:        model.LedgerEntryActivate,
		Amount:           1000,
		BalanceAfter:     1000,
		Channel:          model.ChannelEGiftOrder,
		SquareActivityID: "gca:1",
		IdempotencyKey:   "paymentcreated:abc",
	}

	mock.ExpectExec("INSERT INTO gift_card_ledger").
		WillReturnResult(sqlmock.NewResult(1, 1))

	recorded, err := ds.RecordLedgerEntry(context.Background(), entry)
	assert.NoError(t, err)
	assert.Contains(t, recorded.EntryID, "gcl_")
}

func TestCreateReward_DuplicatePairFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	reward := model.ReferralReward{
		ReferrerID:   "cus_referrer",
		ReferredID:   "cus_friend",
		ReferralCode: "AMY-X7Q4K",
		Amount:       1000,
		Status:       model.RewardStatusIssued,
	}

	mock.ExpectExec("INSERT INTO referral_rewards").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO referral_rewards").
		WillReturnError(assert.AnError)

	_, err = ds.CreateReward(context.Background(), reward)
	assert.NoError(t, err)

	_, err = ds.CreateReward(context.Background(), reward)
	assert.Error(t, err)
}
