package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/internal/cache"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = CreateTables(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// CreateTables creates every Chairside table if missing. Also used by the
// migrate command against a fresh database.
func CreateTables(db *sql.DB) error {
	for _, create := range []func(*sql.DB) error{
		createCustomerTable,
		createBookingTable,
		createGiftCardTable,
		createGiftCardLedgerTable,
		createReferralRewardTable,
		createWorkflowRunTable,
		createAppLogTable,
	} {
		if err := create(db); err != nil {
			return err
		}
	}
	return nil
}

// createCustomerTable creates a PostgreSQL table for the Customer struct
func createCustomerTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS customers (
			id SERIAL PRIMARY KEY,
			customer_id TEXT NOT NULL UNIQUE,
			given_name TEXT,
			family_name TEXT,
			email_address TEXT,
			phone_number TEXT,
			referral_code TEXT UNIQUE,
			used_referral_code TEXT,
			is_referrer BOOLEAN DEFAULT FALSE,
			total_referrals INT DEFAULT 0,
			first_payment_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			meta_data JSONB
		)
	`)
	return err
}

// createBookingTable creates a PostgreSQL table for the Booking struct.
// One row per appointment segment; booking_id carries the segment suffix.
func createBookingTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bookings (
			id SERIAL PRIMARY KEY,
			booking_id TEXT NOT NULL UNIQUE,
			square_booking_id TEXT NOT NULL,
			customer_id TEXT,
			location_id TEXT,
			location_name TEXT,
			service_variation TEXT,
			team_member_id TEXT,
			start_at TIMESTAMP,
			status TEXT,
			referral_code TEXT,
			referral_source TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			meta_data JSONB
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_bookings_square_booking_id ON bookings (square_booking_id)`)
	return err
}

// createGiftCardTable creates a PostgreSQL table for the GiftCard struct
func createGiftCardTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gift_cards (
			id SERIAL PRIMARY KEY,
			gift_card_id TEXT NOT NULL UNIQUE,
			square_gift_card_id TEXT NOT NULL UNIQUE,
			customer_id TEXT,
			correlation_id TEXT NOT NULL UNIQUE,
			gan TEXT,
			balance BIGINT DEFAULT 0,
			state TEXT,
			channel TEXT,
			activation_url TEXT,
			pass_url TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			meta_data JSONB
		)
	`)
	return err
}

// createGiftCardLedgerTable records every Square gift card activity we caused
func createGiftCardLedgerTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gift_card_ledger (
			id SERIAL PRIMARY KEY,
			entry_id TEXT NOT NULL UNIQUE,
			gift_card_id TEXT NOT NULL REFERENCES gift_cards(gift_card_id),
			entry_type TEXT NOT NULL,
			amount BIGINT NOT NULL,
			balance_before BIGINT NOT NULL DEFAULT 0,
			balance_after BIGINT NOT NULL DEFAULT 0,
			channel TEXT,
			square_activity_id TEXT,
			idempotency_key TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createReferralRewardTable creates a PostgreSQL table for the ReferralReward struct
func createReferralRewardTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS referral_rewards (
			id SERIAL PRIMARY KEY,
			reward_id TEXT NOT NULL UNIQUE,
			referrer_customer_id TEXT NOT NULL,
			referred_customer_id TEXT NOT NULL,
			referral_code TEXT NOT NULL,
			gift_card_id TEXT REFERENCES gift_cards(gift_card_id),
			amount BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (referrer_customer_id, referred_customer_id)
		)
	`)
	return err
}

// createWorkflowRunTable creates a PostgreSQL table for the WorkflowRun struct
func createWorkflowRunTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_runs (
			id SERIAL PRIMARY KEY,
			correlation_id TEXT NOT NULL UNIQUE,
			stage TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			payload JSONB,
			context JSONB,
			resumed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createAppLogTable creates a PostgreSQL table for structured application events
func createAppLogTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS app_logs (
			id SERIAL PRIMARY KEY,
			log_id TEXT NOT NULL UNIQUE,
			level TEXT NOT NULL,
			event TEXT NOT NULL,
			correlation_id TEXT,
			message TEXT,
			fields JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}
