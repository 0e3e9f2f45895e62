package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/chairside/chairside/model"
)

// CreateCustomer inserts a new Customer into the database
func (d Datasource) CreateCustomer(ctx context.Context, customer model.Customer) (model.Customer, error) {
	metaDataJSON, err := json.Marshal(customer.MetaData)
	if err != nil {
		return customer, err
	}

	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now()
	}
	firstPaymentAt := sql.NullTime{Time: customer.FirstPaymentAt, Valid: !customer.FirstPaymentAt.IsZero()}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO customers (customer_id, given_name, family_name, email_address, phone_number, referral_code, used_referral_code, is_referrer, total_referrals, first_payment_at, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, customer.CustomerID, customer.GivenName, customer.FamilyName, customer.EmailAddress, customer.PhoneNumber, customer.ReferralCode, customer.UsedReferralCode, customer.IsReferrer, customer.TotalReferrals, firstPaymentAt, customer.CreatedAt, metaDataJSON)

	return customer, err
}

const customerColumns = `customer_id, given_name, family_name, email_address, phone_number, referral_code, used_referral_code, is_referrer, total_referrals, first_payment_at, created_at, meta_data`

func scanCustomer(row *sql.Row) (*model.Customer, error) {
	customer := &model.Customer{}
	var metaDataJSON []byte
	var firstPaymentAt sql.NullTime
	err := row.Scan(
		&customer.CustomerID, &customer.GivenName, &customer.FamilyName,
		&customer.EmailAddress, &customer.PhoneNumber,
		&customer.ReferralCode, &customer.UsedReferralCode,
		&customer.IsReferrer, &customer.TotalReferrals,
		&firstPaymentAt, &customer.CreatedAt, &metaDataJSON,
	)
	if err != nil {
		return nil, err
	}
	if firstPaymentAt.Valid {
		customer.FirstPaymentAt = firstPaymentAt.Time
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &customer.MetaData); err != nil {
			return nil, err
		}
	}
	return customer, nil
}

// GetCustomerByID retrieves a customer by Square customer ID
func (d Datasource) GetCustomerByID(ctx context.Context, id string) (*model.Customer, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE customer_id = $1
	`, id)
	return scanCustomer(row)
}

// GetCustomerByReferralCode resolves a referral code to the customer who owns it
func (d Datasource) GetCustomerByReferralCode(ctx context.Context, code string) (*model.Customer, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE referral_code = $1
	`, code)
	return scanCustomer(row)
}

// UpdateCustomerReferral records which referral code a customer redeemed.
// Only the first redemption sticks.
func (d Datasource) UpdateCustomerReferral(ctx context.Context, id, usedCode string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE customers
		SET used_referral_code = $2
		WHERE customer_id = $1 AND (used_referral_code IS NULL OR used_referral_code = '')
	`, id, usedCode)
	return err
}

// MarkReferrer flags a customer as a referrer and increments their referral count
func (d Datasource) MarkReferrer(ctx context.Context, id string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE customers
		SET is_referrer = TRUE, total_referrals = total_referrals + 1
		WHERE customer_id = $1
	`, id)
	return err
}

// RecordFirstPayment stamps the customer's first completed payment. Returns
// false when the stamp already existed, which callers use as the
// only-reward-once gate.
func (d Datasource) RecordFirstPayment(ctx context.Context, id string) (bool, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE customers
		SET first_payment_at = CURRENT_TIMESTAMP
		WHERE customer_id = $1 AND first_payment_at IS NULL
	`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateCustomerContact refreshes the contact fields we mirror from Square
func (d Datasource) UpdateCustomerContact(ctx context.Context, customer model.Customer) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE customers
		SET given_name = $2, family_name = $3, email_address = $4, phone_number = $5
		WHERE customer_id = $1
	`, customer.CustomerID, customer.GivenName, customer.FamilyName, customer.EmailAddress, customer.PhoneNumber)
	return err
}
