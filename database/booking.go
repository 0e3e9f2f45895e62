package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/chairside/chairside/model"
)

const bookingColumns = `booking_id, square_booking_id, customer_id, location_id, location_name, service_variation, team_member_id, start_at, status, referral_code, referral_source, created_at, meta_data`

// CreateBooking inserts one appointment segment row
func (d Datasource) CreateBooking(ctx context.Context, booking model.Booking) (model.Booking, error) {
	metaDataJSON, err := json.Marshal(booking.MetaData)
	if err != nil {
		return booking, err
	}

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}
	startAt := sql.NullTime{Time: booking.StartAt, Valid: !booking.StartAt.IsZero()}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO bookings (booking_id, square_booking_id, customer_id, location_id, location_name, service_variation, team_member_id, start_at, status, referral_code, referral_source, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (booking_id) DO UPDATE
		SET status = EXCLUDED.status, start_at = EXCLUDED.start_at, team_member_id = EXCLUDED.team_member_id
	`, booking.BookingID, booking.SquareBookingID, booking.CustomerID, booking.LocationID, booking.LocationName, booking.ServiceVariation, booking.TeamMemberID, startAt, booking.Status, booking.ReferralCode, booking.ReferralSource, booking.CreatedAt, metaDataJSON)

	return booking, err
}

func scanBooking(scan func(dest ...interface{}) error) (model.Booking, error) {
	booking := model.Booking{}
	var metaDataJSON []byte
	var startAt sql.NullTime
	err := scan(
		&booking.BookingID, &booking.SquareBookingID, &booking.CustomerID,
		&booking.LocationID, &booking.LocationName,
		&booking.ServiceVariation, &booking.TeamMemberID,
		&startAt, &booking.Status,
		&booking.ReferralCode, &booking.ReferralSource,
		&booking.CreatedAt, &metaDataJSON,
	)
	if err != nil {
		return booking, err
	}
	if startAt.Valid {
		booking.StartAt = startAt.Time
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &booking.MetaData); err != nil {
			return booking, err
		}
	}
	return booking, nil
}

// GetBookingByID retrieves one segment row by its ID
func (d Datasource) GetBookingByID(ctx context.Context, id string) (*model.Booking, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
	`, id)
	booking, err := scanBooking(row.Scan)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingsBySquareID retrieves every segment row belonging to one Square
// booking, ordered as the segments were recorded.
func (d Datasource) GetBookingsBySquareID(ctx context.Context, squareBookingID string) ([]model.Booking, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE square_booking_id = $1
		ORDER BY booking_id
	`, squareBookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// UpdateBookingsBySquareID updates status across every segment of a booking.
// Returns the number of rows touched; zero means the booking was never
// recorded and the caller should fall back to creating it.
func (d Datasource) UpdateBookingsBySquareID(ctx context.Context, squareBookingID, status string) (int64, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE bookings
		SET status = $2
		WHERE square_booking_id = $1
	`, squareBookingID, status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetFirstBookingReferral finds the earliest segment of a customer that
// carries a referral code.
func (d Datasource) GetFirstBookingReferral(ctx context.Context, customerID string) (*model.Booking, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE customer_id = $1 AND referral_code <> ''
		ORDER BY created_at ASC
		LIMIT 1
	`, customerID)
	booking, err := scanBooking(row.Scan)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
