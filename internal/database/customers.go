package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// GetCustomerByEmail returns the customer or ErrNotFound.
func (db *DB) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, email, name, phone, address, prepaid_hours, lifetime_spend,
		       late_cancels, created_at, updated_at
		FROM customers WHERE email = ?`, email)
	return scanCustomer(row)
}

// UpsertCustomer creates the customer on first booking or refreshes the
// optional profile fields on repeat bookings. Empty incoming fields never
// blank out stored ones. The email unique constraint makes concurrent
// first-time bookers resolve to one row.
func (db *DB) UpsertCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	return upsertCustomerTx(ctx, db.DB, c)
}

// AddPrepaidHours adjusts a customer's prepaid balance by delta hours.
func (db *DB) AddPrepaidHours(ctx context.Context, email string, delta float64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE customers SET prepaid_hours = prepaid_hours + ?, updated_at = ?
		WHERE email = ?`, delta, time.Now().UTC(), email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.Address,
		&c.PrepaidHours, &c.LifetimeSpend, &c.LateCancels, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
