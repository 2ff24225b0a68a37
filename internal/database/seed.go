package database

import (
	"context"
	"fmt"
	"time"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// Seed loads demo data: two customers and two lessons tomorrow. Safe to
// call repeatedly; it only fills empty tables.
func (db *DB) Seed(ctx context.Context, loc *time.Location) error {
	var customerCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&customerCount); err != nil {
		return fmt.Errorf("count customers: %w", err)
	}
	if customerCount < 2 {
		seedCustomers := []models.Customer{
			{Email: "alex@example.com", Name: "Alex Morgan", Phone: "415-555-1212",
				Address: "123 Main St, San Francisco, CA", PrepaidHours: 1.5},
			{Email: "jamie@example.com", Name: "Jamie Lee", Phone: "650-555-2323",
				Address: "456 Oak Ave, Redwood City, CA"},
		}
		for _, c := range seedCustomers {
			now := time.Now().UTC()
			if _, err := db.ExecContext(ctx, `
				INSERT OR IGNORE INTO customers (email, name, phone, address, prepaid_hours, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				c.Email, c.Name, c.Phone, c.Address, c.PrepaidHours, now, now); err != nil {
				return fmt.Errorf("seed customer %s: %w", c.Email, err)
			}
		}
	}

	var lessonCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons`).Scan(&lessonCount); err != nil {
		return fmt.Errorf("count lessons: %w", err)
	}
	if lessonCount >= 2 {
		return nil
	}

	tomorrow := time.Now().In(loc).AddDate(0, 0, 1)
	at := func(hour, minute int) time.Time {
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, loc).UTC()
	}

	seedLessons := []struct {
		email       string
		start       time.Time
		duration    int
		paymentType string
		price       int
	}{
		{"alex@example.com", at(9, 0), 45, models.PaymentCard, 13500},
		{"jamie@example.com", at(15, 0), 60, models.PaymentCash, 16000},
	}
	for _, l := range seedLessons {
		customer, err := db.GetCustomerByEmail(ctx, l.email)
		if err != nil {
			return fmt.Errorf("seed lesson for %s: %w", l.email, err)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO lessons (customer_id, start_time, duration, payment_type, price, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			customer.ID, l.start, l.duration, l.paymentType, l.price, time.Now().UTC()); err != nil {
			return fmt.Errorf("seed lesson for %s: %w", l.email, err)
		}
	}
	return nil
}
