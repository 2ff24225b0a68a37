package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BookLessonParams carries everything the booking transaction needs. Price
// and PrepaidHours are computed by the caller; the day bounds define which
// lessons and blocks count against the slot.
type BookLessonParams struct {
	Customer      models.Customer
	Start         time.Time
	Duration      int // minutes
	PaymentType   string
	Price         int     // cents; ignored for prepaid
	PrepaidHours  float64 // hours to debit; zero unless prepaid
	BufferMinutes int
	MaxPerDay     int
	DayStart      time.Time
	DayEnd        time.Time
}

// BookLesson commits a booking as one atomic unit: customer upsert, capacity
// and overlap re-checks, prepaid debit and lesson insert either all happen
// or none do. The immediate transaction takes sqlite's write lock up front,
// so concurrent requests for the same slot serialize and the loser sees the
// winner's row during its own re-check.
func (db *DB) BookLesson(ctx context.Context, p BookLessonParams) (*models.Lesson, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback()

	customer, err := upsertCustomerTx(ctx, tx, &p.Customer)
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	count, err := countActiveLessons(ctx, tx, p.DayStart, p.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}
	if count >= p.MaxPerDay {
		return nil, ErrDailyCapacityReached
	}

	lessons, err := lessonsForDay(ctx, tx, p.DayStart, p.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}
	blocks, err := blocksOverlapping(ctx, tx, p.DayStart, p.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	bufferedEnd := p.Start.Add(time.Duration(p.Duration+p.BufferMinutes) * time.Minute)
	for i := range lessons {
		if models.Overlaps(p.Start, bufferedEnd, lessons[i].StartTime, lessons[i].BufferedEnd(p.BufferMinutes)) {
			return nil, ErrSlotUnavailable
		}
	}
	for i := range blocks {
		if models.Overlaps(p.Start, bufferedEnd, blocks[i].StartTime, blocks[i].EndTime) {
			return nil, ErrSlotUnavailable
		}
	}

	price := p.Price
	usedPrepaid := false
	if p.PrepaidHours > 0 {
		if customer.PrepaidHours < p.PrepaidHours {
			return nil, ErrInsufficientPrepaid
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE customers SET prepaid_hours = prepaid_hours - ?, updated_at = ?
			WHERE id = ?`, p.PrepaidHours, time.Now().UTC(), customer.ID); err != nil {
			return nil, fmt.Errorf("debit prepaid: %w", err)
		}
		price = 0
		usedPrepaid = true
	} else if price > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE customers SET lifetime_spend = lifetime_spend + ?, updated_at = ?
			WHERE id = ?`, price, time.Now().UTC(), customer.ID); err != nil {
			return nil, fmt.Errorf("update lifetime spend: %w", err)
		}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO lessons (customer_id, start_time, duration, payment_type, price, used_prepaid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		customer.ID, p.Start.UTC(), p.Duration, p.PaymentType, price, usedPrepaid, now)
	if err != nil {
		return nil, fmt.Errorf("insert lesson: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return &models.Lesson{
		ID:          id,
		CustomerID:  customer.ID,
		StartTime:   p.Start.UTC(),
		Duration:    p.Duration,
		PaymentType: p.PaymentType,
		Price:       price,
		UsedPrepaid: usedPrepaid,
		CreatedAt:   now,
	}, nil
}

func upsertCustomerTx(ctx context.Context, tx dbtx, c *models.Customer) (*models.Customer, error) {
	now := time.Now().UTC()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO customers (email, name, phone, address, prepaid_hours, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE customers.name END,
			phone = CASE WHEN excluded.phone != '' THEN excluded.phone ELSE customers.phone END,
			address = CASE WHEN excluded.address != '' THEN excluded.address ELSE customers.address END,
			updated_at = excluded.updated_at`,
		c.Email, c.Name, c.Phone, c.Address, now, now)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx, `
		SELECT id, email, name, phone, address, prepaid_hours, lifetime_spend,
		       late_cancels, created_at, updated_at
		FROM customers WHERE email = ?`, c.Email)
	return scanCustomer(row)
}

func countActiveLessons(ctx context.Context, q dbtx, dayStart, dayEnd time.Time) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lessons
		WHERE canceled = 0 AND start_time >= ? AND start_time < ?`,
		dayStart.UTC(), dayEnd.UTC()).Scan(&count)
	return count, err
}

func lessonsForDay(ctx context.Context, q dbtx, dayStart, dayEnd time.Time) ([]models.Lesson, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, customer_id, start_time, duration, payment_type, price,
		       used_prepaid, canceled, weather_change, calendar_event_id, created_at
		FROM lessons
		WHERE canceled = 0 AND start_time >= ? AND start_time < ?
		ORDER BY start_time`,
		dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		var l models.Lesson
		var eventID sql.NullString
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.StartTime, &l.Duration,
			&l.PaymentType, &l.Price, &l.UsedPrepaid, &l.Canceled,
			&l.WeatherChange, &eventID, &l.CreatedAt); err != nil {
			return nil, err
		}
		if eventID.Valid {
			l.CalendarEventID = eventID.String
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// CountActiveLessons returns the number of non-canceled lessons in the day.
func (db *DB) CountActiveLessons(ctx context.Context, dayStart, dayEnd time.Time) (int, error) {
	return countActiveLessons(ctx, db.DB, dayStart, dayEnd)
}

// LessonsForDay returns the non-canceled lessons starting within the day.
func (db *DB) LessonsForDay(ctx context.Context, dayStart, dayEnd time.Time) ([]models.Lesson, error) {
	return lessonsForDay(ctx, db.DB, dayStart, dayEnd)
}

// SetLessonCalendarEvent stores the external calendar reference.
func (db *DB) SetLessonCalendarEvent(ctx context.Context, lessonID int64, eventID string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE lessons SET calendar_event_id = ? WHERE id = ?`, eventID, lessonID)
	return err
}

// MarkWeatherChange flags every non-canceled lesson of the day and returns
// how many were flagged.
func (db *DB) MarkWeatherChange(ctx context.Context, dayStart, dayEnd time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE lessons SET weather_change = 1
		WHERE canceled = 0 AND start_time >= ? AND start_time < ?`,
		dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
