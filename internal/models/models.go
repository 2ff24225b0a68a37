package models

import "time"

// Payment types accepted at booking time.
const (
	PaymentCard    = "card"
	PaymentCash    = "cash"
	PaymentPrepaid = "prepaid"
)

// Customer represents a student, identified by email.
type Customer struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	PrepaidHours  float64   `json:"prepaid_hours"`
	LifetimeSpend int64     `json:"lifetime_spend"` // cents
	LateCancels   int       `json:"late_cancels"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Lesson represents a booked lesson slot.
type Lesson struct {
	ID              int64     `json:"id"`
	CustomerID      int64     `json:"customer_id"`
	StartTime       time.Time `json:"start_time"`
	Duration        int       `json:"duration"` // minutes
	PaymentType     string    `json:"payment_type"`
	Price           int       `json:"price"` // cents
	UsedPrepaid     bool      `json:"used_prepaid"`
	Canceled        bool      `json:"canceled"`
	WeatherChange   bool      `json:"weather_change"`
	CalendarEventID string    `json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// EndTime returns the lesson end without buffer.
func (l *Lesson) EndTime() time.Time {
	return l.StartTime.Add(time.Duration(l.Duration) * time.Minute)
}

// BufferedEnd returns the lesson end plus the post-lesson buffer.
func (l *Lesson) BufferedEnd(bufferMinutes int) time.Time {
	return l.StartTime.Add(time.Duration(l.Duration+bufferMinutes) * time.Minute)
}

// Block is an admin-declared interval during which no lesson may be placed.
type Block struct {
	ID        int64     `json:"id"`
	StartTime time.Time `json:"start"`
	EndTime   time.Time `json:"end"`
	Note      string    `json:"note"`
}

// Setting is one row of the key/value settings table.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AuditEntry is an immutable record of an administrative action.
type AuditEntry struct {
	ID     int64     `json:"id"`
	TS     time.Time `json:"ts"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
