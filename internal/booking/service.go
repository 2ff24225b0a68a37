// Package booking implements the allocation engine: availability resolution
// and the atomic booking commit with payment-specific pricing.
package booking

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/balbi1122/balbi-golf-booking/internal/database"
	"github.com/balbi1122/balbi-golf-booking/internal/metrics"
	"github.com/balbi1122/balbi-golf-booking/internal/models"
	"github.com/balbi1122/balbi-golf-booking/internal/schedule"
)

// Validation errors, surfaced before storage is touched.
var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidDuration    = errors.New("duration not offered")
	ErrInvalidPaymentType = errors.New("unknown payment type")
)

// Business-rule errors re-exported from the storage layer, where the atomic
// re-check decides them.
var (
	ErrDailyCapacityReached = database.ErrDailyCapacityReached
	ErrSlotUnavailable      = database.ErrSlotUnavailable
	ErrInsufficientPrepaid  = database.ErrInsufficientPrepaid
)

// Repo is the storage surface the engine needs.
type Repo interface {
	BookLesson(ctx context.Context, p database.BookLessonParams) (*models.Lesson, error)
	LessonsForDay(ctx context.Context, dayStart, dayEnd time.Time) ([]models.Lesson, error)
	BlocksOverlapping(ctx context.Context, start, end time.Time) ([]models.Block, error)
	SetLessonCalendarEvent(ctx context.Context, lessonID int64, eventID string) error
}

// CalendarSync pushes a committed lesson to an external calendar. It runs
// after the booking transaction and its failure never unwinds the booking.
type CalendarSync interface {
	CreateEvent(ctx context.Context, lesson *models.Lesson, customer *models.Customer) (string, error)
}

// Notifier delivers a best-effort admin message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Rules collects the static configuration the engine prices and filters by.
type Rules struct {
	Hours        schedule.Hours
	MaxPerDay    int
	PriceCents   map[int]int     // duration minutes -> cents
	CashDiscount float64         // fraction off the whole-dollar price
	PrepaidHours map[int]float64 // duration minutes -> hours debited
}

// Request is one booking attempt.
type Request struct {
	Date        time.Time // calendar day in the business timezone
	TimeOfDay   string    // "15:04"
	Duration    int       // minutes
	Customer    models.Customer
	PaymentType string
}

// Confirmation is returned on a committed booking.
type Confirmation struct {
	BookingID  int64     `json:"booking_id"`
	Start      time.Time `json:"start"`
	Duration   int       `json:"duration"`
	PriceCents int       `json:"price_cents"`
}

type Service struct {
	repo     Repo
	rules    Rules
	calendar CalendarSync
	notifier Notifier
	logger   *zerolog.Logger
}

func NewService(repo Repo, rules Rules, logger *zerolog.Logger) *Service {
	return &Service{repo: repo, rules: rules, logger: logger}
}

// WithCalendar attaches the optional external-calendar sync.
func (s *Service) WithCalendar(c CalendarSync) *Service {
	s.calendar = c
	return s
}

// WithNotifier attaches the optional admin notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// ValidDuration reports whether the duration is in the offered set.
func (s *Service) ValidDuration(minutes int) bool {
	_, ok := s.rules.PriceCents[minutes]
	return ok
}

// ListAvailability returns the bookable start instants for a date and
// duration. Read-only and deterministic for a given storage state.
func (s *Service) ListAvailability(ctx context.Context, date time.Time, duration int) ([]schedule.Slot, error) {
	if !s.ValidDuration(duration) {
		return nil, ErrInvalidDuration
	}
	metrics.IncAvailabilityRequest()

	candidates, err := s.rules.Hours.Candidates(date, duration)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := schedule.DayBounds(date, s.loc())
	lessons, err := s.repo.LessonsForDay(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	blocks, err := s.repo.BlocksOverlapping(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	return s.rules.Hours.Available(candidates, duration, lessons, blocks, s.rules.MaxPerDay), nil
}

// Book re-validates the chosen slot against current state and commits the
// booking atomically, branching price by payment method.
func (s *Service) Book(ctx context.Context, req Request) (*Confirmation, error) {
	if req.Customer.Email == "" || req.TimeOfDay == "" || req.Date.IsZero() {
		return nil, ErrMissingFields
	}
	if !s.ValidDuration(req.Duration) {
		return nil, ErrInvalidDuration
	}
	switch req.PaymentType {
	case models.PaymentCard, models.PaymentCash, models.PaymentPrepaid:
	default:
		return nil, ErrInvalidPaymentType
	}

	hour, minute, err := schedule.ParseHHMM(req.TimeOfDay)
	if err != nil {
		return nil, ErrMissingFields
	}
	start := schedule.At(req.Date, hour, minute, s.loc())
	dayStart, dayEnd := schedule.DayBounds(req.Date, s.loc())

	params := database.BookLessonParams{
		Customer:      req.Customer,
		Start:         start,
		Duration:      req.Duration,
		PaymentType:   req.PaymentType,
		Price:         s.PriceFor(req.Duration, req.PaymentType),
		BufferMinutes: s.rules.Hours.BufferMinutes,
		MaxPerDay:     s.rules.MaxPerDay,
		DayStart:      dayStart,
		DayEnd:        dayEnd,
	}
	if req.PaymentType == models.PaymentPrepaid {
		params.PrepaidHours = s.rules.PrepaidHours[req.Duration]
	}

	lesson, err := s.repo.BookLesson(ctx, params)
	if err != nil {
		metrics.IncBookingRejected(rejectionReason(err))
		return nil, err
	}

	metrics.IncBookingCreated(req.PaymentType)
	s.logger.Info().
		Int64("booking_id", lesson.ID).
		Time("start", lesson.StartTime).
		Int("duration", lesson.Duration).
		Str("payment_type", lesson.PaymentType).
		Int("price_cents", lesson.Price).
		Msg("lesson booked")

	s.afterCommit(lesson, &req.Customer)

	return &Confirmation{
		BookingID:  lesson.ID,
		Start:      lesson.StartTime,
		Duration:   lesson.Duration,
		PriceCents: lesson.Price,
	}, nil
}

// PriceFor computes the price in cents for a duration and payment method.
// The cash discount follows the whole-dollar rounding rule: cents to
// dollars, discount, round, back to cents. Prepaid lessons are free; the
// debit happens inside the booking transaction.
func (s *Service) PriceFor(duration int, paymentType string) int {
	base := s.rules.PriceCents[duration]
	switch paymentType {
	case models.PaymentCash:
		dollars := float64(base) / 100
		return int(math.Round(dollars*(1-s.rules.CashDiscount))) * 100
	case models.PaymentPrepaid:
		return 0
	default:
		return base
	}
}

// afterCommit runs the best-effort side channels: external calendar sync
// and admin notification. Neither can fail the booking.
func (s *Service) afterCommit(lesson *models.Lesson, customer *models.Customer) {
	if s.calendar != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			eventID, err := s.calendar.CreateEvent(ctx, lesson, customer)
			if err != nil {
				s.logger.Warn().Err(err).Int64("booking_id", lesson.ID).Msg("calendar sync failed")
				return
			}
			if err := s.repo.SetLessonCalendarEvent(ctx, lesson.ID, eventID); err != nil {
				s.logger.Warn().Err(err).Int64("booking_id", lesson.ID).Msg("store calendar event id failed")
			}
		}()
	}
	if s.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			text := "New lesson: " + schedule.Label(lesson.StartTime, s.loc()) + " on " +
				lesson.StartTime.In(s.loc()).Format("2006-01-02") + " (" + lesson.PaymentType + ")"
			if err := s.notifier.Notify(ctx, text); err != nil {
				s.logger.Warn().Err(err).Msg("booking notification failed")
			}
		}()
	}
}

func (s *Service) loc() *time.Location {
	if s.rules.Hours.Location != nil {
		return s.rules.Hours.Location
	}
	return time.Local
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrDailyCapacityReached):
		return "capacity"
	case errors.Is(err, ErrSlotUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInsufficientPrepaid):
		return "prepaid_balance"
	default:
		return "error"
	}
}
