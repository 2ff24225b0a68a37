package booking

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/balbi1122/balbi-golf-booking/internal/database"
	"github.com/balbi1122/balbi-golf-booking/internal/models"
	"github.com/balbi1122/balbi-golf-booking/internal/schedule"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) BookLesson(ctx context.Context, p database.BookLessonParams) (*models.Lesson, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

func (m *mockRepo) LessonsForDay(ctx context.Context, dayStart, dayEnd time.Time) ([]models.Lesson, error) {
	args := m.Called(ctx, dayStart, dayEnd)
	return args.Get(0).([]models.Lesson), args.Error(1)
}

func (m *mockRepo) BlocksOverlapping(ctx context.Context, start, end time.Time) ([]models.Block, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).([]models.Block), args.Error(1)
}

func (m *mockRepo) SetLessonCalendarEvent(ctx context.Context, lessonID int64, eventID string) error {
	return m.Called(ctx, lessonID, eventID).Error(0)
}

func testRules() Rules {
	return Rules{
		Hours: schedule.Hours{
			OpenTime:      "08:00",
			CloseTime:     "18:00",
			SlotMinutes:   15,
			BufferMinutes: 15,
			Location:      time.UTC,
		},
		MaxPerDay:    4,
		PriceCents:   map[int]int{30: 9000, 45: 13500, 60: 18000},
		CashDiscount: 0.11,
		PrepaidHours: map[int]float64{30: 0.5, 45: 0.75, 60: 1.0},
	}
}

func newTestService(repo Repo) *Service {
	logger := zerolog.New(io.Discard)
	return NewService(repo, testRules(), &logger)
}

func TestPriceFor(t *testing.T) {
	svc := newTestService(new(mockRepo))

	tests := []struct {
		name        string
		duration    int
		paymentType string
		want        int
	}{
		{"card 60", 60, models.PaymentCard, 18000},
		{"card 45", 45, models.PaymentCard, 13500},
		{"card 30", 30, models.PaymentCard, 9000},
		// Cash discount rounds at whole dollars: 180 * 0.89 = 160.20,
		// rounded to 160, back to cents.
		{"cash 60", 60, models.PaymentCash, 16000},
		// 135 * 0.89 = 120.15 -> 120.
		{"cash 45", 45, models.PaymentCash, 12000},
		// 90 * 0.89 = 80.10 -> 80.
		{"cash 30", 30, models.PaymentCash, 8000},
		{"prepaid is free", 60, models.PaymentPrepaid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.PriceFor(tt.duration, tt.paymentType))
		})
	}
}

func TestBookValidation(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo)
	ctx := context.Background()
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	valid := Request{
		Date:        date,
		TimeOfDay:   "10:00",
		Duration:    60,
		Customer:    models.Customer{Email: "a@b.com", Name: "A"},
		PaymentType: models.PaymentCard,
	}

	t.Run("missing email", func(t *testing.T) {
		req := valid
		req.Customer.Email = ""
		_, err := svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrMissingFields)
	})

	t.Run("missing time", func(t *testing.T) {
		req := valid
		req.TimeOfDay = ""
		_, err := svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrMissingFields)
	})

	t.Run("zero date", func(t *testing.T) {
		req := valid
		req.Date = time.Time{}
		_, err := svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrMissingFields)
	})

	t.Run("unsupported duration", func(t *testing.T) {
		req := valid
		req.Duration = 90
		_, err := svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("unknown payment type", func(t *testing.T) {
		req := valid
		req.PaymentType = "crypto"
		_, err := svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidPaymentType)
	})

	t.Run("malformed time of day", func(t *testing.T) {
		req := valid
		req.TimeOfDay = "ten"
		_, err := svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrMissingFields)
	})

	// Validation failures never touch the repository.
	repo.AssertNotCalled(t, "BookLesson", mock.Anything, mock.Anything)
}

func TestBookBuildsParams(t *testing.T) {
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("card booking", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo)
		start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)

		repo.On("BookLesson", ctx, mock.MatchedBy(func(p database.BookLessonParams) bool {
			return p.Start.Equal(start) &&
				p.Duration == 60 &&
				p.PaymentType == models.PaymentCard &&
				p.Price == 18000 &&
				p.PrepaidHours == 0 &&
				p.BufferMinutes == 15 &&
				p.MaxPerDay == 4
		})).Return(&models.Lesson{ID: 7, StartTime: start, Duration: 60, PaymentType: models.PaymentCard, Price: 18000}, nil).Once()

		conf, err := svc.Book(ctx, Request{
			Date:        date,
			TimeOfDay:   "10:00",
			Duration:    60,
			Customer:    models.Customer{Email: "a@b.com", Name: "A"},
			PaymentType: models.PaymentCard,
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(7), conf.BookingID)
		assert.Equal(t, 18000, conf.PriceCents)
		repo.AssertExpectations(t)
	})

	t.Run("prepaid booking carries the debit", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo)
		start := time.Date(2026, 9, 14, 14, 30, 0, 0, time.UTC)

		repo.On("BookLesson", ctx, mock.MatchedBy(func(p database.BookLessonParams) bool {
			return p.Start.Equal(start) &&
				p.PaymentType == models.PaymentPrepaid &&
				p.Price == 0 &&
				p.PrepaidHours == 0.75
		})).Return(&models.Lesson{ID: 8, StartTime: start, Duration: 45, PaymentType: models.PaymentPrepaid, UsedPrepaid: true}, nil).Once()

		conf, err := svc.Book(ctx, Request{
			Date:        date,
			TimeOfDay:   "14:30",
			Duration:    45,
			Customer:    models.Customer{Email: "a@b.com"},
			PaymentType: models.PaymentPrepaid,
		})
		assert.NoError(t, err)
		assert.Equal(t, 0, conf.PriceCents)
		repo.AssertExpectations(t)
	})

	t.Run("storage rejection passes through", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo)

		repo.On("BookLesson", ctx, mock.Anything).Return(nil, database.ErrSlotUnavailable).Once()

		_, err := svc.Book(ctx, Request{
			Date:        date,
			TimeOfDay:   "10:00",
			Duration:    60,
			Customer:    models.Customer{Email: "a@b.com"},
			PaymentType: models.PaymentCard,
		})
		assert.ErrorIs(t, err, ErrSlotUnavailable)
		repo.AssertExpectations(t)
	})
}

func TestListAvailability(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	dayStart := date
	dayEnd := date.Add(24 * time.Hour)

	t.Run("rejects unsupported duration", func(t *testing.T) {
		svc := newTestService(new(mockRepo))
		_, err := svc.ListAvailability(ctx, date, 90)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("filters booked slots", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo)

		repo.On("LessonsForDay", ctx, dayStart, dayEnd).Return([]models.Lesson{
			{StartTime: time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC), Duration: 60},
		}, nil).Once()
		repo.On("BlocksOverlapping", ctx, dayStart, dayEnd).Return([]models.Block{}, nil).Once()

		slots, err := svc.ListAvailability(ctx, date, 60)
		assert.NoError(t, err)
		assert.NotEmpty(t, slots)
		for _, s := range slots {
			assert.NotEqual(t, "10:00", s.Start.Format("15:04"))
		}
		repo.AssertExpectations(t)
	})
}

func TestValidDuration(t *testing.T) {
	svc := newTestService(new(mockRepo))
	assert.True(t, svc.ValidDuration(30))
	assert.True(t, svc.ValidDuration(45))
	assert.True(t, svc.ValidDuration(60))
	assert.False(t, svc.ValidDuration(90))
	assert.False(t, svc.ValidDuration(0))
}
