package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

func testHours() Hours {
	return Hours{
		OpenTime:      "08:00",
		CloseTime:     "18:00",
		SlotMinutes:   15,
		BufferMinutes: 15,
		Location:      time.UTC,
	}
}

func testDate() time.Time {
	return time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
}

func TestParseHHMM(t *testing.T) {
	tests := []struct {
		input   string
		hour    int
		minute  int
		wantErr bool
	}{
		{"08:00", 8, 0, false},
		{"18:30", 18, 30, false},
		{"00:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noon", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			h, m, err := ParseHHMM(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestCandidates(t *testing.T) {
	h := testHours()
	date := testDate()

	t.Run("60 minute lesson", func(t *testing.T) {
		candidates, err := h.Candidates(date, 60)
		assert.NoError(t, err)
		// 08:00 through 16:45: last start where start+60m+15m <= 18:00.
		assert.Len(t, candidates, 36)
		assert.Equal(t, At(date, 8, 0, time.UTC), candidates[0])
		assert.Equal(t, At(date, 16, 45, time.UTC), candidates[len(candidates)-1])
	})

	t.Run("30 minute lesson has later last start", func(t *testing.T) {
		candidates, err := h.Candidates(date, 30)
		assert.NoError(t, err)
		assert.Equal(t, At(date, 17, 15, time.UTC), candidates[len(candidates)-1])
	})

	t.Run("duration plus buffer exceeds window", func(t *testing.T) {
		tight := h
		tight.OpenTime = "08:00"
		tight.CloseTime = "09:00"
		candidates, err := tight.Candidates(date, 60)
		assert.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("invalid open time", func(t *testing.T) {
		bad := h
		bad.OpenTime = "late"
		_, err := bad.Candidates(date, 60)
		assert.Error(t, err)
	})
}

func TestAvailable(t *testing.T) {
	h := testHours()
	date := testDate()
	candidates, err := h.Candidates(date, 60)
	assert.NoError(t, err)

	t.Run("empty day keeps all candidates", func(t *testing.T) {
		slots := h.Available(candidates, 60, nil, nil, 4)
		assert.Len(t, slots, len(candidates))
		assert.Equal(t, "8:00 AM", slots[0].Label)
		assert.Equal(t, "4:45 PM", slots[len(slots)-1].Label)
	})

	t.Run("lesson buffer excludes adjacent starts", func(t *testing.T) {
		lessons := []models.Lesson{
			{StartTime: At(date, 10, 0, time.UTC), Duration: 60},
		}
		slots := h.Available(candidates, 60, lessons, nil, 4)

		// Lesson occupies 10:00-11:15 with buffer; a new 60-minute lesson
		// needs its own 75-minute interval clear; intervals are half-open
		// so a start whose interval ends exactly at 10:00 still fits.
		starts := make(map[string]bool, len(slots))
		for _, s := range slots {
			starts[s.Start.Format("15:04")] = true
		}
		assert.True(t, starts["08:45"])
		assert.False(t, starts["09:00"])
		assert.False(t, starts["10:00"])
		assert.False(t, starts["11:00"])
		assert.True(t, starts["11:15"])
	})

	t.Run("canceled lessons do not occupy", func(t *testing.T) {
		lessons := []models.Lesson{
			{StartTime: At(date, 10, 0, time.UTC), Duration: 60, Canceled: true},
		}
		slots := h.Available(candidates, 60, lessons, nil, 4)
		assert.Len(t, slots, len(candidates))
	})

	t.Run("block excludes its interval without buffer", func(t *testing.T) {
		blocks := []models.Block{
			{StartTime: At(date, 12, 0, time.UTC), EndTime: At(date, 13, 0, time.UTC)},
		}
		slots := h.Available(candidates, 60, nil, blocks, 4)

		starts := make(map[string]bool, len(slots))
		for _, s := range slots {
			starts[s.Start.Format("15:04")] = true
		}
		// A 60-minute lesson with 15 buffer occupies 75 minutes, so 10:45
		// is the last clear start before the block and 13:00 the first
		// after it.
		assert.True(t, starts["10:45"])
		assert.False(t, starts["11:00"])
		assert.False(t, starts["12:00"])
		assert.True(t, starts["13:00"])
	})

	t.Run("daily cap empties the day", func(t *testing.T) {
		lessons := []models.Lesson{
			{StartTime: At(date, 8, 0, time.UTC), Duration: 30},
			{StartTime: At(date, 9, 0, time.UTC), Duration: 30},
			{StartTime: At(date, 10, 0, time.UTC), Duration: 30},
			{StartTime: At(date, 11, 0, time.UTC), Duration: 30},
		}
		slots := h.Available(candidates, 60, lessons, nil, 4)
		assert.Empty(t, slots)
		assert.NotNil(t, slots)
	})

	t.Run("canceled lessons do not count toward the cap", func(t *testing.T) {
		lessons := []models.Lesson{
			{StartTime: At(date, 8, 0, time.UTC), Duration: 30},
			{StartTime: At(date, 9, 0, time.UTC), Duration: 30, Canceled: true},
			{StartTime: At(date, 10, 0, time.UTC), Duration: 30, Canceled: true},
			{StartTime: At(date, 11, 0, time.UTC), Duration: 30, Canceled: true},
		}
		slots := h.Available(candidates, 60, lessons, nil, 4)
		assert.NotEmpty(t, slots)
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		lessons := []models.Lesson{
			{StartTime: At(date, 9, 30, time.UTC), Duration: 45},
		}
		blocks := []models.Block{
			{StartTime: At(date, 14, 0, time.UTC), EndTime: At(date, 15, 0, time.UTC)},
		}
		first := h.Available(candidates, 60, lessons, blocks, 4)
		second := h.Available(candidates, 60, lessons, blocks, 4)
		assert.Equal(t, first, second)
	})
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(testDate(), time.UTC)
	assert.Equal(t, time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "4:45 PM", Label(time.Date(2026, 9, 14, 16, 45, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, "8:00 AM", Label(time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC), time.UTC))
}
