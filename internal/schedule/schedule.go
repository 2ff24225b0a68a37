// Package schedule holds the pure slot and availability math. Nothing here
// touches storage; callers feed it the day's lessons and blocks.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// Hours describes the business-day window and slot parameters.
type Hours struct {
	OpenTime      string // "08:00"
	CloseTime     string // "18:00"
	SlotMinutes   int
	BufferMinutes int
	Location      *time.Location
}

// Slot is a bookable start instant with a display label.
type Slot struct {
	Start time.Time `json:"start"`
	Label string    `json:"label"`
}

// ParseHHMM parses a "15:04" style time-of-day.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format: %s", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// At combines a calendar date with a time-of-day in the given location.
func At(date time.Time, hour, minute int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
}

// DayBounds returns [00:00, 24:00) of the date in the given location.
func DayBounds(date time.Time, loc *time.Location) (start, end time.Time) {
	start = At(date, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}

// Label formats a start instant for display in the business timezone,
// e.g. "4:45 PM".
func Label(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("3:04 PM")
}

// Candidates emits every slot start between open and close such that the
// slot plus the post-lesson buffer still fits before closing time. The
// result is ordered and bounded by the day length over the step size.
func (h Hours) Candidates(date time.Time, durationMinutes int) ([]time.Time, error) {
	openH, openM, err := ParseHHMM(h.OpenTime)
	if err != nil {
		return nil, fmt.Errorf("open time: %w", err)
	}
	closeH, closeM, err := ParseHHMM(h.CloseTime)
	if err != nil {
		return nil, fmt.Errorf("close time: %w", err)
	}

	loc := h.Location
	if loc == nil {
		loc = time.Local
	}

	open := At(date, openH, openM, loc)
	closing := At(date, closeH, closeM, loc)
	step := time.Duration(h.SlotMinutes) * time.Minute
	occupied := time.Duration(durationMinutes+h.BufferMinutes) * time.Minute

	var out []time.Time
	for cursor := open; !cursor.Add(occupied).After(closing); cursor = cursor.Add(step) {
		out = append(out, cursor)
	}
	return out, nil
}

// Available filters candidates against the day's non-canceled lessons, the
// blocks touching the day, and the daily cap. If the cap is already met the
// whole day is unavailable. The check is deterministic: identical inputs
// yield identical output.
func (h Hours) Available(candidates []time.Time, durationMinutes int, lessons []models.Lesson, blocks []models.Block, maxPerDay int) []Slot {
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}

	slots := make([]Slot, 0, len(candidates))
	active := 0
	for i := range lessons {
		if !lessons[i].Canceled {
			active++
		}
	}
	if active >= maxPerDay {
		return slots
	}

	occupied := time.Duration(durationMinutes+h.BufferMinutes) * time.Minute
	for _, start := range candidates {
		if !h.fits(start, start.Add(occupied), lessons, blocks) {
			continue
		}
		slots = append(slots, Slot{Start: start, Label: Label(start, loc)})
	}
	return slots
}

// fits checks a candidate's buffered interval against every lesson's
// buffered interval and every block's raw interval.
func (h Hours) fits(start, bufferedEnd time.Time, lessons []models.Lesson, blocks []models.Block) bool {
	for i := range lessons {
		l := &lessons[i]
		if l.Canceled {
			continue
		}
		if models.Overlaps(start, bufferedEnd, l.StartTime, l.BufferedEnd(h.BufferMinutes)) {
			return false
		}
	}
	for i := range blocks {
		b := &blocks[i]
		if models.Overlaps(start, bufferedEnd, b.StartTime, b.EndTime) {
			return false
		}
	}
	return true
}
