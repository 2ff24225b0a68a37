package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical intervals", at(0), at(60), at(0), at(60), true},
		{"partial overlap", at(0), at(60), at(30), at(90), true},
		{"containment", at(0), at(90), at(30), at(60), true},
		{"touching endpoints do not overlap", at(0), at(60), at(60), at(120), false},
		{"touching endpoints reversed", at(60), at(120), at(0), at(60), false},
		{"disjoint", at(0), at(30), at(60), at(90), false},
		{"one minute overlap", at(0), at(61), at(60), at(120), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			// Symmetric.
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestLessonEnds(t *testing.T) {
	l := Lesson{
		StartTime: time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC),
		Duration:  45,
	}
	assert.Equal(t, time.Date(2026, 9, 14, 10, 45, 0, 0, time.UTC), l.EndTime())
	assert.Equal(t, time.Date(2026, 9, 14, 11, 0, 0, 0, time.UTC), l.BufferedEnd(15))
	assert.Equal(t, l.EndTime(), l.BufferedEnd(0))
}
