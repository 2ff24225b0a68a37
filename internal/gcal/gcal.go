// Package gcal pushes committed lessons to a Google Calendar using the
// rotating refresh token held by the secure settings store. Every call is
// best-effort from the booking engine's point of view.
package gcal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/balbi1122/balbi-golf-booking/internal/models"
	"github.com/balbi1122/balbi-golf-booking/internal/secrets"
)

// TokenSource resolves the current refresh token.
type TokenSource interface {
	Get(ctx context.Context) (string, secrets.Source, error)
}

type Syncer struct {
	conf       *oauth2.Config
	tokens     TokenSource
	calendarID string
	location   *time.Location
}

// New builds a calendar syncer. calendarID may be "primary".
func New(clientID, clientSecret, calendarID string, tokens TokenSource, location *time.Location) *Syncer {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Syncer{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{calendar.CalendarEventsScope},
		},
		tokens:     tokens,
		calendarID: calendarID,
		location:   location,
	}
}

// CreateEvent inserts a calendar event for the lesson and returns the
// external event id.
func (s *Syncer) CreateEvent(ctx context.Context, lesson *models.Lesson, customer *models.Customer) (string, error) {
	refreshToken, _, err := s.tokens.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve refresh token: %w", err)
	}

	ts := s.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return "", fmt.Errorf("init calendar service: %w", err)
	}

	summary := "Golf lesson"
	if customer != nil && customer.Name != "" {
		summary = "Golf lesson: " + customer.Name
	}
	event := &calendar.Event{
		Summary: summary,
		Start: &calendar.EventDateTime{
			DateTime: lesson.StartTime.In(s.location).Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: lesson.EndTime().In(s.location).Format(time.RFC3339),
		},
	}
	if customer != nil && customer.Email != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: customer.Email}}
	}

	created, err := svc.Events.Insert(s.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}
