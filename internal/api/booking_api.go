package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/balbi1122/balbi-golf-booking/internal/booking"
	"github.com/balbi1122/balbi-golf-booking/internal/metrics"
	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// BookRequest is the request body for POST /api/book.
type BookRequest struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Time     string `json:"time"` // HH:MM
	Duration int    `json:"duration"`
	Customer struct {
		Email   string `json:"email"`
		Name    string `json:"name,omitempty"`
		Phone   string `json:"phone,omitempty"`
		Address string `json:"address,omitempty"`
	} `json:"customer"`
	PaymentType string `json:"payment_type"`
}

// BookResponse confirms a committed booking.
type BookResponse struct {
	OK         bool   `json:"ok"`
	BookingID  int64  `json:"booking_id"`
	Start      string `json:"start"`
	Duration   int    `json:"duration"`
	PriceCents int    `json:"price_cents"`
}

// handleBook commits a booking.
// POST /api/book
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req BookRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Date == "" || req.Time == "" || req.Customer.Email == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	date, err := s.parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conf, err := s.svc.Book(r.Context(), booking.Request{
		Date:      date,
		TimeOfDay: req.Time,
		Duration:  req.Duration,
		Customer: models.Customer{
			Email:   req.Customer.Email,
			Name:    req.Customer.Name,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
		},
		PaymentType: req.PaymentType,
	})
	if err != nil {
		status, code := errorResponse(err)
		writeError(w, status, code)
		return
	}

	s.cache.InvalidateDate(r.Context(), req.Date)

	writeJSON(w, http.StatusOK, BookResponse{
		OK:         true,
		BookingID:  conf.BookingID,
		Start:      conf.Start.UTC().Format(time.RFC3339),
		Duration:   conf.Duration,
		PriceCents: conf.PriceCents,
	})
}

// errorResponse maps engine errors onto HTTP statuses and stable codes.
// Everything the caller caused is a 4xx; the rest is a system fault.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrMissingFields):
		return http.StatusBadRequest, "missing_fields"
	case errors.Is(err, booking.ErrInvalidDuration):
		return http.StatusBadRequest, "invalid_duration"
	case errors.Is(err, booking.ErrInvalidPaymentType):
		return http.StatusBadRequest, "invalid_payment_type"
	case errors.Is(err, booking.ErrDailyCapacityReached):
		return http.StatusConflict, "max_lessons_reached"
	case errors.Is(err, booking.ErrSlotUnavailable):
		return http.StatusConflict, "slot_unavailable"
	case errors.Is(err, booking.ErrInsufficientPrepaid):
		return http.StatusPaymentRequired, "insufficient_prepaid"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
