package api

import (
	"net/http"
	"strconv"

	"github.com/balbi1122/balbi-golf-booking/internal/metrics"
	"github.com/balbi1122/balbi-golf-booking/internal/schedule"
)

// AvailabilityResponse lists the bookable slots for a date and duration.
type AvailabilityResponse struct {
	Date     string          `json:"date"`
	Duration int             `json:"duration"`
	Slots    []schedule.Slot `json:"slots"`
}

// handleAvailability returns bookable start times.
// GET /api/availability?date=YYYY-MM-DD&duration=60
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date required (YYYY-MM-DD)")
		return
	}
	date, err := s.parseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	duration := 60
	if v := r.URL.Query().Get("duration"); v != "" {
		duration, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid duration")
			return
		}
	}

	var resp AvailabilityResponse
	if s.cache.Get(r.Context(), dateStr, duration, &resp) {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	slots, err := s.svc.ListAvailability(r.Context(), date, duration)
	if err != nil {
		status, code := errorResponse(err)
		writeError(w, status, code)
		return
	}

	resp = AvailabilityResponse{Date: dateStr, Duration: duration, Slots: slots}
	s.cache.Set(r.Context(), dateStr, duration, resp)
	writeJSON(w, http.StatusOK, resp)
}
