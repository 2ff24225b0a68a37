package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/balbi1122/balbi-golf-booking/internal/audit"
	"github.com/balbi1122/balbi-golf-booking/internal/metrics"
	"github.com/balbi1122/balbi-golf-booking/internal/models"
)

// BlockRequest is the request body for POST /api/admin/block.
type BlockRequest struct {
	Start string `json:"start"` // RFC3339
	End   string `json:"end"`   // RFC3339
	Note  string `json:"note,omitempty"`
}

// handleCreateBlock inserts an admin block. No conflict check against
// existing lessons: the next availability query excludes the zone.
// POST /api/admin/block
func (s *HTTPServer) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_block")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req BlockRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Start == "" || req.End == "" {
		writeError(w, http.StatusBadRequest, "start and end required (RFC3339)")
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected RFC3339")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	id, err := s.db.CreateBlock(r.Context(), &models.Block{
		StartTime: start, EndTime: end, Note: req.Note,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("create block failed")
		writeError(w, http.StatusInternalServerError, "block_failed")
		return
	}

	s.recorder.Record("admin", "block_created",
		fmt.Sprintf("%s - %s %s", req.Start, req.End, req.Note))
	s.invalidateRange(r, start, end)

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "block_id": id})
}

// invalidateRange drops cached availability for every day a block touches.
func (s *HTTPServer) invalidateRange(r *http.Request, start, end time.Time) {
	day := start.In(s.opts.Location)
	last := end.In(s.opts.Location)
	for i := 0; !day.After(last) && i < 62; i++ {
		s.cache.InvalidateDate(r.Context(), day.Format("2006-01-02"))
		day = day.AddDate(0, 0, 1)
	}
}

// handleCredentialStatus reports whether a rotated credential is stored.
// GET /api/admin/credential/status
func (s *HTTPServer) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("credential_status")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	has, err := s.store.Status(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("credential status failed")
		writeError(w, http.StatusInternalServerError, "status_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasToken": has})
}

// handleCredentialRotate stores a new credential encrypted at rest.
// POST /api/admin/credential/rotate
func (s *HTTPServer) handleCredentialRotate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("credential_rotate")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}

	if err := s.store.Set(r.Context(), req.Token); err != nil {
		s.logger.Error().Err(err).Msg("credential rotate failed")
		writeError(w, http.StatusInternalServerError, "rotate_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleCredentialClear deletes the stored credential; the configured
// fallback applies afterwards.
// POST /api/admin/credential/clear
func (s *HTTPServer) handleCredentialClear(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("credential_clear")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if err := s.store.Clear(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("credential clear failed")
		writeError(w, http.StatusInternalServerError, "clear_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleAuditLogs returns the most recent audit entries, newest first.
// GET /api/admin/audit/logs?limit=20
func (s *HTTPServer) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit_logs")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.recorder.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("audit read failed")
		writeError(w, http.StatusInternalServerError, "audit_failed")
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": entries})
}

// handleAuditExport streams an XLSX workbook of every audited table.
// GET /api/admin/audit/export
func (s *HTTPServer) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var buf bytes.Buffer
	if err := audit.ExportWorkbook(r.Context(), s.db, &buf); err != nil {
		s.logger.Error().Err(err).Msg("audit export failed")
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}

	filename := fmt.Sprintf("audit_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleWeatherAlert flags the day's lessons for a weather change and
// notifies the admin channel.
// POST /api/admin/weather/alert
func (s *HTTPServer) handleWeatherAlert(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("weather_alert")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil || req.Date == "" {
		writeError(w, http.StatusBadRequest, "date required (YYYY-MM-DD)")
		return
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)
	flagged, err := s.db.MarkWeatherChange(r.Context(), dayStart, dayEnd)
	if err != nil {
		s.logger.Error().Err(err).Msg("weather alert failed")
		writeError(w, http.StatusInternalServerError, "weather_alert_failed")
		return
	}

	s.recorder.Record("admin", "weather_alert",
		fmt.Sprintf("date %s, %d lessons flagged", req.Date, flagged))
	if s.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			text := fmt.Sprintf("Weather alert for %s: %d lessons affected", req.Date, flagged)
			if err := s.notifier.Notify(ctx, text); err != nil {
				s.logger.Warn().Err(err).Msg("weather notification failed")
			}
		}()
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "date": req.Date, "flagged": flagged})
}

// handleSeed loads idempotent demo data, guarded by its own token.
// POST /api/admin/seed
func (s *HTTPServer) handleSeed(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("seed")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	token := r.Header.Get("X-Seed-Token")
	if s.opts.SeedToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.SeedToken)) != 1 {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := s.db.Seed(r.Context(), s.opts.Location); err != nil {
		s.logger.Error().Err(err).Msg("seed failed")
		writeError(w, http.StatusInternalServerError, "seed_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "seeded": true})
}
