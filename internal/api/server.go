// Package api exposes the booking engine over HTTP JSON endpoints.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/balbi1122/balbi-golf-booking/internal/audit"
	"github.com/balbi1122/balbi-golf-booking/internal/booking"
	"github.com/balbi1122/balbi-golf-booking/internal/cache"
	"github.com/balbi1122/balbi-golf-booking/internal/database"
	"github.com/balbi1122/balbi-golf-booking/internal/secrets"
)

// Options collects the static knobs from configuration.
type Options struct {
	AdminKey           string
	SeedToken          string
	RateLimitPerSecond float64
	RateLimitBurst     int
	Location           *time.Location
}

// HTTPServer routes API requests to the engine and admin services.
type HTTPServer struct {
	svc      *booking.Service
	db       *database.DB
	store    *secrets.Store
	recorder *audit.Recorder
	cache    *cache.AvailabilityCache
	notifier booking.Notifier
	opts     Options
	logger   *zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPServer wires the server. cache and notifier may be nil.
func NewHTTPServer(
	svc *booking.Service,
	db *database.DB,
	store *secrets.Store,
	recorder *audit.Recorder,
	availCache *cache.AvailabilityCache,
	notifier booking.Notifier,
	opts Options,
	logger *zerolog.Logger,
) *HTTPServer {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &HTTPServer{
		svc:      svc,
		db:       db,
		store:    store,
		recorder: recorder,
		cache:    availCache,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler builds the routing table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "db not ready")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	mux.HandleFunc("/api/availability", s.rateLimited(s.handleAvailability))
	mux.HandleFunc("/api/book", s.rateLimited(s.handleBook))

	mux.HandleFunc("/api/admin/block", s.adminOnly(s.handleCreateBlock))
	mux.HandleFunc("/api/admin/credential/status", s.adminOnly(s.handleCredentialStatus))
	mux.HandleFunc("/api/admin/credential/rotate", s.adminOnly(s.handleCredentialRotate))
	mux.HandleFunc("/api/admin/credential/clear", s.adminOnly(s.handleCredentialClear))
	mux.HandleFunc("/api/admin/audit/logs", s.adminOnly(s.handleAuditLogs))
	mux.HandleFunc("/api/admin/audit/export", s.adminOnly(s.handleAuditExport))
	mux.HandleFunc("/api/admin/weather/alert", s.adminOnly(s.handleWeatherAlert))
	mux.HandleFunc("/api/admin/seed", s.handleSeed)

	return s.withRequestID(mux)
}

// withRequestID tags every request with an id for log correlation.
func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		s.logger.Debug().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request")
		next.ServeHTTP(w, r)
	})
}

// rateLimited applies a per-client token bucket to public endpoints.
func (s *HTTPServer) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiterFor(clientIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) limiterFor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.opts.RateLimitPerSecond), s.opts.RateLimitBurst)
		s.limiters[ip] = lim
	}
	return lim
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// adminOnly gates administrative endpoints on the X-Admin-Key header.
func (s *HTTPServer) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Admin-Key")
		if s.opts.AdminKey == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.AdminKey)) != 1 {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// parseDate parses a YYYY-MM-DD day in the business timezone.
func (s *HTTPServer) parseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", value, s.opts.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", value)
	}
	return d, nil
}
