// Package api exposes the booking site's JSON endpoints: availability
// queries for the booking form and tariff administration for the
// property manager.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"villabook/internal/availability"
	"villabook/internal/config"
	"villabook/internal/tariff"
)

// TariffStore is the admin-facing tariff backend (CSV or sqlite).
type TariffStore interface {
	availability.TariffProvider
	Rows(ctx context.Context, room string) ([]tariff.Row, error)
	ReplaceRows(ctx context.Context, room string, rows []tariff.Row) error
}

// HTTPServer serves the public availability API and the tariff admin API.
type HTTPServer struct {
	planner *availability.Planner
	store   TariffStore
	rooms   []config.Room
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New creates the server. ratePerSec/burst bound the request rate across
// all clients; the booking form is low-traffic and the calendar API
// behind it is quota-limited.
func New(planner *availability.Planner, store TariffStore, rooms []config.Room, ratePerSec, burst int, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		planner: planner,
		store:   store,
		rooms:   rooms,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		log:     logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/freebusy", s.handleFreeBusy)
	mux.HandleFunc("/api/tariffs/", s.handleTariffs)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return s.withRequestID(s.withRateLimit(mux))
}

func (s *HTTPServer) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set("X-Request-Id", requestID)
		s.log.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request")
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) roomByName(name string) (config.Room, bool) {
	for _, room := range s.rooms {
		if room.Name == name {
			return room, true
		}
	}
	return config.Room{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
