// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/internal/domain/comparison"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/reorder"
	"github.com/okian/cinerank/internal/domain/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RankingDependencies
	SessionDependencies
	IdentityDependencies
}

// Entry mirrors the read shape of a ranked row.
type Entry = types.Entry

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankingHandler  *RankingHandler
	sessionsHandler *SessionsHandler
	identityHandler *IdentityHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		rankingHandler:  NewRankingHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		identityHandler: NewIdentityHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /ranking", MetricsMiddleware(s.rankingHandler.HandleList, "ranking"))
	mux.HandleFunc("GET /ranking/raw", MetricsMiddleware(s.rankingHandler.HandleRawList, "ranking_raw"))
	mux.HandleFunc("POST /ranking/move", MetricsMiddleware(s.rankingHandler.HandleMove, "ranking_move"))
	mux.HandleFunc("POST /ranking/undo", MetricsMiddleware(s.rankingHandler.HandleUndo, "ranking_undo"))
	mux.HandleFunc("POST /ranking/backfill", MetricsMiddleware(s.rankingHandler.HandleBackfill, "ranking_backfill"))
	mux.HandleFunc("DELETE /ranking/items/{id}", MetricsMiddleware(s.rankingHandler.HandleRemove, "ranking_remove"))

	mux.HandleFunc("POST /ranking/sessions", MetricsMiddleware(s.sessionsHandler.HandleBegin, "sessions"))
	mux.HandleFunc("GET /ranking/sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "session"))
	mux.HandleFunc("DELETE /ranking/sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleAbandon, "session"))
	mux.HandleFunc("POST /ranking/sessions/{id}/choice", MetricsMiddleware(s.sessionsHandler.HandleChoose, "session_choice"))

	mux.HandleFunc("GET /identity", MetricsMiddleware(s.identityHandler.HandleGet, "identity"))
	mux.HandleFunc("PUT /identity", MetricsMiddleware(s.identityHandler.HandleSignIn, "identity"))
	mux.HandleFunc("DELETE /identity", MetricsMiddleware(s.identityHandler.HandleSignOut, "identity"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a domain error to its HTTP status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidItem),
		errors.Is(err, model.ErrInvalidItemID),
		errors.Is(err, model.ErrMissingAccountID),
		errors.Is(err, model.ErrUnknownIdentityKind),
		errors.Is(err, comparison.ErrUnknownChoice),
		errors.Is(err, reorder.ErrIndexOutOfRange):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, reorder.ErrNothingToUndo):
		return http.StatusConflict, "nothing_to_undo"
	case errors.Is(err, service.ErrStaleSession):
		return http.StatusConflict, "stale_session"
	case errors.Is(err, ErrConflict),
		errors.Is(err, comparison.ErrResolved),
		errors.Is(err, comparison.ErrBaseline),
		errors.Is(err, comparison.ErrNotBaseline):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
