// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/cinerank/internal/domain/comparison"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/internal/domain/types"
)

// SessionDependencies defines the interface for comparison sessions.
type SessionDependencies interface {
	BeginInsertion(ctx context.Context, item model.RankedItem) (types.Comparison, error)
	Session(ctx context.Context, id string) (types.Comparison, error)
	Choose(ctx context.Context, id string, choice comparison.Choice) (types.Comparison, error)
	Abandon(ctx context.Context, id string) error
}

// SessionsHandler handles comparison session requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// choiceRequest mirrors the OpenAPI schema for POST /ranking/sessions/{id}/choice.
type choiceRequest struct {
	Choice string `json:"choice"`
}

// HandleBegin handles POST /ranking/sessions requests. The body is the item
// to rank.
func (h *SessionsHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	const op = "api.begin_insertion"
	var item model.RankedItem
	if err := decodeJSON(r, &item); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.BeginInsertion(r.Context(), item)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/ranking/sessions/"+view.ID)
	writeJSON(w, http.StatusCreated, view)
}

// HandleGet handles GET /ranking/sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	view, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleChoose handles POST /ranking/sessions/{id}/choice requests.
func (h *SessionsHandler) HandleChoose(w http.ResponseWriter, r *http.Request) {
	const op = "api.choose"
	var req choiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	choice, err := comparison.ParseChoice(req.Choice)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	view, err := h.deps.Choose(r.Context(), r.PathValue("id"), choice)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleAbandon handles DELETE /ranking/sessions/{id} requests.
func (h *SessionsHandler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	const op = "api.abandon_session"
	if err := h.deps.Abandon(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
