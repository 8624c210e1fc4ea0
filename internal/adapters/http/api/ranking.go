// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/cinerank/internal/domain/model"
)

// RankingDependencies defines the interface for reading and editing the
// active ranking.
type RankingDependencies interface {
	List(ctx context.Context) ([]Entry, error)
	RawList(ctx context.Context) (model.List, error)
	Move(ctx context.Context, from, to int) ([]Entry, error)
	Undo(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, id model.ItemID) ([]Entry, error)
	Backfill(ctx context.Context) (int, error)
}

// RankingHandler handles ranking requests.
type RankingHandler struct {
	deps RankingDependencies
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies) *RankingHandler {
	return &RankingHandler{deps: deps}
}

// moveRequest mirrors the OpenAPI schema for POST /ranking/move.
type moveRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

type backfillResponse struct {
	Filled int `json:"filled"`
}

// HandleList handles GET /ranking requests.
func (h *RankingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	entries, err := h.deps.List(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleRawList handles GET /ranking/raw requests.
func (h *RankingHandler) HandleRawList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_raw_ranking"
	list, err := h.deps.RawList(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleMove handles POST /ranking/move requests.
func (h *RankingHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	const op = "api.move"
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.From == nil || req.To == nil {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Move(r.Context(), *req.From, *req.To)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleUndo handles POST /ranking/undo requests.
func (h *RankingHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	const op = "api.undo"
	entries, err := h.deps.Undo(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleRemove handles DELETE /ranking/items/{id} requests.
func (h *RankingHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove"
	id, err := model.NewItemID(r.PathValue("id"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := h.deps.Remove(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleBackfill handles POST /ranking/backfill requests.
func (h *RankingHandler) HandleBackfill(w http.ResponseWriter, r *http.Request) {
	const op = "api.backfill"
	n, err := h.deps.Backfill(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, backfillResponse{Filled: n})
}
