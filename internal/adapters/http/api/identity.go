// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/cinerank/internal/domain/model"
)

// IdentityDependencies defines the interface for identity hand-off.
type IdentityDependencies interface {
	Identity() model.Identity
	Hydrating() bool
	SwitchIdentity(ctx context.Context, next model.Identity) error
}

// IdentityHandler lets the identity provider tell the daemon who is signed in.
type IdentityHandler struct {
	deps IdentityDependencies
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(deps IdentityDependencies) *IdentityHandler {
	return &IdentityHandler{deps: deps}
}

// signInRequest mirrors the OpenAPI schema for PUT /identity. The credential
// may also be sent as a bearer token.
type signInRequest struct {
	AccountID  string `json:"account_id"`
	Credential string `json:"credential"`
}

type identityResponse struct {
	Kind      model.IdentityKind `json:"kind"`
	AccountID string             `json:"account_id,omitempty"`
	CanSync   bool               `json:"can_sync"`
	Hydrating bool               `json:"hydrating"`
}

// HandleGet handles GET /identity requests.
func (h *IdentityHandler) HandleGet(w http.ResponseWriter, _ *http.Request) {
	h.writeIdentity(w)
}

// HandleSignIn handles PUT /identity requests.
func (h *IdentityHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.sign_in"
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Credential == "" {
		req.Credential = bearer(r)
	}
	if err := h.deps.SwitchIdentity(r.Context(), model.Account(req.AccountID, req.Credential)); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.writeIdentity(w)
}

// HandleSignOut handles DELETE /identity requests.
func (h *IdentityHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	const op = "api.sign_out"
	if err := h.deps.SwitchIdentity(r.Context(), model.Guest()); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.writeIdentity(w)
}

func (h *IdentityHandler) writeIdentity(w http.ResponseWriter) {
	id := h.deps.Identity()
	writeJSON(w, http.StatusOK, identityResponse{
		Kind:      id.Kind,
		AccountID: id.AccountID,
		CanSync:   id.CanSync(),
		Hydrating: h.deps.Hydrating(),
	})
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
