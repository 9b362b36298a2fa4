package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"eventflow/internal/delivery/http/helpers"
	"eventflow/internal/delivery/http/middleware"
	"eventflow/internal/domain"
)

// ReasonRequest is the request body for reject and revision-request endpoints.
// An empty reason is rejected by the workflow after the role and state checks.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// callerFrom returns the authenticated caller or writes 401.
func callerFrom(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return domain.Identity{}, false
	}
	return id, true
}

// pathID reads a UUID path value. Malformed ids cannot name a stored row, so they
// are reported as notFound rather than as a bad request.
func pathID(w http.ResponseWriter, r *http.Request, name string, notFound error) (string, bool) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		kind := domain.KindOf(notFound)
		helpers.WriteJSONError(w, helpers.StatusForKind(kind), string(kind), kind.Message())
		return "", false
	}
	return id.String(), true
}
