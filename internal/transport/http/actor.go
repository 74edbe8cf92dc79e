package http

import (
	"net/http"
	"strings"

	"github.com/landsales/salesops/internal/domain"
)

// Set by the upstream gateway after authentication.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

// actorFromRequest reads the caller's identity. Only agent and admin may be
// claimed over HTTP; the system role belongs to the expiry sweeper, so any
// other role leaves the actor invalid and the command fails validation.
func actorFromRequest(r *http.Request) domain.Actor {
	actor := domain.Actor{ID: strings.TrimSpace(r.Header.Get(headerActorID))}
	switch role := domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(headerActorRole)))); role {
	case domain.RoleAgent, domain.RoleAdmin:
		actor.Role = role
	}
	return actor
}

// requireAdmin rejects requests whose actor is not an admin.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromRequest(r)
		if !actor.Valid() {
			writeErrorKind(w, http.StatusBadRequest, domain.KindValidation, domain.ErrActorRequired.Error())
			return
		}
		if !actor.IsAdmin() {
			writeErrorKind(w, http.StatusForbidden, domain.KindForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
