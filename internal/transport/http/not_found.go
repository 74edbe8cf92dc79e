package http

import (
	"net/http"

	"github.com/landsales/salesops/internal/domain"
)

// NotFoundHandler returns the failure envelope for unknown routes.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorKind(w, http.StatusNotFound, domain.KindNotFound, "route not found")
	})
}

func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorKind(w, http.StatusMethodNotAllowed, domain.KindValidation, "method not allowed")
	})
}
