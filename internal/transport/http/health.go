package http

import (
	stdhttp "net/http"
)

// HealthHandler reports liveness.
func HealthHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	writeOK(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
}
