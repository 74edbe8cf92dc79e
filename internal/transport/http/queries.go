package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GET /units/{unitID}/status
func (h *Handler) getUnitStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.workflow.GetUnitStatus(r.Context(), mux.Vars(r)["unitID"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.unitStatus(view))
}

// GET /units/{unitID}/holds
func (h *Handler) listUnitHolds(w http.ResponseWriter, r *http.Request) {
	holds, err := h.workflow.ListHoldsForUnit(r.Context(), mux.Vars(r)["unitID"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.holds(holds))
}

// GET /agents/{agentID}/holds
func (h *Handler) listAgentHolds(w http.ResponseWriter, r *http.Request) {
	holds, err := h.workflow.ListHoldsForAgent(r.Context(), mux.Vars(r)["agentID"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.holds(holds))
}

// GET /units/{unitID}/history
func (h *Handler) getUnitHistory(w http.ResponseWriter, r *http.Request) {
	changes, err := h.workflow.GetUnitHistory(r.Context(), mux.Vars(r)["unitID"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.history(changes))
}

// GET /deposits/{id}/commission
func (h *Handler) getCommission(w http.ResponseWriter, r *http.Request) {
	c, err := h.workflow.GetCommissionForDeposit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.commission(c))
}
