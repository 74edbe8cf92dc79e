package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/landsales/salesops/internal/app"
	"github.com/landsales/salesops/internal/domain"
)

// POST /units/{unitID}/deposits
func (h *Handler) submitDeposit(w http.ResponseWriter, r *http.Request) {
	var req submitDepositRequest
	if err := decodeJSON(r, h.validate, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	dep, err := h.workflow.SubmitDeposit(r.Context(), app.SubmitDepositInput{
		UnitID:   mux.Vars(r)["unitID"],
		Actor:    actorFromRequest(r),
		Customer: req.Customer.toDomain(),
		Amount:   req.Amount,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusCreated, h.present.deposit(dep))
}

// POST /deposits/{id}/confirm
func (h *Handler) confirmDeposit(w http.ResponseWriter, r *http.Request) {
	h.depositCommand(w, r, h.workflow.ConfirmDeposit)
}

// POST /deposits/{id}/cancel
func (h *Handler) cancelDeposit(w http.ResponseWriter, r *http.Request) {
	h.depositCommand(w, r, h.workflow.CancelDeposit)
}

// POST /deposits/{id}/sold
func (h *Handler) markSold(w http.ResponseWriter, r *http.Request) {
	h.depositCommand(w, r, h.workflow.MarkSold)
}

func (h *Handler) depositCommand(w http.ResponseWriter, r *http.Request, cmd func(context.Context, string, domain.Actor) (domain.Deposit, error)) {
	dep, err := cmd(r.Context(), mux.Vars(r)["id"], actorFromRequest(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.deposit(dep))
}
