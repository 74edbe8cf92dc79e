package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/landsales/salesops/internal/app"
	"github.com/landsales/salesops/internal/domain"
)

// POST /units/{unitID}/reservations
func (h *Handler) reserveUnit(w http.ResponseWriter, r *http.Request) {
	var req reserveUnitRequest
	if err := decodeJSON(r, h.validate, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	hold, err := h.workflow.ReserveUnit(r.Context(), app.ReserveUnitInput{
		UnitID:   mux.Vars(r)["unitID"],
		Actor:    actorFromRequest(r),
		Customer: req.Customer.toDomain(),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusCreated, h.present.hold(hold))
}

// POST /units/{unitID}/bookings
func (h *Handler) submitBooking(w http.ResponseWriter, r *http.Request) {
	var req submitBookingRequest
	if err := decodeJSON(r, h.validate, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	hold, err := h.workflow.SubmitBooking(r.Context(), app.SubmitBookingInput{
		UnitID:   mux.Vars(r)["unitID"],
		Actor:    actorFromRequest(r),
		Customer: req.Customer.toDomain(),
		Visit:    domain.VisitWindow{Start: req.VisitStart, End: req.VisitEnd},
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusCreated, h.present.hold(hold))
}

// POST /bookings/{id}/approve
func (h *Handler) approveBooking(w http.ResponseWriter, r *http.Request) {
	h.holdCommand(w, r, h.workflow.ApproveBooking)
}

// POST /bookings/{id}/reject
func (h *Handler) rejectBooking(w http.ResponseWriter, r *http.Request) {
	var req rejectBookingRequest
	if err := decodeJSON(r, h.validate, &req, true); err != nil {
		writeDecodeError(w, err)
		return
	}

	hold, err := h.workflow.RejectBooking(r.Context(), mux.Vars(r)["id"], actorFromRequest(r), req.Reason)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.hold(hold))
}

// POST /bookings/{id}/cancel
func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	h.holdCommand(w, r, h.workflow.CancelBooking)
}

// POST /reservations/{id}/cancel
func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	h.holdCommand(w, r, h.workflow.CancelReservation)
}

// POST /holds/expire/bookings
func (h *Handler) expireBookings(w http.ResponseWriter, r *http.Request) {
	res, err := h.workflow.CheckExpiredBookings(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.sweep(res))
}

// POST /holds/expire/reservations
func (h *Handler) expireReservations(w http.ResponseWriter, r *http.Request) {
	res, err := h.workflow.CheckExpiredReservations(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.sweep(res))
}

type holdCommandFunc func(ctx context.Context, id string, actor domain.Actor) (domain.Hold, error)

func (h *Handler) holdCommand(w http.ResponseWriter, r *http.Request, cmd holdCommandFunc) {
	hold, err := cmd(r.Context(), mux.Vars(r)["id"], actorFromRequest(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.hold(hold))
}
