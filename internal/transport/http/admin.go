package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/landsales/salesops/internal/app"
)

// GET /admin/projects/{projectID}/units
func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.inventory.ListUnits(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	resp := make([]unitResponse, 0, len(units))
	for _, u := range units {
		resp = append(resp, h.present.unit(u))
	}
	writeOK(w, http.StatusOK, resp)
}

// POST /admin/projects/{projectID}/units
func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := decodeJSON(r, h.validate, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	unit, err := h.inventory.CreateUnit(r.Context(), app.CreateUnitInput{
		ProjectID:      mux.Vars(r)["projectID"],
		BuildingID:     req.BuildingID,
		FloorID:        req.FloorID,
		Code:           req.Code,
		Price:          req.Price,
		CommissionRate: req.CommissionRate,
		Area:           req.Area,
		Bedrooms:       req.Bedrooms,
		Bathrooms:      req.Bathrooms,
		Direction:      req.Direction,
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.logger.WithField("unit_id", unit.ID).WithField("code", unit.Code).Info("unit created")
	writeOK(w, http.StatusCreated, h.present.unit(unit))
}

// PATCH /admin/units/{unitID}/commission-rate
func (h *Handler) updateCommissionRate(w http.ResponseWriter, r *http.Request) {
	var req updateCommissionRateRequest
	if err := decodeJSON(r, h.validate, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	unit, err := h.inventory.UpdateCommissionRate(r.Context(), mux.Vars(r)["unitID"], req.CommissionRate)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, h.present.unit(unit))
}

// DELETE /admin/units/{unitID}
func (h *Handler) removeUnit(w http.ResponseWriter, r *http.Request) {
	unitID := mux.Vars(r)["unitID"]
	if err := h.inventory.RemoveUnit(r.Context(), unitID); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]string{"id": unitID})
}
