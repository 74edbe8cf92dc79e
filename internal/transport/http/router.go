package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/landsales/salesops/internal/app"
	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Workflow is the command and query surface the handlers need.
type Workflow interface {
	ReserveUnit(ctx context.Context, in app.ReserveUnitInput) (domain.Hold, error)
	SubmitBooking(ctx context.Context, in app.SubmitBookingInput) (domain.Hold, error)
	ApproveBooking(ctx context.Context, bookingID string, actor domain.Actor) (domain.Hold, error)
	RejectBooking(ctx context.Context, bookingID string, actor domain.Actor, reason string) (domain.Hold, error)
	CancelBooking(ctx context.Context, bookingID string, actor domain.Actor) (domain.Hold, error)
	CancelReservation(ctx context.Context, reservationID string, actor domain.Actor) (domain.Hold, error)
	CheckExpiredBookings(ctx context.Context) (app.SweepResult, error)
	CheckExpiredReservations(ctx context.Context) (app.SweepResult, error)

	SubmitDeposit(ctx context.Context, in app.SubmitDepositInput) (domain.Deposit, error)
	ConfirmDeposit(ctx context.Context, depositID string, actor domain.Actor) (domain.Deposit, error)
	MarkSold(ctx context.Context, depositID string, actor domain.Actor) (domain.Deposit, error)
	CancelDeposit(ctx context.Context, depositID string, actor domain.Actor) (domain.Deposit, error)

	GetUnitStatus(ctx context.Context, unitID string) (app.UnitStatusView, error)
	ListHoldsForUnit(ctx context.Context, unitID string) ([]domain.Hold, error)
	ListHoldsForAgent(ctx context.Context, agentID string) ([]domain.Hold, error)
	GetCommissionForDeposit(ctx context.Context, depositID string) (domain.Commission, error)
	GetUnitHistory(ctx context.Context, unitID string) ([]domain.StatusChange, error)
}

// Inventory is the admin surface over units.
type Inventory interface {
	CreateUnit(ctx context.Context, in app.CreateUnitInput) (domain.Unit, error)
	ListUnits(ctx context.Context, projectID string) ([]domain.Unit, error)
	UpdateCommissionRate(ctx context.Context, unitID string, rate decimal.Decimal) (domain.Unit, error)
	RemoveUnit(ctx context.Context, unitID string) error
}

type Handler struct {
	workflow  Workflow
	inventory Inventory
	validate  *validator.Validate
	logger    *logrus.Logger
	present   presenter
}

// NewHandler builds the REST adapter. Timestamps in responses are rendered
// in loc; a nil loc means UTC.
func NewHandler(workflow Workflow, inventory Inventory, logger *logrus.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		workflow:  workflow,
		inventory: inventory,
		validate:  validator.New(),
		logger:    logger,
		present:   presenter{loc: loc},
	}
}

// Routes registers every endpoint on a new router.
func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = NotFoundHandler()
	router.MethodNotAllowedHandler = MethodNotAllowedHandler()

	router.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)

	router.HandleFunc("/units/{unitID}/reservations", h.reserveUnit).Methods(http.MethodPost)
	router.HandleFunc("/units/{unitID}/bookings", h.submitBooking).Methods(http.MethodPost)
	router.HandleFunc("/units/{unitID}/deposits", h.submitDeposit).Methods(http.MethodPost)
	router.HandleFunc("/units/{unitID}/status", h.getUnitStatus).Methods(http.MethodGet)
	router.HandleFunc("/units/{unitID}/holds", h.listUnitHolds).Methods(http.MethodGet)
	router.HandleFunc("/units/{unitID}/history", h.getUnitHistory).Methods(http.MethodGet)

	router.HandleFunc("/bookings/{id}/approve", h.approveBooking).Methods(http.MethodPost)
	router.HandleFunc("/bookings/{id}/reject", h.rejectBooking).Methods(http.MethodPost)
	router.HandleFunc("/bookings/{id}/cancel", h.cancelBooking).Methods(http.MethodPost)
	router.HandleFunc("/reservations/{id}/cancel", h.cancelReservation).Methods(http.MethodPost)

	router.HandleFunc("/deposits/{id}/confirm", h.confirmDeposit).Methods(http.MethodPost)
	router.HandleFunc("/deposits/{id}/cancel", h.cancelDeposit).Methods(http.MethodPost)
	router.HandleFunc("/deposits/{id}/sold", h.markSold).Methods(http.MethodPost)
	router.HandleFunc("/deposits/{id}/commission", h.getCommission).Methods(http.MethodGet)

	router.HandleFunc("/holds/expire/bookings", h.expireBookings).Methods(http.MethodPost)
	router.HandleFunc("/holds/expire/reservations", h.expireReservations).Methods(http.MethodPost)

	router.HandleFunc("/agents/{agentID}/holds", h.listAgentHolds).Methods(http.MethodGet)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(requireAdmin)
	admin.HandleFunc("/projects/{projectID}/units", h.listUnits).Methods(http.MethodGet)
	admin.HandleFunc("/projects/{projectID}/units", h.createUnit).Methods(http.MethodPost)
	admin.HandleFunc("/units/{unitID}/commission-rate", h.updateCommissionRate).Methods(http.MethodPatch)
	admin.HandleFunc("/units/{unitID}", h.removeUnit).Methods(http.MethodDelete)

	return router
}
