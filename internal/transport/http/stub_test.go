package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/landsales/salesops/internal/app"
	"github.com/landsales/salesops/internal/domain"
	"github.com/landsales/salesops/internal/logging"
	"github.com/shopspring/decimal"
)

// stubWorkflow records the last call and returns canned results.
type stubWorkflow struct {
	err error

	hold       domain.Hold
	deposit    domain.Deposit
	view       app.UnitStatusView
	holds      []domain.Hold
	commission domain.Commission
	history    []domain.StatusChange
	sweep      app.SweepResult

	calls      []string
	lastID     string
	lastActor  domain.Actor
	lastReason string
	reserveIn  app.ReserveUnitInput
	bookingIn  app.SubmitBookingInput
	depositIn  app.SubmitDepositInput
}

func (s *stubWorkflow) record(name, id string, actor domain.Actor) {
	s.calls = append(s.calls, name)
	s.lastID = id
	s.lastActor = actor
}

func (s *stubWorkflow) ReserveUnit(_ context.Context, in app.ReserveUnitInput) (domain.Hold, error) {
	s.record("ReserveUnit", in.UnitID, in.Actor)
	s.reserveIn = in
	return s.hold, s.err
}

func (s *stubWorkflow) SubmitBooking(_ context.Context, in app.SubmitBookingInput) (domain.Hold, error) {
	s.record("SubmitBooking", in.UnitID, in.Actor)
	s.bookingIn = in
	return s.hold, s.err
}

func (s *stubWorkflow) ApproveBooking(_ context.Context, id string, actor domain.Actor) (domain.Hold, error) {
	s.record("ApproveBooking", id, actor)
	return s.hold, s.err
}

func (s *stubWorkflow) RejectBooking(_ context.Context, id string, actor domain.Actor, reason string) (domain.Hold, error) {
	s.record("RejectBooking", id, actor)
	s.lastReason = reason
	return s.hold, s.err
}

func (s *stubWorkflow) CancelBooking(_ context.Context, id string, actor domain.Actor) (domain.Hold, error) {
	s.record("CancelBooking", id, actor)
	return s.hold, s.err
}

func (s *stubWorkflow) CancelReservation(_ context.Context, id string, actor domain.Actor) (domain.Hold, error) {
	s.record("CancelReservation", id, actor)
	return s.hold, s.err
}

func (s *stubWorkflow) CheckExpiredBookings(context.Context) (app.SweepResult, error) {
	s.record("CheckExpiredBookings", "", domain.Actor{})
	return s.sweep, s.err
}

func (s *stubWorkflow) CheckExpiredReservations(context.Context) (app.SweepResult, error) {
	s.record("CheckExpiredReservations", "", domain.Actor{})
	return s.sweep, s.err
}

func (s *stubWorkflow) SubmitDeposit(_ context.Context, in app.SubmitDepositInput) (domain.Deposit, error) {
	s.record("SubmitDeposit", in.UnitID, in.Actor)
	s.depositIn = in
	return s.deposit, s.err
}

func (s *stubWorkflow) ConfirmDeposit(_ context.Context, id string, actor domain.Actor) (domain.Deposit, error) {
	s.record("ConfirmDeposit", id, actor)
	return s.deposit, s.err
}

func (s *stubWorkflow) MarkSold(_ context.Context, id string, actor domain.Actor) (domain.Deposit, error) {
	s.record("MarkSold", id, actor)
	return s.deposit, s.err
}

func (s *stubWorkflow) CancelDeposit(_ context.Context, id string, actor domain.Actor) (domain.Deposit, error) {
	s.record("CancelDeposit", id, actor)
	return s.deposit, s.err
}

func (s *stubWorkflow) GetUnitStatus(_ context.Context, unitID string) (app.UnitStatusView, error) {
	s.record("GetUnitStatus", unitID, domain.Actor{})
	return s.view, s.err
}

func (s *stubWorkflow) ListHoldsForUnit(_ context.Context, unitID string) ([]domain.Hold, error) {
	s.record("ListHoldsForUnit", unitID, domain.Actor{})
	return s.holds, s.err
}

func (s *stubWorkflow) ListHoldsForAgent(_ context.Context, agentID string) ([]domain.Hold, error) {
	s.record("ListHoldsForAgent", agentID, domain.Actor{})
	return s.holds, s.err
}

func (s *stubWorkflow) GetCommissionForDeposit(_ context.Context, depositID string) (domain.Commission, error) {
	s.record("GetCommissionForDeposit", depositID, domain.Actor{})
	return s.commission, s.err
}

func (s *stubWorkflow) GetUnitHistory(_ context.Context, unitID string) ([]domain.StatusChange, error) {
	s.record("GetUnitHistory", unitID, domain.Actor{})
	return s.history, s.err
}

type stubInventory struct {
	err      error
	unit     domain.Unit
	units    []domain.Unit
	createIn app.CreateUnitInput
	rate     decimal.Decimal
	removed  string
}

func (s *stubInventory) CreateUnit(_ context.Context, in app.CreateUnitInput) (domain.Unit, error) {
	s.createIn = in
	return s.unit, s.err
}

func (s *stubInventory) ListUnits(context.Context, string) ([]domain.Unit, error) {
	return s.units, s.err
}

func (s *stubInventory) UpdateCommissionRate(_ context.Context, _ string, rate decimal.Decimal) (domain.Unit, error) {
	s.rate = rate
	return s.unit, s.err
}

func (s *stubInventory) RemoveUnit(_ context.Context, unitID string) error {
	s.removed = unitID
	return s.err
}

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newTestRouter(t *testing.T, wf *stubWorkflow, inv *stubInventory) http.Handler {
	t.Helper()
	if wf == nil {
		wf = &stubWorkflow{}
	}
	if inv == nil {
		inv = &stubInventory{}
	}
	return NewHandler(wf, inv, logging.Discard(), testLocation(t)).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func agentHeaders(id string) map[string]string {
	return map[string]string{headerActorID: id, headerActorRole: "agent"}
}

func adminHeaders() map[string]string {
	return map[string]string{headerActorID: "admin-1", headerActorRole: "admin"}
}
