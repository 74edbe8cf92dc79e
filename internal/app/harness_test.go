package app

import (
	"testing"
	"time"

	"github.com/landsales/salesops/internal/clock"
	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	agentA  = domain.Actor{ID: "ctv-a", Role: domain.RoleAgent}
	agentB  = domain.Actor{ID: "ctv-b", Role: domain.RoleAgent}
	admin   = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	buyer   = domain.Customer{Name: "Nguyen Van An", Phone: "0901234567"}
	startAt = time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
)

type harness struct {
	store    *fakeStore
	clock    *clock.Manual
	events   *recordingPublisher
	registry *Registry
	holds    *HoldManager
	sweeper  *Sweeper
	workflow *Workflow
	admin    *AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newFakeStore()
	clk := clock.NewManual(startAt)
	events := &recordingPublisher{}
	logger := quietLogger()

	registry := NewRegistry(store, clk)
	holds := NewHoldManager(store, registry, clk,
		WithReservationWindow(2*time.Hour),
		WithBookingGrace(30*time.Minute),
	)
	sweeper := NewSweeper(store, holds, logger, clk, WithSweepPublisher(events), WithSweepBatch(2))
	workflow := NewWorkflow(WorkflowDeps{
		Registry:  registry,
		Holds:     holds,
		HoldRepo:  store,
		Deposits:  store,
		Sweeper:   sweeper,
		Publisher: events,
		Logger:    logger,
		Clock:     clk,
	})

	return &harness{
		store:    store,
		clock:    clk,
		events:   events,
		registry: registry,
		holds:    holds,
		sweeper:  sweeper,
		workflow: workflow,
		admin:    NewAdminService(store, clk),
	}
}

func (h *harness) addUnit(t *testing.T, code, rate string) domain.Unit {
	t.Helper()
	u := domain.Unit{
		ID:             newUUID(),
		ProjectID:      "project-1",
		Code:           code,
		Price:          decimal.NewFromInt(3_500_000_000),
		CommissionRate: decimal.RequireFromString(rate),
		Status:         domain.UnitStatusAvailable,
		Version:        1,
		CreatedAt:      h.clock.Now(),
		UpdatedAt:      h.clock.Now(),
	}
	h.store.putUnit(u)
	return u
}

func visitAt(day time.Time, startHour, endHour int) domain.VisitWindow {
	y, m, d := day.Date()
	return domain.VisitWindow{
		Start: time.Date(y, m, d, startHour, 0, 0, 0, time.UTC),
		End:   time.Date(y, m, d, endHour, 0, 0, 0, time.UTC),
	}
}
