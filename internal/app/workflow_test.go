package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/landsales/salesops/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_ReservationExpiresAfterTwoHours(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	unit := h.addUnit(t, "A-1201", "0.02")

	reservation, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
	require.NoError(t, err)
	assert.Equal(t, startAt.Add(2*time.Hour), reservation.ExpiresAt)

	view, err := h.workflow.GetUnitStatus(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageReserved, view.Stage)
	assert.Equal(t, domain.UnitStatusReservedBooking, view.Unit.Status)
	require.NotNil(t, view.Hold)
	assert.Equal(t, reservation.ID, view.Hold.ID)

	h.clock.Advance(2*time.Hour + time.Second)
	res, err := h.workflow.CheckExpiredReservations(ctx)
	require.NoError(t, err)
	require.Len(t, res.Expired, 1)
	assert.Equal(t, reservation.ID, res.Expired[0].ID)

	assert.Equal(t, domain.HoldStatusExpired, h.store.hold(reservation.ID).Status)
	assert.Equal(t, domain.UnitStatusAvailable, h.store.unit(unit.ID).Status)
	assert.Equal(t, []string{EventReservationCreated, EventHoldExpired}, h.events.types())

	again, err := h.workflow.CheckExpiredReservations(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Expired)
	assert.Equal(t, domain.HoldStatusExpired, h.store.hold(reservation.ID).Status)
}

func TestWorkflow_ConfirmedBookingExpiresAfterVisitGrace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	unit := h.addUnit(t, "A-1202", "0.02")
	visit := visitAt(startAt, 14, 15)

	booking, err := h.workflow.SubmitBooking(ctx, SubmitBookingInput{UnitID: unit.ID, Actor: agentA, Customer: buyer, Visit: visit})
	require.NoError(t, err)

	view, err := h.workflow.GetUnitStatus(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageBookingPending, view.Stage)

	_, err = h.workflow.ApproveBooking(ctx, booking.ID, admin)
	require.NoError(t, err)
	view, err = h.workflow.GetUnitStatus(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageBookingConfirmed, view.Stage)

	// Still held during the grace period.
	h.clock.Set(visit.End.Add(29 * time.Minute))
	res, err := h.workflow.CheckExpiredBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Expired)

	h.clock.Set(visit.End.Add(31 * time.Minute))
	res, err = h.workflow.CheckExpiredBookings(ctx)
	require.NoError(t, err)
	require.Len(t, res.Expired, 1)

	assert.Equal(t, domain.HoldStatusExpired, h.store.hold(booking.ID).Status)
	assert.Equal(t, domain.UnitStatusAvailable, h.store.unit(unit.ID).Status)
}

func TestWorkflow_SubmitBooking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	visit := visitAt(startAt, 14, 15)

	t.Run("promotes the agent's own reservation", func(t *testing.T) {
		h := newHarness(t)
		unit := h.addUnit(t, "B-1", "0.02")
		r, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)

		b, err := h.workflow.SubmitBooking(ctx, SubmitBookingInput{UnitID: unit.ID, Actor: agentA, Customer: buyer, Visit: visit})
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusPendingApproval, b.Status)
		assert.Equal(t, domain.HoldStatusCompleted, h.store.hold(r.ID).Status)
		assert.Equal(t, 1, h.store.openHolds(unit.ID))
	})

	t.Run("another agent's reservation blocks the unit", func(t *testing.T) {
		h := newHarness(t)
		unit := h.addUnit(t, "B-2", "0.02")
		_, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)

		_, err = h.workflow.SubmitBooking(ctx, SubmitBookingInput{UnitID: unit.ID, Actor: agentB, Customer: buyer, Visit: visit})
		require.ErrorIs(t, err, domain.ErrUnitNotAvailable)
	})

	t.Run("second booking by the same agent", func(t *testing.T) {
		h := newHarness(t)
		unit := h.addUnit(t, "B-3", "0.02")
		_, err := h.workflow.SubmitBooking(ctx, SubmitBookingInput{UnitID: unit.ID, Actor: agentA, Customer: buyer, Visit: visit})
		require.NoError(t, err)

		_, err = h.workflow.SubmitBooking(ctx, SubmitBookingInput{UnitID: unit.ID, Actor: agentA, Customer: buyer, Visit: visit})
		require.ErrorIs(t, err, domain.ErrHoldAlreadyExists)
		assert.Equal(t, domain.KindHoldAlreadyExists, domain.KindOf(err))
	})

	t.Run("expired reservation frees the unit for anyone", func(t *testing.T) {
		h := newHarness(t)
		unit := h.addUnit(t, "B-4", "0.02")
		r, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)
		h.clock.Advance(2 * time.Hour)

		b, err := h.workflow.SubmitBooking(ctx, SubmitBookingInput{UnitID: unit.ID, Actor: agentB, Customer: buyer, Visit: visit})
		require.NoError(t, err)
		assert.Equal(t, agentB.ID, b.AgentID)
		assert.Equal(t, domain.HoldStatusExpired, h.store.hold(r.ID).Status)
	})

	t.Run("unknown unit", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.workflow.SubmitBooking(ctx, SubmitBookingInput{UnitID: "nope", Actor: agentA, Customer: buyer, Visit: visit})
		require.ErrorIs(t, err, domain.ErrUnitNotFound)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

func TestWorkflow_RejectAndCancelBooking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	visit := visitAt(startAt, 14, 15)

	setup := func(t *testing.T) (*harness, domain.Hold) {
		h := newHarness(t)
		unit := h.addUnit(t, "C-1", "0.02")
		b, err := h.workflow.SubmitBooking(ctx, SubmitBookingInput{UnitID: unit.ID, Actor: agentA, Customer: buyer, Visit: visit})
		require.NoError(t, err)
		return h, b
	}

	t.Run("agents cannot reject", func(t *testing.T) {
		h, b := setup(t)
		_, err := h.workflow.RejectBooking(ctx, b.ID, agentA, "")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("admin rejects a confirmed booking", func(t *testing.T) {
		h, b := setup(t)
		_, err := h.workflow.ApproveBooking(ctx, b.ID, admin)
		require.NoError(t, err)

		rejected, err := h.workflow.RejectBooking(ctx, b.ID, admin, "documents missing")
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusCancelled, rejected.Status)
		assert.Equal(t, domain.UnitStatusAvailable, h.store.unit(b.UnitID).Status)
		assert.Equal(t, []string{EventBookingSubmitted, EventBookingConfirmed, EventBookingRejected}, h.events.types())
	})

	t.Run("owner cancels", func(t *testing.T) {
		h, b := setup(t)
		cancelled, err := h.workflow.CancelBooking(ctx, b.ID, agentA)
		require.NoError(t, err)
		assert.Equal(t, domain.HoldStatusCancelled, cancelled.Status)

		_, err = h.workflow.CancelBooking(ctx, b.ID, agentA)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("booking commands refuse reservations", func(t *testing.T) {
		h := newHarness(t)
		unit := h.addUnit(t, "C-2", "0.02")
		r, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)

		_, err = h.workflow.ApproveBooking(ctx, r.ID, admin)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		_, err = h.workflow.CancelBooking(ctx, r.ID, agentA)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("reservation commands refuse bookings", func(t *testing.T) {
		h, b := setup(t)
		_, err := h.workflow.CancelReservation(ctx, b.ID, agentA)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestWorkflow_CancelReservation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	unit := h.addUnit(t, "D-1", "0.02")

	r, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
	require.NoError(t, err)

	_, err = h.workflow.CancelReservation(ctx, r.ID, agentB)
	require.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := h.workflow.CancelReservation(ctx, r.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.UnitStatusAvailable, h.store.unit(unit.ID).Status)

	_, err = h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentB, Customer: buyer})
	require.NoError(t, err)
}

func TestWorkflow_ConcurrentReserve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	unit := h.addUnit(t, "E-1", "0.02")

	ready := make(chan struct{})
	arrived := make(chan struct{}, 2)
	h.store.afterGetUnit = func(string) {
		arrived <- struct{}{}
		<-ready
	}

	results := make(chan error, 2)
	for _, actor := range []domain.Actor{agentA, agentB} {
		go func(actor domain.Actor) {
			_, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: actor, Customer: buyer})
			results <- err
		}(actor)
	}
	<-arrived
	<-arrived
	close(ready)

	var kinds []domain.ErrorKind
	for i := 0; i < 2; i++ {
		kinds = append(kinds, domain.KindOf(<-results))
	}
	assert.ElementsMatch(t, []domain.ErrorKind{"", domain.KindHoldConflict}, kinds)
	assert.Equal(t, 1, h.store.openHolds(unit.ID))
	assert.Equal(t, []string{EventReservationCreated}, h.events.types())
}

func TestWorkflow_Queries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unit status converges a stale hold", func(t *testing.T) {
		h := newHarness(t)
		unit := h.addUnit(t, "F-1", "0.02")
		_, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)

		h.clock.Advance(3 * time.Hour)
		view, err := h.workflow.GetUnitStatus(ctx, unit.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageAvailable, view.Stage)
		assert.Equal(t, domain.UnitStatusAvailable, view.Unit.Status)
		assert.Nil(t, view.Hold)
	})

	t.Run("holds for unit newest first", func(t *testing.T) {
		h := newHarness(t)
		unit := h.addUnit(t, "F-2", "0.02")
		first, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)
		h.clock.Advance(2 * time.Hour)

		holds, err := h.workflow.ListHoldsForUnit(ctx, unit.ID)
		require.NoError(t, err)
		require.Len(t, holds, 1)
		assert.Equal(t, domain.HoldStatusExpired, holds[0].Status)

		second, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentB, Customer: buyer})
		require.NoError(t, err)
		holds, err = h.workflow.ListHoldsForUnit(ctx, unit.ID)
		require.NoError(t, err)
		require.Len(t, holds, 2)
		assert.Equal(t, second.ID, holds[0].ID)
		assert.Equal(t, first.ID, holds[1].ID)

		_, err = h.workflow.ListHoldsForUnit(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrUnitNotFound)
	})

	t.Run("holds for agent never shows a stale active hold", func(t *testing.T) {
		h := newHarness(t)
		u1 := h.addUnit(t, "F-3", "0.02")
		u2 := h.addUnit(t, "F-4", "0.02")
		_, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: u1.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)
		h.clock.Advance(time.Hour)
		_, err = h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: u2.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)
		h.clock.Advance(90 * time.Minute)

		holds, err := h.workflow.ListHoldsForAgent(ctx, agentA.ID)
		require.NoError(t, err)
		require.Len(t, holds, 2)
		assert.Equal(t, domain.HoldStatusActive, holds[0].Status)
		assert.Equal(t, domain.HoldStatusExpired, holds[1].Status)

		none, err := h.workflow.ListHoldsForAgent(ctx, agentB.ID)
		require.NoError(t, err)
		assert.Empty(t, none)

		_, err = h.workflow.ListHoldsForAgent(ctx, "")
		require.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("history records every transition", func(t *testing.T) {
		h := newHarness(t)
		unit := h.addUnit(t, "F-5", "0.02")
		r, err := h.workflow.ReserveUnit(ctx, ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
		require.NoError(t, err)
		_, err = h.workflow.CancelReservation(ctx, r.ID, agentA)
		require.NoError(t, err)

		history, err := h.workflow.GetUnitHistory(ctx, unit.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, domain.UnitStatusReservedBooking, history[0].To)
		assert.Equal(t, domain.UnitStatusAvailable, history[1].To)
		assert.Equal(t, history[0].Version+1, history[1].Version)
	})
}

func TestWorkflow_PublishFailureDoesNotFailCommand(t *testing.T) {
	h := newHarness(t)
	h.events.err = errors.New("broker down")
	unit := h.addUnit(t, "G-1", "0.02")

	hold, err := h.workflow.ReserveUnit(context.Background(), ReserveUnitInput{UnitID: unit.ID, Actor: agentA, Customer: buyer})
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStatusActive, h.store.hold(hold.ID).Status)
	assert.Equal(t, []string{EventReservationCreated}, h.events.types())
}
