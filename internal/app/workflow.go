package app

import (
	"context"
	"fmt"

	"github.com/landsales/salesops/internal/clock"
	"github.com/landsales/salesops/internal/domain"
	"github.com/sirupsen/logrus"
)

// Workflow is the transaction state machine that moves a unit through
// reservation, booking, deposit and sale.
type Workflow struct {
	registry  *Registry
	holds     *HoldManager
	holdRepo  HoldRepository
	deposits  DepositRepository
	sweeper   *Sweeper
	publisher EventPublisher
	logger    *logrus.Logger
	clock     clock.Clock
}

type WorkflowDeps struct {
	Registry  *Registry
	Holds     *HoldManager
	HoldRepo  HoldRepository
	Deposits  DepositRepository
	Sweeper   *Sweeper
	Publisher EventPublisher
	Logger    *logrus.Logger
	Clock     clock.Clock
}

func NewWorkflow(deps WorkflowDeps) *Workflow {
	pub := deps.Publisher
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Workflow{
		registry:  deps.Registry,
		holds:     deps.Holds,
		holdRepo:  deps.HoldRepo,
		deposits:  deps.Deposits,
		sweeper:   deps.Sweeper,
		publisher: pub,
		logger:    deps.Logger,
		clock:     deps.Clock,
	}
}

type ReserveUnitInput struct {
	UnitID   string
	Actor    domain.Actor
	Customer domain.Customer
}

// ReserveUnit moves an AVAILABLE unit to RESERVED.
func (w *Workflow) ReserveUnit(ctx context.Context, in ReserveUnitInput) (domain.Hold, error) {
	if err := w.sweeper.ConvergeUnit(ctx, in.UnitID); err != nil {
		return domain.Hold{}, err
	}
	hold, err := w.holds.CreateHold(ctx, CreateHoldInput{
		UnitID:   in.UnitID,
		Actor:    in.Actor,
		Type:     domain.HoldTypeReservation,
		Customer: in.Customer,
	})
	if err != nil {
		return domain.Hold{}, err
	}
	w.holdEvent(ctx, EventReservationCreated, hold, in.Actor)
	return hold, nil
}

type SubmitBookingInput struct {
	UnitID   string
	Actor    domain.Actor
	Customer domain.Customer
	Visit    domain.VisitWindow
}

// SubmitBooking creates a booking pending approval. A unit reserved by the
// same agent has its reservation promoted; an AVAILABLE unit is claimed
// directly.
func (w *Workflow) SubmitBooking(ctx context.Context, in SubmitBookingInput) (domain.Hold, error) {
	if err := w.sweeper.ConvergeUnit(ctx, in.UnitID); err != nil {
		return domain.Hold{}, err
	}
	unit, err := w.registry.GetUnit(ctx, in.UnitID)
	if err != nil {
		return domain.Hold{}, err
	}

	holdIn := CreateHoldInput{
		UnitID:   in.UnitID,
		Actor:    in.Actor,
		Type:     domain.HoldTypeBooking,
		Customer: in.Customer,
		Visit:    &in.Visit,
	}

	var booking domain.Hold
	switch {
	case unit.Removed():
		return domain.Hold{}, unitNotAvailable(unit)
	case unit.Status == domain.UnitStatusAvailable:
		booking, err = w.holds.CreateHold(ctx, holdIn)
	case unit.Status == domain.UnitStatusReservedBooking:
		open, findErr := w.holdRepo.FindOpenHoldForUnit(ctx, unit.ID)
		if findErr != nil {
			return domain.Hold{}, findErr
		}
		switch {
		case open == nil:
			return domain.Hold{}, fmt.Errorf("%w: a deposit is in progress on unit %s", domain.ErrUnitNotAvailable, unit.Code)
		case open.AgentID != in.Actor.ID:
			return domain.Hold{}, unitNotAvailable(unit)
		case open.Type == domain.HoldTypeBooking:
			return domain.Hold{}, fmt.Errorf("%w: booking %s is already %s", domain.ErrHoldAlreadyExists, open.Code, open.Status)
		}
		booking, err = w.holds.PromoteReservation(ctx, open.ID, holdIn)
	default:
		return domain.Hold{}, unitNotAvailable(unit)
	}
	if err != nil {
		return domain.Hold{}, err
	}

	w.holdEvent(ctx, EventBookingSubmitted, booking, in.Actor)
	return booking, nil
}

// ApproveBooking is the admin confirmation of a pending booking.
func (w *Workflow) ApproveBooking(ctx context.Context, bookingID string, actor domain.Actor) (domain.Hold, error) {
	if err := w.requireBooking(ctx, bookingID); err != nil {
		return domain.Hold{}, err
	}
	hold, err := w.holds.ApproveHold(ctx, bookingID, actor)
	if err != nil {
		return domain.Hold{}, err
	}
	w.holdEvent(ctx, EventBookingConfirmed, hold, actor)
	return hold, nil
}

// RejectBooking is the admin refusal of a pending or confirmed booking.
func (w *Workflow) RejectBooking(ctx context.Context, bookingID string, actor domain.Actor, reason string) (domain.Hold, error) {
	if !actor.IsAdmin() {
		return domain.Hold{}, fmt.Errorf("%w: only admins can reject bookings", domain.ErrForbidden)
	}
	if err := w.requireBooking(ctx, bookingID); err != nil {
		return domain.Hold{}, err
	}
	if reason == "" {
		reason = "rejected by admin"
	}
	hold, err := w.holds.CancelHold(ctx, bookingID, actor, reason)
	if err != nil {
		return domain.Hold{}, err
	}
	w.holdEvent(ctx, EventBookingRejected, hold, actor)
	return hold, nil
}

// CancelBooking releases a booking on behalf of its agent or an admin.
func (w *Workflow) CancelBooking(ctx context.Context, bookingID string, actor domain.Actor) (domain.Hold, error) {
	if err := w.requireBooking(ctx, bookingID); err != nil {
		return domain.Hold{}, err
	}
	hold, err := w.holds.CancelHold(ctx, bookingID, actor, "")
	if err != nil {
		return domain.Hold{}, err
	}
	w.holdEvent(ctx, EventBookingCancelled, hold, actor)
	return hold, nil
}

// CancelReservation releases a reservation on behalf of its agent or an admin.
func (w *Workflow) CancelReservation(ctx context.Context, reservationID string, actor domain.Actor) (domain.Hold, error) {
	hold, err := w.holds.GetHold(ctx, reservationID)
	if err != nil {
		return domain.Hold{}, err
	}
	if hold.Type != domain.HoldTypeReservation {
		return domain.Hold{}, fmt.Errorf("%w: %s is not a reservation", domain.ErrInvalidTransition, hold.Code)
	}
	hold, err = w.holds.CancelHold(ctx, reservationID, actor, "")
	if err != nil {
		return domain.Hold{}, err
	}
	w.holdEvent(ctx, EventReservationCancelled, hold, actor)
	return hold, nil
}

// CheckExpiredBookings is the on-demand sweep for bookings.
func (w *Workflow) CheckExpiredBookings(ctx context.Context) (SweepResult, error) {
	return w.sweeper.ExpireBookings(ctx)
}

// CheckExpiredReservations is the on-demand sweep for reservations.
func (w *Workflow) CheckExpiredReservations(ctx context.Context) (SweepResult, error) {
	return w.sweeper.ExpireReservations(ctx)
}

func (w *Workflow) requireBooking(ctx context.Context, holdID string) error {
	hold, err := w.holds.GetHold(ctx, holdID)
	if err != nil {
		return err
	}
	if hold.Type != domain.HoldTypeBooking {
		return fmt.Errorf("%w: %s is not a booking", domain.ErrInvalidTransition, hold.Code)
	}
	return nil
}

func (w *Workflow) holdEvent(ctx context.Context, eventType string, hold domain.Hold, actor domain.Actor) {
	w.logger.WithFields(logrus.Fields{
		"event":   eventType,
		"unit_id": hold.UnitID,
		"hold_id": hold.ID,
		"status":  hold.Status,
		"actor":   actor.ID,
	}).Info("hold transition committed")

	publish(ctx, w.publisher, w.logger, LifecycleEvent{
		Type:       eventType,
		UnitID:     hold.UnitID,
		HoldID:     hold.ID,
		AgentID:    hold.AgentID,
		ActorID:    actor.ID,
		Status:     string(hold.Status),
		OccurredAt: w.clock.Now(),
	})
}
