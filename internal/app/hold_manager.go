package app

import (
	"context"
	"fmt"
	"time"

	"github.com/landsales/salesops/internal/clock"
	"github.com/landsales/salesops/internal/domain"
)

const (
	defaultReservationWindow = 2 * time.Hour
	defaultBookingGrace      = 30 * time.Minute
)

// HoldManager creates and moves Reservation and Booking holds through their
// shared lifecycle. Every change also moves the unit through the Registry
// CAS inside the same transaction.
type HoldManager struct {
	repo              HoldRepository
	registry          *Registry
	clock             clock.Clock
	reservationWindow time.Duration
	bookingGrace      time.Duration
}

func NewHoldManager(repo HoldRepository, registry *Registry, clk clock.Clock, opts ...HoldManagerOption) *HoldManager {
	m := &HoldManager{
		repo:              repo,
		registry:          registry,
		clock:             clk,
		reservationWindow: defaultReservationWindow,
		bookingGrace:      defaultBookingGrace,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type HoldManagerOption func(*HoldManager)

// WithReservationWindow overrides how long a reservation stays active.
func WithReservationWindow(d time.Duration) HoldManagerOption {
	return func(m *HoldManager) {
		if d > 0 {
			m.reservationWindow = d
		}
	}
}

// WithBookingGrace overrides the grace period added to a booking's visit end.
func WithBookingGrace(d time.Duration) HoldManagerOption {
	return func(m *HoldManager) {
		if d >= 0 {
			m.bookingGrace = d
		}
	}
}

type CreateHoldInput struct {
	UnitID   string
	Actor    domain.Actor
	Type     domain.HoldType
	Customer domain.Customer
	Visit    *domain.VisitWindow
}

// expiryFor derives a hold's expiry from domain facts: the reservation window
// for reservations and the visit schedule for bookings.
func (m *HoldManager) expiryFor(t domain.HoldType, visit *domain.VisitWindow, now time.Time) (time.Time, error) {
	switch t {
	case domain.HoldTypeReservation:
		return now.Add(m.reservationWindow), nil
	case domain.HoldTypeBooking:
		if visit == nil || !visit.Valid() {
			return time.Time{}, domain.ErrInvalidVisitWindow
		}
		expiresAt := visit.End.Add(m.bookingGrace)
		if !expiresAt.After(now) {
			return time.Time{}, fmt.Errorf("%w: visit has already ended", domain.ErrInvalidVisitWindow)
		}
		return expiresAt, nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown hold type %q", domain.ErrInvalidTransition, t)
}

func (m *HoldManager) newHold(in CreateHoldInput, now time.Time) (domain.Hold, error) {
	if !in.Actor.Valid() {
		return domain.Hold{}, domain.ErrActorRequired
	}
	if !in.Customer.Valid() {
		return domain.Hold{}, domain.ErrCustomerRequired
	}
	expiresAt, err := m.expiryFor(in.Type, in.Visit, now)
	if err != nil {
		return domain.Hold{}, err
	}
	prefix := codePrefixReservation
	if in.Type == domain.HoldTypeBooking {
		prefix = codePrefixBooking
	}
	hold := domain.Hold{
		ID:        newUUID(),
		Code:      newCode(prefix),
		Type:      in.Type,
		UnitID:    in.UnitID,
		AgentID:   in.Actor.ID,
		Customer:  in.Customer,
		Status:    domain.InitialHoldStatus(in.Type),
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Type == domain.HoldTypeBooking {
		visit := *in.Visit
		hold.Visit = &visit
	}
	return hold, nil
}

// CreateHold claims an AVAILABLE unit. The availability check is the unit CAS
// itself: a unit observed AVAILABLE that changed before commit yields
// domain.ErrHoldConflict.
func (m *HoldManager) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	now := m.clock.Now()
	hold, err := m.newHold(in, now)
	if err != nil {
		return domain.Hold{}, err
	}

	unit, err := m.registry.GetUnit(ctx, in.UnitID)
	if err != nil {
		return domain.Hold{}, err
	}
	if unit.Removed() || unit.Status != domain.UnitStatusAvailable {
		return domain.Hold{}, unitNotAvailable(unit)
	}

	err = m.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := m.registry.SetStatus(txCtx, SetStatusInput{
			UnitID:   unit.ID,
			Observed: unit,
			To:       domain.UnitStatusReservedBooking,
			Actor:    in.Actor,
			Reason:   fmt.Sprintf("%s %s created", in.Type, hold.Code),
		}); err != nil {
			return err
		}
		open, err := m.repo.FindOpenHoldForUnit(txCtx, unit.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: %s %s", domain.ErrHoldAlreadyExists, open.Type, open.Code)
		}
		return m.repo.CreateHold(txCtx, hold)
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return hold, nil
}

// PromoteReservation turns the agent's active reservation into a booking
// pending approval. The reservation is completed and the unit stays held.
func (m *HoldManager) PromoteReservation(ctx context.Context, reservationID string, in CreateHoldInput) (domain.Hold, error) {
	now := m.clock.Now()
	reservation, err := m.repo.GetHold(ctx, reservationID)
	if err != nil {
		return domain.Hold{}, err
	}
	if reservation.Type != domain.HoldTypeReservation || reservation.Status != domain.HoldStatusActive {
		return domain.Hold{}, fmt.Errorf("%w: %s %s is %s", domain.ErrInvalidTransition, reservation.Type, reservation.Code, reservation.Status)
	}
	if reservation.AgentID != in.Actor.ID {
		return domain.Hold{}, fmt.Errorf("%w: unit is reserved by another agent", domain.ErrUnitNotAvailable)
	}
	if reservation.Expired(now) {
		return domain.Hold{}, fmt.Errorf("%w: reservation %s ended at %s", domain.ErrHoldExpired, reservation.Code, reservation.ExpiresAt.Format(time.RFC3339))
	}

	in.UnitID = reservation.UnitID
	in.Type = domain.HoldTypeBooking
	booking, err := m.newHold(in, now)
	if err != nil {
		return domain.Hold{}, err
	}

	unit, err := m.registry.GetUnit(ctx, reservation.UnitID)
	if err != nil {
		return domain.Hold{}, err
	}

	err = m.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := m.registry.SetStatus(txCtx, SetStatusInput{
			UnitID:   unit.ID,
			Observed: unit,
			To:       domain.UnitStatusReservedBooking,
			Actor:    in.Actor,
			Reason:   fmt.Sprintf("reservation %s promoted to booking %s", reservation.Code, booking.Code),
		}); err != nil {
			return err
		}
		if err := m.repo.UpdateHoldStatus(txCtx, reservation.ID, domain.HoldStatusActive, domain.HoldStatusCompleted, now); err != nil {
			return err
		}
		return m.repo.CreateHold(txCtx, booking)
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return booking, nil
}

// ApproveHold confirms a pending booking.
func (m *HoldManager) ApproveHold(ctx context.Context, holdID string, actor domain.Actor) (domain.Hold, error) {
	return m.transition(ctx, holdID, actor, transitionSpec{
		to:       domain.HoldStatusConfirmed,
		unitTo:   domain.UnitStatusReservedBooking,
		verb:     "approved",
		guard:    requireAdmin,
		checkAge: true,
	})
}

// CancelHold releases an open hold and reverts the unit to AVAILABLE.
func (m *HoldManager) CancelHold(ctx context.Context, holdID string, actor domain.Actor, reason string) (domain.Hold, error) {
	return m.transition(ctx, holdID, actor, transitionSpec{
		to:       domain.HoldStatusCancelled,
		unitTo:   domain.UnitStatusAvailable,
		verb:     "cancelled",
		note:     reason,
		guard:    requireOwner,
		checkAge: true,
	})
}

// ExpireHold converges a hold past its expiry to EXPIRED through the same CAS
// path as CancelHold.
func (m *HoldManager) ExpireHold(ctx context.Context, holdID string) (domain.Hold, error) {
	return m.transition(ctx, holdID, domain.SystemActor, transitionSpec{
		to:     domain.HoldStatusExpired,
		unitTo: domain.UnitStatusAvailable,
		verb:   "expired",
		guard: func(h domain.Hold, _ domain.Actor, now time.Time) error {
			if !h.Expired(now) {
				return fmt.Errorf("%w: %s %s has not expired", domain.ErrInvalidTransition, h.Type, h.Code)
			}
			return nil
		},
	})
}

// CompleteHold closes the hold as COMPLETED. It must run inside the caller's
// transaction, which is responsible for the unit CAS.
func (m *HoldManager) CompleteHold(ctx context.Context, hold domain.Hold) error {
	if !hold.CanTransition(domain.HoldStatusCompleted) {
		return fmt.Errorf("%w: %s %s is %s", domain.ErrInvalidTransition, hold.Type, hold.Code, hold.Status)
	}
	return m.repo.UpdateHoldStatus(ctx, hold.ID, hold.Status, domain.HoldStatusCompleted, m.clock.Now())
}

func (m *HoldManager) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	if id == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}
	return m.repo.GetHold(ctx, id)
}

type transitionSpec struct {
	to       domain.HoldStatus
	unitTo   domain.UnitStatus
	verb     string
	note     string
	guard    func(h domain.Hold, actor domain.Actor, now time.Time) error
	checkAge bool
}

func requireAdmin(_ domain.Hold, actor domain.Actor, _ time.Time) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin approval required", domain.ErrForbidden)
	}
	return nil
}

func requireOwner(h domain.Hold, actor domain.Actor, _ time.Time) error {
	if !actor.Owns(h.AgentID) {
		return fmt.Errorf("%w: %s %s belongs to another agent", domain.ErrForbidden, h.Type, h.Code)
	}
	return nil
}

func (m *HoldManager) transition(ctx context.Context, holdID string, actor domain.Actor, spec transitionSpec) (domain.Hold, error) {
	if !actor.Valid() {
		return domain.Hold{}, domain.ErrActorRequired
	}
	now := m.clock.Now()

	hold, err := m.GetHold(ctx, holdID)
	if err != nil {
		return domain.Hold{}, err
	}
	if spec.guard != nil {
		if err := spec.guard(hold, actor, now); err != nil {
			return domain.Hold{}, err
		}
	}
	if !hold.CanTransition(spec.to) {
		return domain.Hold{}, fmt.Errorf("%w: %s %s is %s", domain.ErrInvalidTransition, hold.Type, hold.Code, hold.Status)
	}
	if spec.checkAge && hold.Expired(now) {
		return domain.Hold{}, fmt.Errorf("%w: %s %s ended at %s", domain.ErrHoldExpired, hold.Type, hold.Code, hold.ExpiresAt.Format(time.RFC3339))
	}

	unit, err := m.registry.GetUnit(ctx, hold.UnitID)
	if err != nil {
		return domain.Hold{}, err
	}
	if unit.Status != domain.UnitStatusReservedBooking {
		return domain.Hold{}, fmt.Errorf("%w: unit %s is %s", domain.ErrInvalidTransition, unit.Code, unit.Status)
	}

	reason := fmt.Sprintf("%s %s %s", hold.Type, hold.Code, spec.verb)
	if spec.note != "" {
		reason += ": " + spec.note
	}

	err = m.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := m.registry.SetStatus(txCtx, SetStatusInput{
			UnitID:   unit.ID,
			Observed: unit,
			To:       spec.unitTo,
			Actor:    actor,
			Reason:   reason,
		}); err != nil {
			return err
		}
		return m.repo.UpdateHoldStatus(txCtx, hold.ID, hold.Status, spec.to, now)
	})
	if err != nil {
		return domain.Hold{}, err
	}

	hold.Status = spec.to
	hold.UpdatedAt = now
	return hold, nil
}
