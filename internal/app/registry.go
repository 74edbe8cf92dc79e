package app

import (
	"context"
	"fmt"

	"github.com/landsales/salesops/internal/clock"
	"github.com/landsales/salesops/internal/domain"
)

// Registry is the canonical record of units and the only writer of unit status.
type Registry struct {
	repo  UnitRepository
	clock clock.Clock
}

func NewRegistry(repo UnitRepository, clk clock.Clock) *Registry {
	return &Registry{repo: repo, clock: clk}
}

func (r *Registry) GetUnit(ctx context.Context, id string) (domain.Unit, error) {
	if id == "" {
		return domain.Unit{}, domain.ErrInvalidID
	}
	return r.repo.GetUnit(ctx, id)
}

type SetStatusInput struct {
	UnitID string
	// Observed is the unit as the caller last read it; its Status and Version
	// form the compare-and-swap token.
	Observed domain.Unit
	To       domain.UnitStatus
	Actor    domain.Actor
	Reason   string
}

// SetStatus performs the unit CAS and writes the audit row in the same
// transaction. A lost race returns domain.ErrHoldConflict and is never retried.
func (r *Registry) SetStatus(ctx context.Context, in SetStatusInput) (domain.Unit, error) {
	if !in.Actor.Valid() {
		return domain.Unit{}, domain.ErrActorRequired
	}
	now := r.clock.Now()

	var updated domain.Unit
	err := r.repo.WithTx(ctx, func(txCtx context.Context) error {
		unit, err := r.repo.CompareAndSetStatus(txCtx, in.UnitID, in.Observed.Status, in.Observed.Version, in.To, now)
		if err != nil {
			return err
		}
		change := domain.StatusChange{
			ID:        newUUID(),
			UnitID:    unit.ID,
			From:      in.Observed.Status,
			To:        in.To,
			ActorID:   in.Actor.ID,
			Reason:    in.Reason,
			Version:   unit.Version,
			ChangedAt: now,
		}
		if err := r.repo.AppendStatusChange(txCtx, change); err != nil {
			return fmt.Errorf("audit status change: %w", err)
		}
		updated = unit
		return nil
	})
	if err != nil {
		return domain.Unit{}, err
	}
	return updated, nil
}

// History returns the audit trail of a unit, oldest first.
func (r *Registry) History(ctx context.Context, unitID string) ([]domain.StatusChange, error) {
	if _, err := r.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	return r.repo.ListStatusChanges(ctx, unitID)
}

// unitNotAvailable builds a caller-facing reason for a unit that cannot be held.
func unitNotAvailable(unit domain.Unit) error {
	if unit.Removed() {
		return fmt.Errorf("%w: unit %s has been removed from sale", domain.ErrUnitNotAvailable, unit.Code)
	}
	switch unit.Status {
	case domain.UnitStatusReservedBooking:
		return fmt.Errorf("%w: unit %s is already held by another agent", domain.ErrUnitNotAvailable, unit.Code)
	case domain.UnitStatusDeposited:
		return fmt.Errorf("%w: unit %s already has a confirmed deposit", domain.ErrUnitNotAvailable, unit.Code)
	case domain.UnitStatusSold:
		return fmt.Errorf("%w: unit %s is sold", domain.ErrUnitNotAvailable, unit.Code)
	}
	return fmt.Errorf("%w: unit %s", domain.ErrUnitNotAvailable, unit.Code)
}
