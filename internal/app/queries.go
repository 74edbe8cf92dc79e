package app

import (
	"context"

	"github.com/landsales/salesops/internal/domain"
)

// UnitStatusView is the read model returned by GetUnitStatus.
type UnitStatusView struct {
	Unit    domain.Unit
	Stage   domain.Stage
	Hold    *domain.Hold
	Deposit *domain.Deposit
}

// GetUnitStatus converges the unit's expiry first, then reports its stage.
func (w *Workflow) GetUnitStatus(ctx context.Context, unitID string) (UnitStatusView, error) {
	if unitID == "" {
		return UnitStatusView{}, domain.ErrInvalidID
	}
	unit, err := w.registry.GetUnit(ctx, unitID)
	if err != nil {
		return UnitStatusView{}, err
	}
	if err := w.sweeper.ConvergeUnit(ctx, unitID); err != nil {
		return UnitStatusView{}, err
	}
	if unit, err = w.registry.GetUnit(ctx, unitID); err != nil {
		return UnitStatusView{}, err
	}

	hold, err := w.holdRepo.FindOpenHoldForUnit(ctx, unitID)
	if err != nil {
		return UnitStatusView{}, err
	}
	deposit, err := w.deposits.FindOpenDepositForUnit(ctx, unitID)
	if err != nil {
		return UnitStatusView{}, err
	}
	return UnitStatusView{
		Unit:    unit,
		Stage:   domain.DeriveStage(unit, hold, deposit),
		Hold:    hold,
		Deposit: deposit,
	}, nil
}

// ListHoldsForUnit returns every hold ever placed on the unit, newest first.
func (w *Workflow) ListHoldsForUnit(ctx context.Context, unitID string) ([]domain.Hold, error) {
	if _, err := w.registry.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	if err := w.sweeper.ConvergeUnit(ctx, unitID); err != nil {
		return nil, err
	}
	return w.holdRepo.ListHoldsForUnit(ctx, unitID)
}

// ListHoldsForAgent runs the on-demand sweep before listing so no stale
// ACTIVE/CONFIRMED hold is served.
func (w *Workflow) ListHoldsForAgent(ctx context.Context, agentID string) ([]domain.Hold, error) {
	if agentID == "" {
		return nil, domain.ErrInvalidID
	}
	if _, err := w.sweeper.SweepAll(ctx); err != nil {
		return nil, err
	}
	return w.holdRepo.ListHoldsForAgent(ctx, agentID)
}

// GetCommissionForDeposit returns the commission stored at confirmation.
func (w *Workflow) GetCommissionForDeposit(ctx context.Context, depositID string) (domain.Commission, error) {
	if depositID == "" {
		return domain.Commission{}, domain.ErrInvalidID
	}
	dep, err := w.deposits.GetDeposit(ctx, depositID)
	if err != nil {
		return domain.Commission{}, err
	}
	if dep.Commission == nil {
		return domain.Commission{}, domain.ErrCommissionNotFound
	}
	return *dep.Commission, nil
}

func (w *Workflow) GetUnitHistory(ctx context.Context, unitID string) ([]domain.StatusChange, error) {
	return w.registry.History(ctx, unitID)
}
