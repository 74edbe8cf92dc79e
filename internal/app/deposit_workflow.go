package app

import (
	"context"
	"fmt"

	"github.com/landsales/salesops/internal/commission"
	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SubmitDepositInput struct {
	UnitID   string
	Actor    domain.Actor
	Customer domain.Customer
	Amount   decimal.Decimal
}

// SubmitDeposit opens a deposit pending approval on an AVAILABLE unit, or on
// a unit held by the same agent through an active reservation or a confirmed
// booking (which is completed).
func (w *Workflow) SubmitDeposit(ctx context.Context, in SubmitDepositInput) (domain.Deposit, error) {
	if !in.Actor.Valid() {
		return domain.Deposit{}, domain.ErrActorRequired
	}
	if !in.Customer.Valid() {
		return domain.Deposit{}, domain.ErrCustomerRequired
	}
	if err := commission.ValidateAmount(in.Amount); err != nil {
		return domain.Deposit{}, err
	}
	if err := w.sweeper.ConvergeUnit(ctx, in.UnitID); err != nil {
		return domain.Deposit{}, err
	}

	unit, err := w.registry.GetUnit(ctx, in.UnitID)
	if err != nil {
		return domain.Deposit{}, err
	}
	if unit.Removed() {
		return domain.Deposit{}, unitNotAvailable(unit)
	}

	var source *domain.Hold
	switch unit.Status {
	case domain.UnitStatusAvailable:
	case domain.UnitStatusReservedBooking:
		open, err := w.holdRepo.FindOpenHoldForUnit(ctx, unit.ID)
		if err != nil {
			return domain.Deposit{}, err
		}
		if open == nil || open.AgentID != in.Actor.ID {
			return domain.Deposit{}, unitNotAvailable(unit)
		}
		if open.Type == domain.HoldTypeBooking && open.Status != domain.HoldStatusConfirmed {
			return domain.Deposit{}, fmt.Errorf("%w: booking %s is awaiting approval", domain.ErrInvalidTransition, open.Code)
		}
		source = open
	default:
		return domain.Deposit{}, unitNotAvailable(unit)
	}

	now := w.clock.Now()
	deposit := domain.Deposit{
		ID:        newUUID(),
		Code:      newCode(codePrefixDeposit),
		UnitID:    unit.ID,
		AgentID:   in.Actor.ID,
		Customer:  in.Customer,
		Amount:    in.Amount,
		Status:    domain.DepositStatusPendingApproval,
		CreatedAt: now,
		UpdatedAt: now,
	}
	reason := fmt.Sprintf("deposit %s submitted", deposit.Code)
	if source != nil {
		deposit.HoldID = source.ID
		reason = fmt.Sprintf("deposit %s submitted from %s %s", deposit.Code, source.Type, source.Code)
	}

	err = w.deposits.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := w.registry.SetStatus(txCtx, SetStatusInput{
			UnitID:   unit.ID,
			Observed: unit,
			To:       domain.StageDepositPending.UnitStatus(),
			Actor:    in.Actor,
			Reason:   reason,
		}); err != nil {
			return err
		}
		if source != nil {
			if err := w.holds.CompleteHold(txCtx, *source); err != nil {
				return err
			}
		}
		open, err := w.deposits.FindOpenDepositForUnit(txCtx, unit.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: deposit %s is already open", domain.ErrUnitNotAvailable, open.Code)
		}
		return w.deposits.CreateDeposit(txCtx, deposit)
	})
	if err != nil {
		return domain.Deposit{}, err
	}

	w.depositEvent(ctx, EventDepositSubmitted, deposit, in.Actor)
	return deposit, nil
}

// ConfirmDeposit approves a pending deposit, freezes the commission at the
// unit's current rate and moves the unit to DEPOSITED.
func (w *Workflow) ConfirmDeposit(ctx context.Context, depositID string, actor domain.Actor) (domain.Deposit, error) {
	if err := adminOnly(actor, "confirm deposits"); err != nil {
		return domain.Deposit{}, err
	}
	return w.transitionDeposit(ctx, depositID, actor, depositTransition{
		to:     domain.DepositStatusConfirmed,
		unitTo: domain.StageDepositConfirmed.UnitStatus(),
		event:  EventDepositConfirmed,
		withCommission: func(dep domain.Deposit, unit domain.Unit) (domain.Commission, error) {
			return commission.Freeze(dep.Amount, unit.CommissionRate, w.clock.Now())
		},
	})
}

// MarkSold completes a confirmed deposit; the unit becomes SOLD for good.
func (w *Workflow) MarkSold(ctx context.Context, depositID string, actor domain.Actor) (domain.Deposit, error) {
	if err := adminOnly(actor, "mark units sold"); err != nil {
		return domain.Deposit{}, err
	}
	return w.transitionDeposit(ctx, depositID, actor, depositTransition{
		to:     domain.DepositStatusCompleted,
		unitTo: domain.StageSold.UnitStatus(),
		event:  EventUnitSold,
	})
}

// CancelDeposit cancels a pending or confirmed deposit and frees the unit.
// A recorded commission is kept as history.
func (w *Workflow) CancelDeposit(ctx context.Context, depositID string, actor domain.Actor) (domain.Deposit, error) {
	return w.transitionDeposit(ctx, depositID, actor, depositTransition{
		to:         domain.DepositStatusCancelled,
		unitTo:     domain.UnitStatusAvailable,
		event:      EventDepositCancelled,
		ownerCheck: true,
	})
}

type depositTransition struct {
	to             domain.DepositStatus
	unitTo         domain.UnitStatus
	event          string
	ownerCheck     bool
	withCommission func(domain.Deposit, domain.Unit) (domain.Commission, error)
}

func (w *Workflow) transitionDeposit(ctx context.Context, depositID string, actor domain.Actor, tr depositTransition) (domain.Deposit, error) {
	if !actor.Valid() {
		return domain.Deposit{}, domain.ErrActorRequired
	}
	if depositID == "" {
		return domain.Deposit{}, domain.ErrInvalidID
	}
	dep, err := w.deposits.GetDeposit(ctx, depositID)
	if err != nil {
		return domain.Deposit{}, err
	}
	if tr.ownerCheck && !actor.Owns(dep.AgentID) {
		return domain.Deposit{}, fmt.Errorf("%w: deposit %s belongs to another agent", domain.ErrForbidden, dep.Code)
	}
	if !dep.CanTransition(tr.to) {
		return domain.Deposit{}, fmt.Errorf("%w: deposit %s is %s", domain.ErrInvalidTransition, dep.Code, dep.Status)
	}

	unit, err := w.registry.GetUnit(ctx, dep.UnitID)
	if err != nil {
		return domain.Deposit{}, err
	}
	if want := depositUnitStatus(dep.Status); unit.Status != want {
		return domain.Deposit{}, fmt.Errorf("%w: unit %s is %s, expected %s", domain.ErrInvalidTransition, unit.Code, unit.Status, want)
	}

	var frozen *domain.Commission
	if tr.withCommission != nil {
		c, err := tr.withCommission(dep, unit)
		if err != nil {
			return domain.Deposit{}, err
		}
		frozen = &c
	}

	now := w.clock.Now()
	err = w.deposits.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := w.registry.SetStatus(txCtx, SetStatusInput{
			UnitID:   unit.ID,
			Observed: unit,
			To:       tr.unitTo,
			Actor:    actor,
			Reason:   fmt.Sprintf("deposit %s %s", dep.Code, tr.to),
		}); err != nil {
			return err
		}
		if err := w.deposits.UpdateDepositStatus(txCtx, dep.ID, dep.Status, tr.to, now); err != nil {
			return err
		}
		if frozen != nil {
			return w.deposits.RecordCommission(txCtx, dep.ID, *frozen)
		}
		return nil
	})
	if err != nil {
		return domain.Deposit{}, err
	}

	dep.Status = tr.to
	dep.UpdatedAt = now
	if frozen != nil {
		dep.Commission = frozen
	}
	w.depositEvent(ctx, tr.event, dep, actor)
	return dep, nil
}

// depositUnitStatus is the unit status an open deposit projects to.
func depositUnitStatus(s domain.DepositStatus) domain.UnitStatus {
	if s == domain.DepositStatusConfirmed {
		return domain.StageDepositConfirmed.UnitStatus()
	}
	return domain.StageDepositPending.UnitStatus()
}

func adminOnly(actor domain.Actor, what string) error {
	if !actor.Valid() {
		return domain.ErrActorRequired
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins can %s", domain.ErrForbidden, what)
	}
	return nil
}

func (w *Workflow) depositEvent(ctx context.Context, eventType string, dep domain.Deposit, actor domain.Actor) {
	w.logger.WithFields(logrus.Fields{
		"event":      eventType,
		"unit_id":    dep.UnitID,
		"deposit_id": dep.ID,
		"status":     dep.Status,
		"actor":      actor.ID,
	}).Info("deposit transition committed")

	publish(ctx, w.publisher, w.logger, LifecycleEvent{
		Type:       eventType,
		UnitID:     dep.UnitID,
		DepositID:  dep.ID,
		AgentID:    dep.AgentID,
		ActorID:    actor.ID,
		Status:     string(dep.Status),
		OccurredAt: w.clock.Now(),
	})
}
