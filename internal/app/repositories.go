package app

import (
	"context"
	"time"

	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
)

// Transactor runs fn inside one database transaction. Nested calls join the
// outer transaction carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UnitRepository interface {
	Transactor
	GetUnit(ctx context.Context, id string) (domain.Unit, error)
	// CompareAndSetStatus moves the unit to `to` only if the stored status
	// and version still match. A mismatch returns domain.ErrHoldConflict.
	CompareAndSetStatus(ctx context.Context, id string, expected domain.UnitStatus, expectedVersion int64, to domain.UnitStatus, at time.Time) (domain.Unit, error)
	AppendStatusChange(ctx context.Context, change domain.StatusChange) error
	ListStatusChanges(ctx context.Context, unitID string) ([]domain.StatusChange, error)
}

type HoldRepository interface {
	Transactor
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHold(ctx context.Context, id string) (domain.Hold, error)
	FindOpenHoldForUnit(ctx context.Context, unitID string) (*domain.Hold, error)
	// UpdateHoldStatus moves the hold from `from` to `to`; a mismatch returns
	// domain.ErrHoldConflict.
	UpdateHoldStatus(ctx context.Context, id string, from, to domain.HoldStatus, at time.Time) error
	ListHoldsForUnit(ctx context.Context, unitID string) ([]domain.Hold, error)
	ListHoldsForAgent(ctx context.Context, agentID string) ([]domain.Hold, error)
	// ListExpiredHolds pages open holds due at now, ordered by (ExpiresAt, ID)
	// and starting strictly after the cursor; a nil cursor starts at the top.
	ListExpiredHolds(ctx context.Context, holdType domain.HoldType, now time.Time, after *ExpiryCursor, limit int) ([]domain.Hold, error)
}

// ExpiryCursor is the position of the last hold a sweep page returned.
type ExpiryCursor struct {
	ExpiresAt time.Time
	ID        string
}

type DepositRepository interface {
	Transactor
	CreateDeposit(ctx context.Context, deposit domain.Deposit) error
	GetDeposit(ctx context.Context, id string) (domain.Deposit, error)
	FindOpenDepositForUnit(ctx context.Context, unitID string) (*domain.Deposit, error)
	UpdateDepositStatus(ctx context.Context, id string, from, to domain.DepositStatus, at time.Time) error
	// RecordCommission stores the commission once; a second write returns
	// domain.ErrCommissionRecorded.
	RecordCommission(ctx context.Context, depositID string, c domain.Commission) error
}

type InventoryRepository interface {
	CreateUnit(ctx context.Context, unit domain.Unit) error
	ListUnitsByProject(ctx context.Context, projectID string) ([]domain.Unit, error)
	UpdateCommissionRate(ctx context.Context, unitID string, rate decimal.Decimal, at time.Time) (domain.Unit, error)
	// SoftRemoveUnit marks an AVAILABLE unit removed; any other status returns
	// domain.ErrUnitNotAvailable.
	SoftRemoveUnit(ctx context.Context, unitID string, at time.Time) error
}
