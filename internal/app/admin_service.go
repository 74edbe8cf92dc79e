package app

import (
	"context"
	"strings"

	"github.com/landsales/salesops/internal/clock"
	"github.com/landsales/salesops/internal/commission"
	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
)

// AdminService manages the unit inventory. It never changes a unit's status.
type AdminService struct {
	repo  InventoryRepository
	clock clock.Clock
}

func NewAdminService(repo InventoryRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:  repo,
		clock: clk,
	}
}

type CreateUnitInput struct {
	ProjectID      string
	BuildingID     string
	FloorID        string
	Code           string
	Price          decimal.Decimal
	CommissionRate decimal.Decimal
	Area           decimal.Decimal
	Bedrooms       int
	Bathrooms      int
	Direction      string
}

func (s *AdminService) CreateUnit(ctx context.Context, in CreateUnitInput) (domain.Unit, error) {
	if in.ProjectID == "" {
		return domain.Unit{}, domain.ErrProjectRequired
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return domain.Unit{}, domain.ErrUnitCodeRequired
	}
	if in.Price.IsNegative() || !commission.ValidMoney(in.Price) {
		return domain.Unit{}, domain.ErrInvalidPrice
	}
	if err := commission.ValidateRate(in.CommissionRate); err != nil {
		return domain.Unit{}, err
	}

	now := s.clock.Now()
	unit := domain.Unit{
		ID:             newUUID(),
		ProjectID:      in.ProjectID,
		BuildingID:     in.BuildingID,
		FloorID:        in.FloorID,
		Code:           code,
		Price:          in.Price,
		CommissionRate: in.CommissionRate,
		Area:           in.Area,
		Bedrooms:       in.Bedrooms,
		Bathrooms:      in.Bathrooms,
		Direction:      in.Direction,
		Status:         domain.UnitStatusAvailable,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateUnit(ctx, unit); err != nil {
		return domain.Unit{}, err
	}
	return unit, nil
}

func (s *AdminService) ListUnits(ctx context.Context, projectID string) ([]domain.Unit, error) {
	if projectID == "" {
		return nil, domain.ErrProjectRequired
	}
	return s.repo.ListUnitsByProject(ctx, projectID)
}

// UpdateCommissionRate changes the configured rate. Commissions already
// frozen on confirmed deposits are unaffected.
func (s *AdminService) UpdateCommissionRate(ctx context.Context, unitID string, rate decimal.Decimal) (domain.Unit, error) {
	if unitID == "" {
		return domain.Unit{}, domain.ErrInvalidID
	}
	if err := commission.ValidateRate(rate); err != nil {
		return domain.Unit{}, err
	}
	return s.repo.UpdateCommissionRate(ctx, unitID, rate, s.clock.Now())
}

// RemoveUnit soft-removes an AVAILABLE unit; held or sold units stay for audit.
func (s *AdminService) RemoveUnit(ctx context.Context, unitID string) error {
	if unitID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.SoftRemoveUnit(ctx, unitID, s.clock.Now())
}
