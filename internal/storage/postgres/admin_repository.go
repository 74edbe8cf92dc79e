package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
)

// AdminRepository manages the unit inventory. Status is owned by the
// registry CAS and is never written here.
type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateUnit(ctx context.Context, unit domain.Unit) error {
	const stmt = `
INSERT INTO units (id, project_id, building_id, floor_id, code, price, commission_rate, area,
	bedrooms, bathrooms, direction, status, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.pool.Exec(ctx, stmt,
		unit.ID, unit.ProjectID, unit.BuildingID, unit.FloorID, unit.Code,
		unit.Price, unit.CommissionRate, unit.Area,
		unit.Bedrooms, unit.Bathrooms, unit.Direction,
		string(unit.Status), unit.Version, unit.CreatedAt, unit.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) && violatedConstraint(err) == "units_project_code_key" {
			return domain.ErrUnitAlreadyExists
		}
		return fmt.Errorf("create unit: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListUnitsByProject(ctx context.Context, projectID string) ([]domain.Unit, error) {
	query := `SELECT ` + unitColumns + `
FROM units
WHERE project_id = $1 AND removed_at IS NULL
ORDER BY code ASC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	units := []domain.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate units: %w", rows.Err())
	}
	return units, nil
}

// UpdateCommissionRate leaves version untouched: the rate is not part of the
// status CAS token.
func (r *AdminRepository) UpdateCommissionRate(ctx context.Context, unitID string, rate decimal.Decimal, at time.Time) (domain.Unit, error) {
	stmt := `
UPDATE units SET commission_rate = $2, updated_at = $3
WHERE id = $1
RETURNING ` + unitColumns
	u, err := scanUnit(r.pool.QueryRow(ctx, stmt, unitID, rate, at))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Unit{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.Unit{}, domain.ErrUnitNotFound
		}
		return domain.Unit{}, fmt.Errorf("update commission rate: %w", err)
	}
	return u, nil
}

// SoftRemoveUnit bumps the version so a command that observed the unit
// before removal loses its CAS.
func (r *AdminRepository) SoftRemoveUnit(ctx context.Context, unitID string, at time.Time) error {
	const stmt = `
UPDATE units SET removed_at = $2, updated_at = $2, version = version + 1
WHERE id = $1 AND status = 'AVAILABLE' AND removed_at IS NULL`
	tag, err := r.pool.Exec(ctx, stmt, unitID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("remove unit: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM units WHERE id = $1)`, unitID).Scan(&exists); err != nil {
		return fmt.Errorf("check unit: %w", err)
	}
	if !exists {
		return domain.ErrUnitNotFound
	}
	return domain.ErrUnitNotAvailable
}
