package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/landsales/salesops/internal/domain"
)

// UnitRepository persists units and their status audit trail.
type UnitRepository struct {
	pool *pgxpool.Pool
}

func NewUnitRepository(pool *pgxpool.Pool) *UnitRepository {
	return &UnitRepository{pool: pool}
}

func (r *UnitRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const unitColumns = `id, project_id, building_id, floor_id, code, price, commission_rate, area,
	bedrooms, bathrooms, direction, status, version, removed_at, created_at, updated_at`

func scanUnit(row pgx.Row) (domain.Unit, error) {
	var u domain.Unit
	var status string
	err := row.Scan(
		&u.ID, &u.ProjectID, &u.BuildingID, &u.FloorID, &u.Code,
		&u.Price, &u.CommissionRate, &u.Area,
		&u.Bedrooms, &u.Bathrooms, &u.Direction,
		&status, &u.Version, &u.RemovedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	u.Status = domain.UnitStatus(status)
	return u, err
}

func (r *UnitRepository) GetUnit(ctx context.Context, id string) (domain.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1`
	u, err := scanUnit(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Unit{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Unit{}, domain.ErrUnitNotFound
		}
		return domain.Unit{}, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

// CompareAndSetStatus is a single conditional UPDATE. When no row matches it
// distinguishes a missing unit from a lost race.
func (r *UnitRepository) CompareAndSetStatus(ctx context.Context, id string, expected domain.UnitStatus, expectedVersion int64, to domain.UnitStatus, at time.Time) (domain.Unit, error) {
	stmt := `
UPDATE units
SET status = $4, version = version + 1, updated_at = $5
WHERE id = $1 AND status = $2 AND version = $3
RETURNING ` + unitColumns

	db := conn(ctx, r.pool)
	u, err := scanUnit(db.QueryRow(ctx, stmt, id, string(expected), expectedVersion, string(to), at))
	if err == nil {
		return u, nil
	}
	if isInvalidUUID(err) {
		return domain.Unit{}, domain.ErrInvalidID
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Unit{}, fmt.Errorf("compare and set unit status: %w", err)
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM units WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.Unit{}, fmt.Errorf("check unit: %w", err)
	}
	if !exists {
		return domain.Unit{}, domain.ErrUnitNotFound
	}
	return domain.Unit{}, domain.ErrHoldConflict
}

func (r *UnitRepository) AppendStatusChange(ctx context.Context, change domain.StatusChange) error {
	const stmt = `
INSERT INTO unit_status_changes (id, unit_id, from_status, to_status, actor_id, reason, version, changed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		change.ID,
		change.UnitID,
		string(change.From),
		string(change.To),
		change.ActorID,
		change.Reason,
		change.Version,
		change.ChangedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUnitNotFound
		}
		return fmt.Errorf("append status change: %w", err)
	}
	return nil
}

func (r *UnitRepository) ListStatusChanges(ctx context.Context, unitID string) ([]domain.StatusChange, error) {
	const query = `
SELECT id, unit_id, from_status, to_status, actor_id, reason, version, changed_at
FROM unit_status_changes
WHERE unit_id = $1
ORDER BY version ASC, changed_at ASC`

	rows, err := conn(ctx, r.pool).Query(ctx, query, unitID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list status changes: %w", err)
	}
	defer rows.Close()

	changes := []domain.StatusChange{}
	for rows.Next() {
		var c domain.StatusChange
		var from, to string
		if err := rows.Scan(&c.ID, &c.UnitID, &from, &to, &c.ActorID, &c.Reason, &c.Version, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		c.From = domain.UnitStatus(from)
		c.To = domain.UnitStatus(to)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate status changes: %w", err)
	}
	return changes, nil
}
