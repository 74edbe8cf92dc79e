package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/landsales/salesops/internal/app"
	"github.com/landsales/salesops/internal/domain"
)

type HoldRepository struct {
	pool *pgxpool.Pool
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{pool: pool}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const holdColumns = `id, code, type, unit_id, agent_id, customer_name, customer_phone, status,
	expires_at, visit_start, visit_end, created_at, updated_at`

const openHoldStatuses = `('ACTIVE', 'PENDING_APPROVAL', 'CONFIRMED')`

func scanHold(row pgx.Row) (domain.Hold, error) {
	var h domain.Hold
	var holdType, status string
	var visitStart, visitEnd *time.Time
	err := row.Scan(
		&h.ID, &h.Code, &holdType, &h.UnitID, &h.AgentID,
		&h.Customer.Name, &h.Customer.Phone, &status,
		&h.ExpiresAt, &visitStart, &visitEnd, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return domain.Hold{}, err
	}
	h.Type = domain.HoldType(holdType)
	h.Status = domain.HoldStatus(status)
	if visitStart != nil && visitEnd != nil {
		h.Visit = &domain.VisitWindow{Start: *visitStart, End: *visitEnd}
	}
	return h, nil
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, code, type, unit_id, agent_id, customer_name, customer_phone, status,
	expires_at, visit_start, visit_end, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	var visitStart, visitEnd *time.Time
	if hold.Visit != nil {
		visitStart, visitEnd = &hold.Visit.Start, &hold.Visit.End
	}
	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		hold.ID,
		hold.Code,
		string(hold.Type),
		hold.UnitID,
		hold.AgentID,
		hold.Customer.Name,
		hold.Customer.Phone,
		string(hold.Status),
		hold.ExpiresAt,
		visitStart,
		visitEnd,
		hold.CreatedAt,
		hold.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == "holds_open_unit_key" {
			return domain.ErrHoldConflict
		}
		if isForeignKeyViolation(err) {
			return domain.ErrUnitNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *HoldRepository) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1`
	h, err := scanHold(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *HoldRepository) FindOpenHoldForUnit(ctx context.Context, unitID string) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE unit_id = $1 AND status IN ` + openHoldStatuses
	h, err := scanHold(conn(ctx, r.pool).QueryRow(ctx, query, unitID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open hold: %w", err)
	}
	return &h, nil
}

// UpdateHoldStatus is conditional on the current status; zero rows affected
// means another writer moved the hold first.
func (r *HoldRepository) UpdateHoldStatus(ctx context.Context, id string, from, to domain.HoldStatus, at time.Time) error {
	const stmt = `UPDATE holds SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, id, string(from), string(to), at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrHoldConflict
		}
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetHold(ctx, id); err != nil {
			return err
		}
		return domain.ErrHoldConflict
	}
	return nil
}

func (r *HoldRepository) ListHoldsForUnit(ctx context.Context, unitID string) ([]domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE unit_id = $1 ORDER BY created_at DESC, code DESC`
	return r.list(ctx, "list holds for unit", query, unitID)
}

func (r *HoldRepository) ListHoldsForAgent(ctx context.Context, agentID string) ([]domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE agent_id = $1 ORDER BY created_at DESC, code DESC`
	return r.list(ctx, "list holds for agent", query, agentID)
}

// ListExpiredHolds returns open holds of the given type whose expiry is at or
// before now, ordered by (expires_at, id) and starting after the cursor.
func (r *HoldRepository) ListExpiredHolds(ctx context.Context, holdType domain.HoldType, now time.Time, after *app.ExpiryCursor, limit int) ([]domain.Hold, error) {
	if after == nil {
		query := `SELECT ` + holdColumns + `
FROM holds
WHERE type = $1 AND status IN ` + openHoldStatuses + ` AND expires_at <= $2
ORDER BY expires_at ASC, id ASC
LIMIT $3`
		return r.list(ctx, "list expired holds", query, string(holdType), now, limit)
	}

	query := `SELECT ` + holdColumns + `
FROM holds
WHERE type = $1 AND status IN ` + openHoldStatuses + ` AND expires_at <= $2
  AND (expires_at, id) > ($3, $4::uuid)
ORDER BY expires_at ASC, id ASC
LIMIT $5`
	return r.list(ctx, "list expired holds", query, string(holdType), now, after.ExpiresAt, after.ID, limit)
}

func (r *HoldRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Hold, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	holds := []domain.Hold{}
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return holds, nil
}
