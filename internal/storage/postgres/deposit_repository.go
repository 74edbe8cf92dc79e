package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
)

type DepositRepository struct {
	pool *pgxpool.Pool
}

func NewDepositRepository(pool *pgxpool.Pool) *DepositRepository {
	return &DepositRepository{pool: pool}
}

func (r *DepositRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const depositColumns = `id, code, unit_id, agent_id, hold_id, customer_name, customer_phone, amount, status,
	commission_amount, commission_rate, commission_computed_at, created_at, updated_at`

func scanDeposit(row pgx.Row) (domain.Deposit, error) {
	var d domain.Deposit
	var holdID *string
	var status string
	var amount, rate decimal.NullDecimal
	var computedAt *time.Time
	err := row.Scan(
		&d.ID, &d.Code, &d.UnitID, &d.AgentID, &holdID,
		&d.Customer.Name, &d.Customer.Phone, &d.Amount, &status,
		&amount, &rate, &computedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return domain.Deposit{}, err
	}
	if holdID != nil {
		d.HoldID = *holdID
	}
	d.Status = domain.DepositStatus(status)
	if amount.Valid && computedAt != nil {
		d.Commission = &domain.Commission{
			Amount:     amount.Decimal,
			Rate:       rate.Decimal,
			ComputedAt: *computedAt,
		}
	}
	return d, nil
}

func (r *DepositRepository) CreateDeposit(ctx context.Context, deposit domain.Deposit) error {
	const stmt = `
INSERT INTO deposits (id, code, unit_id, agent_id, hold_id, customer_name, customer_phone, amount, status,
	created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		deposit.ID,
		deposit.Code,
		deposit.UnitID,
		deposit.AgentID,
		nullIfEmpty(deposit.HoldID),
		deposit.Customer.Name,
		deposit.Customer.Phone,
		deposit.Amount,
		string(deposit.Status),
		deposit.CreatedAt,
		deposit.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == "deposits_open_unit_key" {
			return domain.ErrHoldConflict
		}
		if isForeignKeyViolation(err) {
			return domain.ErrUnitNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create deposit: %w", err)
	}
	return nil
}

func (r *DepositRepository) GetDeposit(ctx context.Context, id string) (domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`
	d, err := scanDeposit(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Deposit{}, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return domain.Deposit{}, domain.ErrDepositNotFound
		}
		return domain.Deposit{}, fmt.Errorf("get deposit: %w", err)
	}
	return d, nil
}

func (r *DepositRepository) FindOpenDepositForUnit(ctx context.Context, unitID string) (*domain.Deposit, error) {
	query := `SELECT ` + depositColumns + `
FROM deposits
WHERE unit_id = $1 AND status IN ('PENDING_APPROVAL', 'CONFIRMED')`
	d, err := scanDeposit(conn(ctx, r.pool).QueryRow(ctx, query, unitID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open deposit: %w", err)
	}
	return &d, nil
}

func (r *DepositRepository) UpdateDepositStatus(ctx context.Context, id string, from, to domain.DepositStatus, at time.Time) error {
	const stmt = `UPDATE deposits SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, id, string(from), string(to), at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update deposit status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetDeposit(ctx, id); err != nil {
			return err
		}
		return domain.ErrHoldConflict
	}
	return nil
}

// RecordCommission writes the commission columns only while they are empty.
func (r *DepositRepository) RecordCommission(ctx context.Context, depositID string, c domain.Commission) error {
	const stmt = `
UPDATE deposits
SET commission_amount = $2, commission_rate = $3, commission_computed_at = $4
WHERE id = $1 AND commission_amount IS NULL`
	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, depositID, c.Amount, c.Rate, c.ComputedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("record commission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetDeposit(ctx, depositID); err != nil {
			return err
		}
		return domain.ErrCommissionRecorded
	}
	return nil
}
