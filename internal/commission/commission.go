// Package commission computes agent payouts for confirmed deposits.
package commission

import (
	"time"

	"github.com/landsales/salesops/internal/domain"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places commission amounts are rounded to.
const Places = 2

// RatePlaces is the number of decimal places a commission rate may carry.
const RatePlaces = 6

var (
	one = decimal.NewFromInt(1)
	// Money columns are NUMERIC(18,2): at most 16 integer digits.
	maxMoney = decimal.New(1, 16)
)

// ValidateRate checks that rate is a fraction in [0, 1] with at most
// RatePlaces decimals.
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) || !fitsPlaces(rate, RatePlaces) {
		return domain.ErrInvalidCommissionRate
	}
	return nil
}

// ValidateAmount checks that a deposit amount is positive, has at most Places
// decimals and fits a money column.
func ValidateAmount(amount decimal.Decimal) error {
	if !ValidMoney(amount) || !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	return nil
}

// ValidMoney reports whether v fits a money column: at most Places decimals
// and an absolute value below 10^16.
func ValidMoney(v decimal.Decimal) bool {
	return fitsPlaces(v, Places) && v.Abs().LessThan(maxMoney)
}

func fitsPlaces(v decimal.Decimal, places int32) bool {
	return v.Equal(v.Round(places))
}

// Compute returns depositAmount * commissionRate rounded half away from zero.
func Compute(depositAmount, commissionRate decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(depositAmount); err != nil {
		return decimal.Zero, err
	}
	if err := ValidateRate(commissionRate); err != nil {
		return decimal.Zero, err
	}
	return depositAmount.Mul(commissionRate).Round(Places), nil
}

// Freeze computes the commission and captures the rate used, so later edits
// to the unit's configured rate do not change it.
func Freeze(depositAmount, commissionRate decimal.Decimal, at time.Time) (domain.Commission, error) {
	amount, err := Compute(depositAmount, commissionRate)
	if err != nil {
		return domain.Commission{}, err
	}
	return domain.Commission{
		Amount:     amount,
		Rate:       commissionRate,
		ComputedAt: at,
	}, nil
}
