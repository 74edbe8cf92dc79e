package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DepositStatus string

const (
	DepositStatusPendingApproval DepositStatus = "PENDING_APPROVAL"
	DepositStatusConfirmed       DepositStatus = "CONFIRMED"
	DepositStatusCompleted       DepositStatus = "COMPLETED"
	DepositStatusCancelled       DepositStatus = "CANCELLED"
)

// Commission is computed once when a deposit is confirmed and never recomputed.
type Commission struct {
	Amount     decimal.Decimal
	Rate       decimal.Decimal
	ComputedAt time.Time
}

type Deposit struct {
	ID         string
	Code       string
	UnitID     string
	AgentID    string
	HoldID     string
	Customer   Customer
	Amount     decimal.Decimal
	Status     DepositStatus
	Commission *Commission
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (d Deposit) IsOpen() bool {
	return d.Status == DepositStatusPendingApproval || d.Status == DepositStatusConfirmed
}

var depositTransitions = map[DepositStatus][]DepositStatus{
	DepositStatusPendingApproval: {DepositStatusConfirmed, DepositStatusCancelled},
	DepositStatusConfirmed:       {DepositStatusCompleted, DepositStatusCancelled},
}

func (d Deposit) CanTransition(next DepositStatus) bool {
	for _, allowed := range depositTransitions[d.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}
