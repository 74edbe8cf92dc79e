package domain

// Stage is the position of a unit in the sales funnel.
type Stage string

const (
	StageAvailable        Stage = "AVAILABLE"
	StageReserved         Stage = "RESERVED"
	StageBookingPending   Stage = "BOOKING_PENDING"
	StageBookingConfirmed Stage = "BOOKING_CONFIRMED"
	StageDepositPending   Stage = "DEPOSIT_PENDING"
	StageDepositConfirmed Stage = "DEPOSIT_CONFIRMED"
	StageSold             Stage = "SOLD"
)

// UnitStatus maps a funnel stage to the unit status it projects to.
func (s Stage) UnitStatus() UnitStatus {
	switch s {
	case StageReserved, StageBookingPending, StageBookingConfirmed, StageDepositPending:
		return UnitStatusReservedBooking
	case StageDepositConfirmed:
		return UnitStatusDeposited
	case StageSold:
		return UnitStatusSold
	default:
		return UnitStatusAvailable
	}
}

// DeriveStage computes the funnel stage from the unit's open records.
// A sold unit stays SOLD regardless of records.
func DeriveStage(unit Unit, hold *Hold, deposit *Deposit) Stage {
	if unit.Status == UnitStatusSold {
		return StageSold
	}
	if deposit != nil {
		switch deposit.Status {
		case DepositStatusPendingApproval:
			return StageDepositPending
		case DepositStatusConfirmed:
			return StageDepositConfirmed
		case DepositStatusCompleted:
			return StageSold
		}
	}
	if hold != nil {
		switch {
		case hold.Type == HoldTypeReservation && hold.Status == HoldStatusActive:
			return StageReserved
		case hold.Type == HoldTypeBooking && hold.Status == HoldStatusPendingApproval:
			return StageBookingPending
		case hold.Type == HoldTypeBooking && hold.Status == HoldStatusConfirmed:
			return StageBookingConfirmed
		}
	}
	return StageAvailable
}
