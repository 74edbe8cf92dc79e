package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type UnitStatus string

const (
	UnitStatusAvailable       UnitStatus = "AVAILABLE"
	UnitStatusReservedBooking UnitStatus = "RESERVED_BOOKING"
	UnitStatusDeposited       UnitStatus = "DEPOSITED"
	UnitStatusSold            UnitStatus = "SOLD"
)

// Unit is a sellable apartment/house. Status is a projection of the unit's
// open hold or deposit and only changes through a compare-and-swap on
// (Status, Version).
type Unit struct {
	ID         string
	ProjectID  string
	BuildingID string
	FloorID    string
	Code       string

	Price          decimal.Decimal
	CommissionRate decimal.Decimal
	Area           decimal.Decimal
	Bedrooms       int
	Bathrooms      int
	Direction      string

	Status    UnitStatus
	Version   int64
	RemovedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u Unit) Removed() bool {
	return u.RemovedAt != nil
}

// StatusChange is one audit row written for every successful unit CAS.
type StatusChange struct {
	ID        string
	UnitID    string
	From      UnitStatus
	To        UnitStatus
	ActorID   string
	Reason    string
	Version   int64
	ChangedAt time.Time
}
