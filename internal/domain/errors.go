package domain

import "errors"

var (
	ErrUnitNotFound       = errors.New("unit not found")
	ErrHoldNotFound       = errors.New("hold not found")
	ErrDepositNotFound    = errors.New("deposit not found")
	ErrCommissionNotFound = errors.New("commission not computed yet")

	ErrUnitNotAvailable  = errors.New("unit not available")
	ErrHoldAlreadyExists = errors.New("unit already has an open hold")
	ErrHoldConflict      = errors.New("unit was changed by a concurrent request")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrHoldExpired       = errors.New("hold expired")
	ErrForbidden         = errors.New("forbidden")

	ErrCommissionRecorded = errors.New("commission already recorded")

	ErrInvalidID             = errors.New("invalid id")
	ErrActorRequired         = errors.New("actor required")
	ErrCustomerRequired      = errors.New("customer name and phone required")
	ErrInvalidVisitWindow    = errors.New("invalid visit window")
	ErrInvalidAmount         = errors.New("deposit amount must be positive")
	ErrInvalidCommissionRate = errors.New("commission rate must be between 0 and 1")
	ErrInvalidPrice          = errors.New("price must not be negative")
	ErrUnitCodeRequired      = errors.New("unit code required")
	ErrProjectRequired       = errors.New("project id required")
	ErrUnitAlreadyExists     = errors.New("unit code already exists in project")
)

// ErrorKind is the caller-facing classification of a failed command.
type ErrorKind string

const (
	KindUnitNotAvailable  ErrorKind = "UnitNotAvailable"
	KindHoldAlreadyExists ErrorKind = "HoldAlreadyExists"
	KindHoldConflict      ErrorKind = "HoldConflict"
	KindInvalidTransition ErrorKind = "InvalidTransition"
	KindNotFound          ErrorKind = "NotFound"
	KindExpiredHold       ErrorKind = "ExpiredHold"
	KindForbidden         ErrorKind = "Forbidden"
	KindValidation        ErrorKind = "Validation"
	KindInternal          ErrorKind = "Internal"
)

var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnitNotFound, KindNotFound},
	{ErrHoldNotFound, KindNotFound},
	{ErrDepositNotFound, KindNotFound},
	{ErrCommissionNotFound, KindNotFound},
	{ErrUnitNotAvailable, KindUnitNotAvailable},
	{ErrHoldAlreadyExists, KindHoldAlreadyExists},
	{ErrHoldConflict, KindHoldConflict},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrHoldExpired, KindExpiredHold},
	{ErrForbidden, KindForbidden},
	{ErrCommissionRecorded, KindInvalidTransition},
	{ErrUnitAlreadyExists, KindHoldConflict},
	{ErrInvalidID, KindValidation},
	{ErrActorRequired, KindValidation},
	{ErrCustomerRequired, KindValidation},
	{ErrInvalidVisitWindow, KindValidation},
	{ErrInvalidAmount, KindValidation},
	{ErrInvalidCommissionRate, KindValidation},
	{ErrInvalidPrice, KindValidation},
	{ErrUnitCodeRequired, KindValidation},
	{ErrProjectRequired, KindValidation},
}

// KindOf classifies err. Anything outside the taxonomy is Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}
