package domain

import (
	"strings"
	"time"
)

type HoldType string

const (
	HoldTypeReservation HoldType = "RESERVATION"
	HoldTypeBooking     HoldType = "BOOKING"
)

type HoldStatus string

const (
	HoldStatusActive          HoldStatus = "ACTIVE"
	HoldStatusPendingApproval HoldStatus = "PENDING_APPROVAL"
	HoldStatusConfirmed       HoldStatus = "CONFIRMED"
	HoldStatusExpired         HoldStatus = "EXPIRED"
	HoldStatusCancelled       HoldStatus = "CANCELLED"
	HoldStatusCompleted       HoldStatus = "COMPLETED"
)

// OpenHoldStatuses are the statuses that keep a unit held.
var OpenHoldStatuses = []HoldStatus{HoldStatusActive, HoldStatusPendingApproval, HoldStatusConfirmed}

type Customer struct {
	Name  string
	Phone string
}

func (c Customer) Valid() bool {
	return strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Phone) != ""
}

// VisitWindow is the scheduled site visit a booking is tied to.
type VisitWindow struct {
	Start time.Time
	End   time.Time
}

func (v VisitWindow) Valid() bool {
	return !v.Start.IsZero() && v.End.After(v.Start)
}

// Hold is a time-bounded claim on a unit: a Reservation or a Booking.
// ExpiresAt is reservedUntil for reservations and visit end plus grace
// period for bookings.
type Hold struct {
	ID        string
	Code      string
	Type      HoldType
	UnitID    string
	AgentID   string
	Customer  Customer
	Status    HoldStatus
	ExpiresAt time.Time
	Visit     *VisitWindow
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (h Hold) IsOpen() bool {
	return IsOpenHoldStatus(h.Status)
}

// Expired reports whether an open hold is at or past its expiry.
func (h Hold) Expired(now time.Time) bool {
	return h.IsOpen() && !now.Before(h.ExpiresAt)
}

func IsOpenHoldStatus(s HoldStatus) bool {
	for _, open := range OpenHoldStatuses {
		if s == open {
			return true
		}
	}
	return false
}

var holdTransitions = map[HoldType]map[HoldStatus][]HoldStatus{
	HoldTypeReservation: {
		HoldStatusActive: {HoldStatusExpired, HoldStatusCancelled, HoldStatusCompleted},
	},
	HoldTypeBooking: {
		HoldStatusPendingApproval: {HoldStatusConfirmed, HoldStatusCancelled, HoldStatusExpired},
		HoldStatusConfirmed:       {HoldStatusExpired, HoldStatusCancelled, HoldStatusCompleted},
	},
}

// CanTransition reports whether the hold's lifecycle allows moving to next.
func (h Hold) CanTransition(next HoldStatus) bool {
	for _, allowed := range holdTransitions[h.Type][h.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InitialHoldStatus is the status a freshly created hold starts in.
func InitialHoldStatus(t HoldType) HoldStatus {
	if t == HoldTypeBooking {
		return HoldStatusPendingApproval
	}
	return HoldStatusActive
}
