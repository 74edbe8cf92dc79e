package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Lifecycle event routing keys.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventBookingSubmitted     = "booking.submitted"
	EventBookingConfirmed     = "booking.confirmed"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingRejected      = "booking.rejected"
	EventHoldExpired          = "hold.expired"
	EventDepositSubmitted     = "deposit.submitted"
	EventDepositConfirmed     = "deposit.confirmed"
	EventDepositCancelled     = "deposit.cancelled"
	EventUnitSold             = "unit.sold"
)

// LifecycleEvent is emitted after a transition has committed.
type LifecycleEvent struct {
	Type       string    `json:"type"`
	UnitID     string    `json:"unit_id"`
	HoldID     string    `json:"hold_id,omitempty"`
	DepositID  string    `json:"deposit_id,omitempty"`
	AgentID    string    `json:"agent_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LifecycleEvent) error { return nil }

// publish never fails the caller: the transition is already committed.
func publish(ctx context.Context, pub EventPublisher, logger *logrus.Logger, event LifecycleEvent) {
	if err := pub.Publish(ctx, event); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"event":   event.Type,
			"unit_id": event.UnitID,
		}).Warn("failed to publish lifecycle event")
	}
}
