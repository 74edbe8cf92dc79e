package app

import (
	"context"
	"errors"
	"time"

	"github.com/landsales/salesops/internal/clock"
	"github.com/landsales/salesops/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultSweepBatch = 200
	sweepLockKey      = "salesops:expiry-sweep"
	sweepLockTTL      = 50 * time.Second
)

// Sweeper converges holds past their expiry to EXPIRED. It is idempotent and
// keeps no per-hold timers, so a missed tick is caught up on the next run.
type Sweeper struct {
	holds     HoldRepository
	manager   *HoldManager
	locker    Locker
	publisher EventPublisher
	logger    *logrus.Logger
	clock     clock.Clock
	batch     int
}

type SweeperOption func(*Sweeper)

func WithSweepLocker(l Locker) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.locker = l
		}
	}
}

func WithSweepPublisher(p EventPublisher) SweeperOption {
	return func(s *Sweeper) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithSweepBatch limits how many holds one pass loads at a time.
func WithSweepBatch(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

func NewSweeper(holds HoldRepository, manager *HoldManager, logger *logrus.Logger, clk clock.Clock, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		holds:     holds,
		manager:   manager,
		locker:    LocalLocker{},
		publisher: NopPublisher{},
		logger:    logger,
		clock:     clk,
		batch:     defaultSweepBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepResult summarises one pass over a hold type.
type SweepResult struct {
	Type    domain.HoldType `json:"type"`
	Expired []domain.Hold   `json:"expired"`
	// Skipped counts due holds left open: changed concurrently or stuck.
	Skipped int `json:"skipped"`
}

func (s *Sweeper) ExpireReservations(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, domain.HoldTypeReservation)
}

func (s *Sweeper) ExpireBookings(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx, domain.HoldTypeBooking)
}

// SweepAll expires both hold types.
func (s *Sweeper) SweepAll(ctx context.Context) ([]SweepResult, error) {
	var results []SweepResult
	for _, t := range []domain.HoldType{domain.HoldTypeReservation, domain.HoldTypeBooking} {
		res, err := s.sweep(ctx, t)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ConvergeUnit expires the unit's open hold if it is past expiry, so a stale
// hold is never treated as live (or the unit as free) by the caller.
func (s *Sweeper) ConvergeUnit(ctx context.Context, unitID string) error {
	open, err := s.holds.FindOpenHoldForUnit(ctx, unitID)
	if err != nil || open == nil {
		return err
	}
	if !open.Expired(s.clock.Now()) {
		return nil
	}
	_, err = s.expire(ctx, *open)
	return err
}

func (s *Sweeper) sweep(ctx context.Context, holdType domain.HoldType) (SweepResult, error) {
	result := SweepResult{Type: holdType, Expired: []domain.Hold{}}
	now := s.clock.Now()

	var cursor *ExpiryCursor
	for {
		due, err := s.holds.ListExpiredHolds(ctx, holdType, now, cursor, s.batch)
		if err != nil {
			return result, err
		}
		for _, h := range due {
			expired, err := s.expire(ctx, h)
			if err != nil {
				return result, err
			}
			if expired == nil {
				result.Skipped++
				continue
			}
			result.Expired = append(result.Expired, *expired)
		}
		if len(due) < s.batch {
			break
		}
		last := due[len(due)-1]
		cursor = &ExpiryCursor{ExpiresAt: last.ExpiresAt, ID: last.ID}
	}

	if len(result.Expired) > 0 || result.Skipped > 0 {
		s.logger.WithFields(logrus.Fields{
			"type":    holdType,
			"expired": len(result.Expired),
			"skipped": result.Skipped,
		}).Info("expiry sweep converged holds")
	}
	return result, nil
}

// expire returns nil without error when the hold could not be expired: a
// concurrent writer changed it first, or its unit no longer projects it.
func (s *Sweeper) expire(ctx context.Context, h domain.Hold) (*domain.Hold, error) {
	expired, err := s.manager.ExpireHold(ctx, h.ID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrHoldConflict):
		s.logger.WithError(err).WithField("hold_id", h.ID).Debug("hold changed before expiry")
		return nil, nil
	case errors.Is(err, domain.ErrInvalidTransition):
		// Still open but the unit disagrees; left for an operator.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"hold_id": h.ID,
			"unit_id": h.UnitID,
		}).Warn("expired hold is stuck, unit does not project it")
		return nil, nil
	default:
		return nil, err
	}

	publish(ctx, s.publisher, s.logger, LifecycleEvent{
		Type:       EventHoldExpired,
		UnitID:     expired.UnitID,
		HoldID:     expired.ID,
		AgentID:    expired.AgentID,
		ActorID:    domain.SystemActor.ID,
		Status:     string(expired.Status),
		OccurredAt: expired.UpdatedAt,
	})
	return &expired, nil
}

// RunPeriodic is one background tick. It skips the tick when another replica
// holds the sweep lease.
func (s *Sweeper) RunPeriodic(ctx context.Context) error {
	release, ok, err := s.locker.TryLock(ctx, sweepLockKey, sweepLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("expiry sweep lease held elsewhere, skipping tick")
		return nil
	}
	defer release()

	_, err = s.SweepAll(ctx)
	return err
}

// Schedule registers the periodic sweep on c using a cron spec such as "@every 1m".
func (s *Sweeper) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepLockTTL)
		defer cancel()
		if err := s.RunPeriodic(ctx); err != nil {
			s.logger.WithError(err).Error("scheduled expiry sweep failed")
		}
	})
}
