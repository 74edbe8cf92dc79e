package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/landsales/salesops/internal/domain"
	"github.com/landsales/salesops/internal/logging"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fakeTxKey struct{}

// fakeStore is an in-memory implementation of every repository port. WithTx
// serialises transactions and restores a snapshot when fn fails.
type fakeStore struct {
	mu       sync.Mutex
	units    map[string]domain.Unit
	changes  []domain.StatusChange
	holds    map[string]domain.Hold
	holdSeq  []string
	deposits map[string]domain.Deposit
	depSeq   []string

	// afterGetUnit runs outside any lock after a non-transactional unit read.
	afterGetUnit func(unitID string)
	// createHoldErr simulates a persistence failure on the next CreateHold.
	createHoldErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		units:    make(map[string]domain.Unit),
		holds:    make(map[string]domain.Hold),
		deposits: make(map[string]domain.Deposit),
	}
}

func inTx(ctx context.Context) bool {
	return ctx.Value(fakeTxKey{}) != nil
}

func (f *fakeStore) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

type fakeSnapshot struct {
	units    map[string]domain.Unit
	changes  []domain.StatusChange
	holds    map[string]domain.Hold
	holdSeq  []string
	deposits map[string]domain.Deposit
	depSeq   []string
}

func (f *fakeStore) snapshot() fakeSnapshot {
	s := fakeSnapshot{
		units:    make(map[string]domain.Unit, len(f.units)),
		changes:  append([]domain.StatusChange(nil), f.changes...),
		holds:    make(map[string]domain.Hold, len(f.holds)),
		holdSeq:  append([]string(nil), f.holdSeq...),
		deposits: make(map[string]domain.Deposit, len(f.deposits)),
		depSeq:   append([]string(nil), f.depSeq...),
	}
	for k, v := range f.units {
		s.units[k] = v
	}
	for k, v := range f.holds {
		s.holds[k] = v
	}
	for k, v := range f.deposits {
		s.deposits[k] = v
	}
	return s
}

func (f *fakeStore) restore(s fakeSnapshot) {
	f.units, f.changes, f.holds, f.holdSeq, f.deposits, f.depSeq =
		s.units, s.changes, s.holds, s.holdSeq, s.deposits, s.depSeq
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

// --- units ---

func (f *fakeStore) putUnit(u domain.Unit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units[u.ID] = u
}

func (f *fakeStore) unit(id string) domain.Unit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units[id]
}

func (f *fakeStore) GetUnit(ctx context.Context, id string) (domain.Unit, error) {
	unlock := f.lock(ctx)
	u, ok := f.units[id]
	hook := f.afterGetUnit
	unlock()
	if !ok {
		return domain.Unit{}, domain.ErrUnitNotFound
	}
	if hook != nil && !inTx(ctx) {
		hook(id)
	}
	return u, nil
}

func (f *fakeStore) CompareAndSetStatus(ctx context.Context, id string, expected domain.UnitStatus, expectedVersion int64, to domain.UnitStatus, at time.Time) (domain.Unit, error) {
	defer f.lock(ctx)()
	u, ok := f.units[id]
	if !ok {
		return domain.Unit{}, domain.ErrUnitNotFound
	}
	if u.Status != expected || u.Version != expectedVersion {
		return domain.Unit{}, domain.ErrHoldConflict
	}
	u.Status = to
	u.Version++
	u.UpdatedAt = at
	f.units[id] = u
	return u, nil
}

func (f *fakeStore) AppendStatusChange(ctx context.Context, change domain.StatusChange) error {
	defer f.lock(ctx)()
	f.changes = append(f.changes, change)
	return nil
}

func (f *fakeStore) ListStatusChanges(ctx context.Context, unitID string) ([]domain.StatusChange, error) {
	defer f.lock(ctx)()
	var out []domain.StatusChange
	for _, c := range f.changes {
		if c.UnitID == unitID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- inventory ---

func (f *fakeStore) CreateUnit(ctx context.Context, unit domain.Unit) error {
	defer f.lock(ctx)()
	for _, u := range f.units {
		if u.ProjectID == unit.ProjectID && u.Code == unit.Code {
			return domain.ErrUnitAlreadyExists
		}
	}
	f.units[unit.ID] = unit
	return nil
}

func (f *fakeStore) ListUnitsByProject(ctx context.Context, projectID string) ([]domain.Unit, error) {
	defer f.lock(ctx)()
	var out []domain.Unit
	for _, u := range f.units {
		if u.ProjectID == projectID && !u.Removed() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeStore) UpdateCommissionRate(ctx context.Context, unitID string, rate decimal.Decimal, at time.Time) (domain.Unit, error) {
	defer f.lock(ctx)()
	u, ok := f.units[unitID]
	if !ok {
		return domain.Unit{}, domain.ErrUnitNotFound
	}
	u.CommissionRate = rate
	u.UpdatedAt = at
	f.units[unitID] = u
	return u, nil
}

func (f *fakeStore) SoftRemoveUnit(ctx context.Context, unitID string, at time.Time) error {
	defer f.lock(ctx)()
	u, ok := f.units[unitID]
	if !ok {
		return domain.ErrUnitNotFound
	}
	if u.Status != domain.UnitStatusAvailable || u.Removed() {
		return domain.ErrUnitNotAvailable
	}
	u.RemovedAt = &at
	u.Version++
	f.units[unitID] = u
	return nil
}

// --- holds ---

func (f *fakeStore) hold(id string) domain.Hold {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holds[id]
}

func (f *fakeStore) openHolds(unitID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.holds {
		if h.UnitID == unitID && h.IsOpen() {
			n++
		}
	}
	return n
}

func (f *fakeStore) CreateHold(ctx context.Context, hold domain.Hold) error {
	defer f.lock(ctx)()
	if err := f.createHoldErr; err != nil {
		f.createHoldErr = nil
		return err
	}
	for _, h := range f.holds {
		if h.UnitID == hold.UnitID && h.IsOpen() {
			return domain.ErrHoldConflict
		}
	}
	f.holds[hold.ID] = hold
	f.holdSeq = append(f.holdSeq, hold.ID)
	return nil
}

func (f *fakeStore) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	defer f.lock(ctx)()
	h, ok := f.holds[id]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (f *fakeStore) FindOpenHoldForUnit(ctx context.Context, unitID string) (*domain.Hold, error) {
	defer f.lock(ctx)()
	for _, id := range f.holdSeq {
		h := f.holds[id]
		if h.UnitID == unitID && h.IsOpen() {
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateHoldStatus(ctx context.Context, id string, from, to domain.HoldStatus, at time.Time) error {
	defer f.lock(ctx)()
	h, ok := f.holds[id]
	if !ok {
		return domain.ErrHoldNotFound
	}
	if h.Status != from {
		return domain.ErrHoldConflict
	}
	h.Status = to
	h.UpdatedAt = at
	f.holds[id] = h
	return nil
}

func (f *fakeStore) listHolds(match func(domain.Hold) bool) []domain.Hold {
	out := []domain.Hold{}
	for i := len(f.holdSeq) - 1; i >= 0; i-- {
		h := f.holds[f.holdSeq[i]]
		if match(h) {
			out = append(out, h)
		}
	}
	return out
}

func (f *fakeStore) ListHoldsForUnit(ctx context.Context, unitID string) ([]domain.Hold, error) {
	defer f.lock(ctx)()
	return f.listHolds(func(h domain.Hold) bool { return h.UnitID == unitID }), nil
}

func (f *fakeStore) ListHoldsForAgent(ctx context.Context, agentID string) ([]domain.Hold, error) {
	defer f.lock(ctx)()
	return f.listHolds(func(h domain.Hold) bool { return h.AgentID == agentID }), nil
}

func (f *fakeStore) ListExpiredHolds(ctx context.Context, holdType domain.HoldType, now time.Time, after *ExpiryCursor, limit int) ([]domain.Hold, error) {
	defer f.lock(ctx)()
	due := f.listHolds(func(h domain.Hold) bool {
		if h.Type != holdType || !h.Expired(now) {
			return false
		}
		if after == nil {
			return true
		}
		return h.ExpiresAt.After(after.ExpiresAt) || (h.ExpiresAt.Equal(after.ExpiresAt) && h.ID > after.ID)
	})
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].ExpiresAt.Equal(due[j].ExpiresAt) {
			return due[i].ExpiresAt.Before(due[j].ExpiresAt)
		}
		return due[i].ID < due[j].ID
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// --- deposits ---

func (f *fakeStore) deposit(id string) domain.Deposit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deposits[id]
}

func (f *fakeStore) CreateDeposit(ctx context.Context, deposit domain.Deposit) error {
	defer f.lock(ctx)()
	for _, d := range f.deposits {
		if d.UnitID == deposit.UnitID && d.IsOpen() {
			return domain.ErrHoldConflict
		}
	}
	f.deposits[deposit.ID] = deposit
	f.depSeq = append(f.depSeq, deposit.ID)
	return nil
}

func (f *fakeStore) GetDeposit(ctx context.Context, id string) (domain.Deposit, error) {
	defer f.lock(ctx)()
	d, ok := f.deposits[id]
	if !ok {
		return domain.Deposit{}, domain.ErrDepositNotFound
	}
	return d, nil
}

func (f *fakeStore) FindOpenDepositForUnit(ctx context.Context, unitID string) (*domain.Deposit, error) {
	defer f.lock(ctx)()
	for _, id := range f.depSeq {
		d := f.deposits[id]
		if d.UnitID == unitID && d.IsOpen() {
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateDepositStatus(ctx context.Context, id string, from, to domain.DepositStatus, at time.Time) error {
	defer f.lock(ctx)()
	d, ok := f.deposits[id]
	if !ok {
		return domain.ErrDepositNotFound
	}
	if d.Status != from {
		return domain.ErrHoldConflict
	}
	d.Status = to
	d.UpdatedAt = at
	f.deposits[id] = d
	return nil
}

func (f *fakeStore) RecordCommission(ctx context.Context, depositID string, c domain.Commission) error {
	defer f.lock(ctx)()
	d, ok := f.deposits[depositID]
	if !ok {
		return domain.ErrDepositNotFound
	}
	if d.Commission != nil {
		return domain.ErrCommissionRecorded
	}
	d.Commission = &c
	f.deposits[depositID] = d
	return nil
}

// --- helpers ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []LifecycleEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e LifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func quietLogger() *logrus.Logger {
	return logging.Discard()
}
