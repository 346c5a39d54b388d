package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Updater receives periodic update calls. dt is the real frame delta for
// units with a zero period, and the fixed period otherwise.
type Updater interface {
	Update(dt time.Duration)
}

// UpdateFunc adapts a plain function to Updater.
type UpdateFunc func(dt time.Duration)

func (f UpdateFunc) Update(dt time.Duration) { f(dt) }

// Config describes how a unit is scheduled.
type Config struct {
	// Name is used in diagnostics only.
	Name string
	// Period is the fixed update interval. Zero means every tick with the
	// real delta.
	Period time.Duration
	// Limit is the maximum number of fixed-period updates a unit may fire
	// during one tick. Values below 1 are treated as 1.
	Limit int
	// Priority selects the bucket: negative runs early, zero normal,
	// positive late. Within early and late, lower values run first.
	Priority int
}

// State is the lifecycle state of a unit.
type State uint32

const (
	StatePending State = iota
	StateActive
	StateDead
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Unit is a registered schedulable unit. Its timing fields are touched only
// by the ticking goroutine; Close may be called from anywhere.
type Unit struct {
	id       string
	name     string
	target   Updater
	period   time.Duration
	clock    time.Duration
	limit    int
	left     int
	priority int
	state    atomic.Uint32
}

func newUnit(target Updater, cfg Config) *Unit {
	if cfg.Period < 0 {
		cfg.Period = 0
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	return &Unit{
		id:       uuid.NewString(),
		name:     cfg.Name,
		target:   target,
		period:   cfg.Period,
		clock:    cfg.Period,
		limit:    cfg.Limit,
		priority: cfg.Priority,
	}
}

func (u *Unit) ID() string             { return u.id }
func (u *Unit) Name() string           { return u.name }
func (u *Unit) Period() time.Duration  { return u.period }
func (u *Unit) Priority() int          { return u.priority }
func (u *Unit) Limit() int             { return u.limit }
func (u *Unit) State() State           { return State(u.state.Load()) }
func (u *Unit) dead() bool             { return u.State() == StateDead }
func (u *Unit) info() UnitInfo         { return UnitInfo{ID: u.id, Name: u.name, Period: u.period, Priority: u.priority} }
func (u *Unit) setState(s State) State { return State(u.state.Swap(uint32(s))) }

// Elapsed returns how much time has accumulated towards the next fixed
// update. It is always zero for units with a zero period.
func (u *Unit) Elapsed() time.Duration {
	if u.period == 0 {
		return 0
	}
	return u.period - u.clock
}

// Close marks the unit dead. The scheduler drops it the next time it walks
// the bucket holding it. Close is idempotent and safe to call mid-tick.
func (u *Unit) Close() {
	u.setState(StateDead)
}

// run fires at most one update. It reports whether the unit still owes a
// catch-up update in this tick, and how many updates it fired.
func (u *Unit) run(dt time.Duration) (more bool, fired int) {
	if u.period == 0 {
		u.target.Update(dt)
		return false, 1
	}

	if dt > 0 {
		u.clock -= dt
		u.left = u.limit
	}
	if u.clock > 0 || u.left == 0 {
		return false, 0
	}

	u.clock += u.period
	u.left--
	u.target.Update(u.period)

	return u.clock <= 0 && u.left > 0 && !u.dead(), 1
}

// UnitInfo is a value snapshot of a unit for observers and logs.
type UnitInfo struct {
	ID       string
	Name     string
	Period   time.Duration
	Priority int
}
