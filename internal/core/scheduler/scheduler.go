// Package scheduler drives schedulable units once per frame.
//
// Units are registered from any goroutine and admitted into a priority
// bucket on the next tick. Exactly one goroutine calls Tick. Within a tick
// the early bucket runs first (ascending priority), then the normal bucket
// in admission order, then the late bucket (ascending priority). Units with
// a fixed period that fell behind are re-run with a zero delta until each
// has either caught up or spent its per-tick limit.
package scheduler

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onart/YERM-sub001/internal/core/observability/log"
)

// Observer is notified about unit lifecycle transitions. Callbacks run on the
// ticking goroutine.
type Observer interface {
	OnAdmitted(UnitInfo)
	OnLeaked(UnitInfo)
}

type Option func(*Scheduler)

func WithLogger(l log.Log) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLeakReport enables reporting of units still registered at Shutdown.
func WithLeakReport(enabled bool) Option {
	return func(s *Scheduler) { s.reportLeaks = enabled }
}

func WithObserver(obs Observer) Option {
	return func(s *Scheduler) {
		if obs != nil {
			s.observers = append(s.observers, obs)
		}
	}
}

type Scheduler struct {
	mu      sync.Mutex
	pending []*Unit

	early  []*Unit
	normal []*Unit
	late   []*Unit

	// catch-up double buffer
	work []*Unit
	next []*Unit

	logger      log.Log
	reportLeaks bool
	observers   []Observer

	ticks   atomic.Uint64
	updates atomic.Uint64
	passes  atomic.Uint64
	purged  atomic.Uint64
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:      log.Provide(),
		reportLeaks: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a pending unit for target. It is safe for concurrent use
// and may be called during a tick; the unit is admitted on the following tick.
func (s *Scheduler) Register(target Updater, cfg Config) *Unit {
	if target == nil {
		panic("scheduler: Register with nil target")
	}
	u := newUnit(target, cfg)

	s.mu.Lock()
	s.pending = append(s.pending, u)
	s.mu.Unlock()

	return u
}

// Tick drives one frame with the elapsed wall time dt. Negative deltas are
// treated as zero.
func (s *Scheduler) Tick(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	s.ticks.Add(1)
	s.admit()

	s.work = s.work[:0]
	s.early = s.runOrdered(s.early, dt)
	s.runNormal(dt)
	s.late = s.runOrdered(s.late, dt)
	s.drain()

	s.normal = compact(s.normal, &s.purged)
}

// admit moves pending units into their buckets.
func (s *Scheduler) admit() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, u := range pending {
		if u.dead() {
			s.purged.Add(1)
			continue
		}
		if !u.state.CompareAndSwap(uint32(StatePending), uint32(StateActive)) {
			// closed concurrently between the check and the swap
			s.purged.Add(1)
			continue
		}
		switch {
		case u.priority < 0:
			s.early = insertByPriority(s.early, u)
		case u.priority > 0:
			s.late = insertByPriority(s.late, u)
		default:
			s.normal = append(s.normal, u)
		}
		s.logger.Debug("unit admitted",
			log.String("unit", u.name),
			log.String("id", u.id),
			log.Int("priority", u.priority),
			log.Duration("period", u.period),
		)
		for _, obs := range s.observers {
			obs.OnAdmitted(u.info())
		}
	}
}

// runOrdered runs an early or late bucket and drops tombstones in place.
func (s *Scheduler) runOrdered(bucket []*Unit, dt time.Duration) []*Unit {
	w := 0
	for _, u := range bucket {
		if u.dead() {
			s.purged.Add(1)
			continue
		}
		bucket[w] = u
		w++
		s.runUnit(u, dt)
	}
	clear(bucket[w:])
	return bucket[:w]
}

func (s *Scheduler) runNormal(dt time.Duration) {
	for _, u := range s.normal {
		if u.dead() {
			continue
		}
		s.runUnit(u, dt)
	}
}

func (s *Scheduler) runUnit(u *Unit, dt time.Duration) {
	more, fired := u.run(dt)
	if fired > 0 {
		s.updates.Add(uint64(fired))
	}
	if more {
		s.work = append(s.work, u)
	}
}

// drain re-runs units that still owe catch-up updates with a zero delta until
// every one of them is settled.
func (s *Scheduler) drain() {
	for len(s.work) > 0 {
		s.passes.Add(1)
		s.next = s.next[:0]
		for _, u := range s.work {
			if u.dead() {
				continue
			}
			more, fired := u.run(0)
			s.updates.Add(uint64(fired))
			if more {
				s.next = append(s.next, u)
			}
		}
		clear(s.work)
		s.work, s.next = s.next, s.work
	}
}

// Shutdown tears down every registered unit. Units still alive are reported as
// leaks when leak reporting is enabled, then closed. It returns the number of
// leaked units; a second call returns zero.
func (s *Scheduler) Shutdown() int {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	leaked := 0
	report := func(u *Unit) {
		if u.setState(StateDead) == StateDead {
			return
		}
		leaked++
		if !s.reportLeaks {
			return
		}
		s.logger.Warn("unit still registered at shutdown",
			log.String("unit", u.name),
			log.String("id", u.id),
			log.Int("priority", u.priority),
			log.Duration("period", u.period),
		)
		for _, obs := range s.observers {
			obs.OnLeaked(u.info())
		}
	}

	for _, bucket := range [][]*Unit{s.early, s.normal, s.late, pending} {
		for _, u := range bucket {
			report(u)
		}
	}

	clear(s.early)
	clear(s.normal)
	clear(s.late)
	clear(s.work)
	s.early, s.normal, s.late, s.work = s.early[:0], s.normal[:0], s.late[:0], s.work[:0]

	if leaked > 0 && s.reportLeaks {
		s.logger.Warn("scheduler shutdown with leaked units", log.Int("count", leaked))
	}
	return leaked
}

// Stats is a snapshot of scheduler counters. Bucket sizes include tombstones
// that have not been compacted yet.
type Stats struct {
	Ticks         uint64
	Updates       uint64
	CatchUpPasses uint64
	Purged        uint64
	Pending       int
	Early         int
	Normal        int
	Late          int
}

// Stats must be called from the ticking goroutine.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()

	return Stats{
		Ticks:         s.ticks.Load(),
		Updates:       s.updates.Load(),
		CatchUpPasses: s.passes.Load(),
		Purged:        s.purged.Load(),
		Pending:       pending,
		Early:         len(s.early),
		Normal:        len(s.normal),
		Late:          len(s.late),
	}
}

// insertByPriority keeps the bucket sorted by ascending priority, appending
// after existing units of equal priority.
func insertByPriority(bucket []*Unit, u *Unit) []*Unit {
	i := sort.Search(len(bucket), func(i int) bool {
		return bucket[i].priority > u.priority
	})
	bucket = append(bucket, nil)
	copy(bucket[i+1:], bucket[i:])
	bucket[i] = u
	return bucket
}

func compact(bucket []*Unit, purged *atomic.Uint64) []*Unit {
	w := 0
	for _, u := range bucket {
		if u.dead() {
			purged.Add(1)
			continue
		}
		bucket[w] = u
		w++
	}
	clear(bucket[w:])
	return bucket[:w]
}
