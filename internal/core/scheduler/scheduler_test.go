package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/onart/YERM-sub001/internal/core/observability/log"
)

type counter struct {
	calls int
	dts   []time.Duration
}

func (c *counter) Update(dt time.Duration) {
	c.calls++
	c.dts = append(c.dts, dt)
}

type recorder struct {
	admitted []UnitInfo
	leaked   []UnitInfo
}

func (r *recorder) OnAdmitted(u UnitInfo) { r.admitted = append(r.admitted, u) }
func (r *recorder) OnLeaked(u UnitInfo)   { r.leaked = append(r.leaked, u) }

func newTestScheduler(opts ...Option) *Scheduler {
	return New(append([]Option{WithLogger(log.NewNop())}, opts...)...)
}

func TestFixedTimestepCatchUp(t *testing.T) {
	s := newTestScheduler()
	c := &counter{}
	u := s.Register(c, Config{Period: 10 * time.Millisecond, Limit: 5})

	s.Tick(47 * time.Millisecond)

	assert.Equal(t, 4, c.calls)
	for _, dt := range c.dts {
		assert.Equal(t, 10*time.Millisecond, dt, "fixed updates receive the period, not the frame delta")
	}
	assert.Equal(t, 7*time.Millisecond, u.Elapsed())
	assert.Equal(t, StateActive, u.State())
	assert.EqualValues(t, 3, s.Stats().CatchUpPasses)
}

func TestCatchUpBoundedByLimit(t *testing.T) {
	s := newTestScheduler()
	c := &counter{}
	u := s.Register(c, Config{Period: 10 * time.Millisecond, Limit: 2})

	s.Tick(47 * time.Millisecond)
	assert.Equal(t, 2, c.calls)
	assert.Equal(t, 27*time.Millisecond, u.Elapsed())

	// a zero delta never refills the budget
	s.Tick(0)
	assert.Equal(t, 2, c.calls)

	s.Tick(time.Millisecond)
	assert.Equal(t, 4, c.calls)
	assert.Equal(t, 8*time.Millisecond, u.Elapsed())
}

func TestZeroPeriodReceivesRealDelta(t *testing.T) {
	s := newTestScheduler()
	c := &counter{}
	s.Register(c, Config{})

	s.Tick(16 * time.Millisecond)
	s.Tick(0)
	s.Tick(-time.Millisecond)

	require.Equal(t, 3, c.calls)
	assert.Equal(t, []time.Duration{16 * time.Millisecond, 0, 0}, c.dts)
}

func TestSlowUnitDoesNotFireEarly(t *testing.T) {
	s := newTestScheduler()
	c := &counter{}
	s.Register(c, Config{Period: 100 * time.Millisecond, Limit: 3})

	for i := 0; i < 9; i++ {
		s.Tick(10 * time.Millisecond)
	}
	assert.Zero(t, c.calls)

	s.Tick(10 * time.Millisecond)
	assert.Equal(t, 1, c.calls)
}

func TestPriorityOrdering(t *testing.T) {
	s := newTestScheduler()
	var seq []int
	add := func(p int) {
		s.Register(UpdateFunc(func(time.Duration) { seq = append(seq, p) }), Config{Priority: p})
	}
	add(1)
	add(0)
	add(-1)

	s.Tick(time.Millisecond)
	assert.Equal(t, []int{-1, 0, 1}, seq)
}

func TestEqualPriorityKeepsRegistrationOrder(t *testing.T) {
	s := newTestScheduler()
	var seq []string
	add := func(name string, p int) {
		s.Register(UpdateFunc(func(time.Duration) { seq = append(seq, name) }), Config{Name: name, Priority: p})
	}
	add("late-a", 2)
	add("early-5", -5)
	add("late-b", 2)
	add("normal-a", 0)
	add("late-1", 1)
	add("early-1a", -1)
	add("normal-b", 0)
	add("early-1b", -1)

	s.Tick(time.Millisecond)
	assert.Equal(t, []string{
		"early-5", "early-1a", "early-1b",
		"normal-a", "normal-b",
		"late-1", "late-a", "late-b",
	}, seq)
}

func TestRegistrationAdmittedNextTick(t *testing.T) {
	s := newTestScheduler()
	inner := &counter{}
	var u *Unit
	s.Register(UpdateFunc(func(time.Duration) {
		if u == nil {
			u = s.Register(inner, Config{})
		}
	}), Config{})

	s.Tick(time.Millisecond)
	require.NotNil(t, u)
	assert.Equal(t, StatePending, u.State())
	assert.Zero(t, inner.calls)

	s.Tick(time.Millisecond)
	assert.Equal(t, StateActive, u.State())
	assert.Equal(t, 1, inner.calls)
}

func TestCloseIsLazyAndSafeMidTick(t *testing.T) {
	s := newTestScheduler()
	victim := &counter{}
	var victimUnit *Unit

	s.Register(UpdateFunc(func(time.Duration) {
		victimUnit.Close()
	}), Config{Priority: -1})
	victimUnit = s.Register(victim, Config{})
	lateVictim := s.Register(&counter{}, Config{Priority: 3})
	lateVictim.Close()

	s.Tick(time.Millisecond)
	assert.Zero(t, victim.calls)
	assert.Equal(t, StateDead, victimUnit.State())

	st := s.Stats()
	assert.Equal(t, 0, st.Normal)
	assert.Equal(t, 0, st.Late)
	assert.EqualValues(t, 2, st.Purged)
}

func TestCloseDuringCatchUpStopsDrain(t *testing.T) {
	s := newTestScheduler()
	var u *Unit
	calls := 0
	u = s.Register(UpdateFunc(func(time.Duration) {
		calls++
		if calls == 2 {
			u.Close()
		}
	}), Config{Period: time.Millisecond, Limit: 10})

	s.Tick(20 * time.Millisecond)
	assert.Equal(t, 2, calls)
}

func TestPendingClosedBeforeAdmission(t *testing.T) {
	s := newTestScheduler()
	c := &counter{}
	u := s.Register(c, Config{})
	u.Close()

	s.Tick(time.Millisecond)
	assert.Zero(t, c.calls)
	assert.Zero(t, s.Stats().Normal)
}

func TestConcurrentRegistration(t *testing.T) {
	s := newTestScheduler()
	var mu sync.Mutex
	calls := 0
	fn := UpdateFunc(func(time.Duration) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Register(fn, Config{Priority: j%3 - 1})
			}
		}()
	}
	wg.Wait()

	s.Tick(time.Millisecond)
	assert.Equal(t, 400, calls)
}

func TestShutdownReportsLeaksOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := &recorder{}
	s := New(
		WithLogger(log.FromZap(zap.New(core), log.LevelDebug)),
		WithObserver(rec),
	)

	s.Register(&counter{}, Config{Name: "physics"})
	s.Register(&counter{}, Config{Name: "ai", Priority: -2})
	closed := s.Register(&counter{}, Config{Name: "closed"})
	s.Tick(time.Millisecond)
	closed.Close()
	s.Register(&counter{}, Config{Name: "never-admitted"})

	assert.Equal(t, 3, s.Shutdown())
	assert.Len(t, rec.leaked, 3)
	assert.Len(t, rec.admitted, 3)
	assert.Equal(t, 4, logs.FilterMessage("unit still registered at shutdown").Len()+
		logs.FilterMessage("scheduler shutdown with leaked units").Len())

	assert.Zero(t, s.Shutdown())
	assert.Len(t, rec.leaked, 3)

	// ticking after shutdown is harmless
	s.Tick(time.Millisecond)
}

func TestShutdownWithoutLeakReport(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(WithLeakReport(false), WithObserver(rec))
	s.Register(&counter{}, Config{})

	assert.Equal(t, 1, s.Shutdown())
	assert.Empty(t, rec.leaked)
}

func TestLimitClamp(t *testing.T) {
	s := newTestScheduler()
	u := s.Register(&counter{}, Config{Period: -time.Second, Limit: 0})
	assert.Zero(t, u.Period())
	assert.Equal(t, 1, u.Limit())
	assert.NotEmpty(t, u.ID())
}
