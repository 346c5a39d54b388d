// Package runtime wires the scheduler, the component registry, logging and
// the lifecycle event bus into one object driven by Tick.
package runtime

import (
	"time"

	"github.com/onart/YERM-sub001/internal/core/component"
	"github.com/onart/YERM-sub001/internal/core/events/bus"
	"github.com/onart/YERM-sub001/internal/core/observability/log"
	"github.com/onart/YERM-sub001/internal/core/scheduler"
)

type Option func(*Runtime)

func WithLogger(l log.Log) Option {
	return func(r *Runtime) { r.logger = l }
}

func WithBus(b bus.EventBus) Option {
	return func(r *Runtime) { r.bus = b }
}

type Runtime struct {
	cfg    Config
	logger log.Log
	bus    bus.EventBus
	sched  *scheduler.Scheduler
	comps  *component.Registry
}

// New validates cfg and builds a runtime. Without WithLogger a zap logger is
// built from cfg.Log.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runtime{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		level, _ := log.ParseLevel(cfg.Log.Level)
		if cfg.Log.Development {
			r.logger = log.NewDevelopment(level)
		} else {
			r.logger = log.New(level)
		}
	}
	if r.bus == nil {
		r.bus = bus.New()
	}

	events := &lifecycle{bus: r.bus, logger: r.logger}
	r.sched = scheduler.New(
		scheduler.WithLogger(r.logger.With(log.String("component", "scheduler"))),
		scheduler.WithLeakReport(cfg.Scheduler.ReportLeaks),
		scheduler.WithObserver(events),
	)
	r.comps = component.NewRegistry(r.sched,
		component.WithLogger(r.logger.With(log.String("component", "registry"))),
		component.WithDefaultCatchUp(cfg.Scheduler.CatchUpLimit),
		component.WithObserver(events),
	)
	r.logger.Debug("runtime ready",
		log.String("level", cfg.Log.Level),
		log.Bool("development", cfg.Log.Development),
		log.Bool("report_leaks", cfg.Scheduler.ReportLeaks),
		log.Int("catch_up_limit", cfg.Scheduler.CatchUpLimit),
	)
	return r, nil
}

func (r *Runtime) Config() Config                  { return r.cfg }
func (r *Runtime) Logger() log.Log                 { return r.logger }
func (r *Runtime) Bus() bus.EventBus               { return r.bus }
func (r *Runtime) Scheduler() *scheduler.Scheduler { return r.sched }
func (r *Runtime) Components() *component.Registry { return r.comps }

// Register adds a schedulable unit. It is safe for concurrent use.
func (r *Runtime) Register(target scheduler.Updater, cfg scheduler.Config) *scheduler.Unit {
	return r.sched.Register(target, cfg)
}

// Tick drives one frame.
func (r *Runtime) Tick(dt time.Duration) {
	r.sched.Tick(dt)
}

// ShutdownAll finalizes every component store, then tears down the
// scheduler. It returns the number of leaked units and may be called again.
func (r *Runtime) ShutdownAll() int {
	stores := r.comps.FinalizeAll()
	leaked := r.sched.Shutdown()
	st := r.sched.Stats()
	r.logger.Info("runtime shut down",
		log.Int("stores_finalized", stores),
		log.Int("leaked_units", leaked),
		log.Uint64("ticks", st.Ticks),
		log.Uint64("updates", st.Updates),
	)
	return leaked
}
