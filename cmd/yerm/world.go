package main

import (
	"math/rand/v2"
	"time"

	"github.com/onart/YERM-sub001/internal/core/component"
	"github.com/onart/YERM-sub001/internal/core/entity"
	"github.com/onart/YERM-sub001/internal/core/runtime"
	"github.com/onart/YERM-sub001/internal/core/scheduler"
)

const physicsStep = 10 * time.Millisecond

type vec struct{ X, Y float64 }

// motion integrates on a fixed step ahead of everything else.
type motion struct {
	Pos, Vel vec
}

func (m *motion) Update(dt time.Duration, _ entity.Entity) {
	s := dt.Seconds()
	m.Pos.X += m.Vel.X * s
	m.Pos.Y += m.Vel.Y * s
}

// lifetime destroys its owner once it runs out.
type lifetime struct {
	Left  time.Duration
	world *world
}

func (l *lifetime) Update(dt time.Duration, owner entity.Entity) {
	l.Left -= dt
	if l.Left <= 0 {
		owner.Destroy()
	}
}

func (l *lifetime) OnDestroy(entity.Entity) {
	if l.world != nil {
		l.world.live--
	}
}

type world struct {
	rt      *runtime.Runtime
	spawner *scheduler.Unit
	handles []entity.Scoped
	live    int
}

func newWorld(rt *runtime.Runtime, every time.Duration) *world {
	w := &world{rt: rt}
	w.spawner = rt.Register(scheduler.UpdateFunc(w.spawn), scheduler.Config{
		Name:     "spawner",
		Period:   every,
		Limit:    1,
		Priority: 1,
	})
	return w
}

func (w *world) spawn(time.Duration) {
	w.prune()

	h := entity.NewScoped()
	e := *h.Get()
	reg := w.rt.Components()

	m := component.Add[motion](reg, e, component.WithPeriod(physicsStep), component.WithPriority(-1))
	if p := m.Get(); p != nil {
		p.Vel = vec{X: rand.Float64()*2 - 1, Y: rand.Float64()*2 - 1}
	}
	lt := component.Add[lifetime](reg, e)
	if p := lt.Get(); p != nil {
		p.Left = time.Duration(500+rand.IntN(1500)) * time.Millisecond
		p.world = w
		w.live++
	}
	w.handles = append(w.handles, h)
}

// prune drops handles whose entity already died.
func (w *world) prune() {
	kept := w.handles[:0]
	for i := range w.handles {
		if w.handles[i].IsAlive() {
			kept = append(kept, w.handles[i])
			continue
		}
		w.handles[i].Reset()
	}
	clear(w.handles[len(kept):])
	w.handles = kept
}

func (w *world) alive() int {
	return w.live
}

// close releases every spawned entity and unregisters the spawner.
func (w *world) close() {
	w.spawner.Close()
	for i := range w.handles {
		w.handles[i].Reset()
	}
	w.handles = nil
}
