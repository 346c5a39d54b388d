package entity

import (
	"fmt"
	"sync/atomic"
)

// scopedCell owns one reference to an entity. Its count is independent of
// the entity cell's count.
type scopedCell struct {
	refs atomic.Int32
	ent  Entity
}

// Scoped is a shared owner of an entity: when the last Scoped handle is
// released the wrapped entity is destroyed. Other plain handles to the same
// entity stay valid and observe IsAlive() == false afterwards.
type Scoped struct {
	s *scopedCell
}

// NewScoped creates a new entity owned by the returned scoped handle.
func NewScoped() Scoped {
	return Own(New())
}

// Own takes over the reference held by e. e is left empty.
func Own(e Entity) Scoped {
	if e.IsEmpty() {
		return Scoped{}
	}
	s := &scopedCell{ent: e.Move()}
	s.refs.Store(1)
	return Scoped{s: s}
}

// Get exposes the wrapped entity handle, e.g. for attaching components.
// It returns nil for an empty scoped handle.
func (s Scoped) Get() *Entity {
	if s.s == nil {
		return nil
	}
	return &s.s.ent
}

// Entity returns a new plain handle to the wrapped entity.
func (s Scoped) Entity() Entity {
	if s.s == nil {
		return Entity{}
	}
	return s.s.ent.Clone()
}

// IsAlive reports whether the wrapped entity is alive.
func (s Scoped) IsAlive() bool {
	return s.s != nil && s.s.ent.IsAlive()
}

func (s Scoped) Clone() Scoped {
	if s.s != nil {
		s.s.refs.Add(1)
	}
	return s
}

func (s *Scoped) Assign(src Scoped) {
	if s.s == src.s {
		return
	}
	if src.s != nil {
		src.s.refs.Add(1)
	}
	old := s.s
	s.s = src.s
	if old != nil {
		old.release()
	}
}

func (s *Scoped) Move() Scoped {
	out := Scoped{s: s.s}
	s.s = nil
	return out
}

// Reset releases this scoped reference. The last release destroys the entity.
func (s *Scoped) Reset() {
	if s.s == nil {
		return
	}
	c := s.s
	s.s = nil
	c.release()
}

func (s Scoped) Equal(o Scoped) bool {
	return s.s == o.s
}

func (s Scoped) Refs() int32 {
	if s.s == nil {
		return 0
	}
	return s.s.refs.Load()
}

func (c *scopedCell) release() {
	switch n := c.refs.Add(-1); {
	case n == 0:
		c.ent.Destroy()
		c.ent.Reset()
	case n < 0:
		panic(fmt.Sprintf("entity: scoped handle of %d released more often than retained", c.ent.ID()))
	}
}
