// Package entity provides reference-counted entity handles.
//
// An Entity is a handle to a shared liveness cell. Copies made with Clone or
// Assign share the cell and bump its reference count; Reset releases one
// reference and frees the cell when the last one goes away. Destroy clears
// the liveness flag for every handle sharing the cell without freeing it.
//
// Plain Go assignment copies the handle without touching the count. Use
// Clone (or Assign) whenever the copy has its own lifetime.
package entity

import (
	"fmt"
	"sync/atomic"
)

var (
	nextID    atomic.Uint64
	liveCells atomic.Int64
)

// cell is the shared block behind every handle of the same entity.
type cell struct {
	id    uint64
	refs  atomic.Int32
	alive atomic.Bool
}

func (c *cell) retain() {
	c.refs.Add(1)
}

func (c *cell) release() {
	switch n := c.refs.Add(-1); {
	case n == 0:
		c.alive.Store(false)
		liveCells.Add(-1)
	case n < 0:
		panic(fmt.Sprintf("entity: cell %d released more often than retained", c.id))
	}
}

// Entity is a handle to an entity cell. The zero value is an empty handle.
type Entity struct {
	c *cell
}

// New allocates a fresh, alive entity and returns the only handle to it.
func New() Entity {
	c := &cell{id: nextID.Add(1)}
	c.refs.Store(1)
	c.alive.Store(true)
	liveCells.Add(1)
	return Entity{c: c}
}

// ID returns the process-unique identity of the underlying cell, or 0 for an
// empty handle.
func (e Entity) ID() uint64 {
	if e.c == nil {
		return 0
	}
	return e.c.id
}

// IsAlive reports whether the handle is bound and nobody called Destroy.
func (e Entity) IsAlive() bool {
	return e.c != nil && e.c.alive.Load()
}

// IsEmpty reports whether the handle is unbound.
func (e Entity) IsEmpty() bool {
	return e.c == nil
}

// Destroy marks the entity dead for all handles sharing its cell.
func (e Entity) Destroy() {
	if e.c != nil {
		e.c.alive.Store(false)
	}
}

// Clone returns a new handle to the same cell.
func (e Entity) Clone() Entity {
	if e.c != nil {
		e.c.retain()
	}
	return e
}

// Assign rebinds e to the cell of src, releasing whatever e held before.
func (e *Entity) Assign(src Entity) {
	if e.c == src.c {
		return
	}
	if src.c != nil {
		src.c.retain()
	}
	old := e.c
	e.c = src.c
	if old != nil {
		old.release()
	}
}

// Move transfers the reference held by e to the returned handle and leaves e
// empty. The reference count is unchanged.
func (e *Entity) Move() Entity {
	out := Entity{c: e.c}
	e.c = nil
	return out
}

// Reset releases this handle's reference. The cell is freed once the last
// reference is released.
func (e *Entity) Reset() {
	if e.c == nil {
		return
	}
	c := e.c
	e.c = nil
	c.release()
}

// Equal compares cell identity.
func (e Entity) Equal(o Entity) bool {
	return e.c == o.c
}

// Refs returns the number of handles currently retaining the cell.
func (e Entity) Refs() int32 {
	if e.c == nil {
		return 0
	}
	return e.c.refs.Load()
}

func (e Entity) String() string {
	if e.c == nil {
		return "entity(empty)"
	}
	if !e.c.alive.Load() {
		return fmt.Sprintf("entity(%d, dead)", e.c.id)
	}
	return fmt.Sprintf("entity(%d)", e.c.id)
}

// LiveCells returns the number of entity cells that have not been freed.
func LiveCells() int64 {
	return liveCells.Load()
}
