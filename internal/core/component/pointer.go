package component

import (
	"github.com/onart/YERM-sub001/internal/core/arena"
	"github.com/onart/YERM-sub001/internal/core/entity"
)

// Pointer is a stable reference to one row of a store. It survives
// swap-and-pop compaction: every dereference resolves the row's current
// position through its slot and checks that the row still belongs to the
// same entity. The zero Pointer is invalid.
type Pointer[T any] struct {
	store *Store[T]
	owner uint64
	ref   arena.Ref
}

// Get returns the component, or nil when the row is gone. The returned
// pointer must not be kept across operations that append to the store.
func (p Pointer[T]) Get() *T {
	r := p.row()
	if r == nil {
		return nil
	}
	return &r.value
}

// Valid reports whether the reference still resolves.
func (p Pointer[T]) Valid() bool {
	return p.row() != nil
}

// Entity returns the owner of the row (borrowed), or an empty handle.
func (p Pointer[T]) Entity() entity.Entity {
	r := p.row()
	if r == nil {
		return entity.Entity{}
	}
	return r.owner
}

// Store returns the store the reference points into, or nil.
func (p Pointer[T]) Store() *Store[T] {
	return p.store
}

func (p Pointer[T]) row() *row[T] {
	if p.store == nil || p.owner == 0 {
		return nil
	}
	pos, ok := p.store.slots.Get(p.ref)
	if !ok || pos < 0 || pos >= len(p.store.rows) {
		return nil
	}
	r := &p.store.rows[pos]
	if r.owner.ID() != p.owner {
		return nil
	}
	return r
}
