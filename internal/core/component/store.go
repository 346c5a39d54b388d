package component

import (
	"iter"
	"reflect"
	"time"

	"github.com/onart/YERM-sub001/internal/core/arena"
	"github.com/onart/YERM-sub001/internal/core/entity"
	"github.com/onart/YERM-sub001/internal/core/scheduler"
)

type row[T any] struct {
	value     T
	owner     entity.Entity
	ref       arena.Ref
	destroyed bool
}

// Store is the dense storage of one component type.
type Store[T any] struct {
	key      storeKey
	limit    int
	registry *Registry
	unit     *scheduler.Unit

	rows  []row[T]
	index map[uint64]arena.Ref
	slots *arena.Arena

	update  hookForm
	destroy hookForm
	nilable bool

	// iterating is set during a pass or finalization. New rows requested
	// while it is set are queued in deferred and appended after the pass;
	// finalization drops them.
	iterating  bool
	finalizing bool
	deferred   []entity.Entity
	retired    bool
}

func newStore[T any](r *Registry, key storeKey, limit int) *Store[T] {
	s := &Store[T]{
		key:      key,
		limit:    limit,
		registry: r,
		index:    make(map[uint64]arena.Ref),
		slots:    arena.New(16),
	}
	t := reflect.TypeFor[T]()
	s.update = detectHook(t, updatableType)
	s.destroy = detectHook(t, destroyableType)
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice:
		s.nilable = true
	}
	return s
}

// updater returns the Update hook of r, or nil when T has none or the row
// holds a nil value.
func (s *Store[T]) updater(r *row[T]) Updatable {
	switch s.update {
	case hookAddr:
		return any(&r.value).(Updatable)
	case hookValue:
		if s.isNil(r) {
			return nil
		}
		u, _ := any(r.value).(Updatable)
		return u
	}
	return nil
}

// destroyer returns the OnDestroy hook of r, or nil.
func (s *Store[T]) destroyer(r *row[T]) Destroyable {
	switch s.destroy {
	case hookAddr:
		return any(&r.value).(Destroyable)
	case hookValue:
		if s.isNil(r) {
			return nil
		}
		d, _ := any(r.value).(Destroyable)
		return d
	}
	return nil
}

func (s *Store[T]) isNil(r *row[T]) bool {
	return s.nilable && reflect.ValueOf(&r.value).Elem().IsNil()
}

// AddOrGet returns a reference to e's row, appending a zero-valued row if e
// has none. While the store is mid-pass no row is appended: an invalid
// reference is returned and the row is appended once the pass ends, so a
// later AddOrGet or Get finds it. Empty or dead entities always get an
// invalid reference.
func (s *Store[T]) AddOrGet(e entity.Entity) Pointer[T] {
	if !e.IsAlive() {
		return Pointer[T]{}
	}
	if ref, ok := s.index[e.ID()]; ok {
		return Pointer[T]{store: s, owner: e.ID(), ref: ref}
	}
	if s.iterating {
		if !s.finalizing {
			s.deferred = append(s.deferred, e.Clone())
		}
		return Pointer[T]{}
	}
	if s.retired {
		return s.registry.revive(s).(*Store[T]).AddOrGet(e)
	}

	return s.appendRow(e)
}

func (s *Store[T]) appendRow(e entity.Entity) Pointer[T] {
	ref := s.slots.Alloc(len(s.rows))
	s.rows = append(s.rows, row[T]{owner: e.Clone(), ref: ref})
	s.index[e.ID()] = ref
	return Pointer[T]{store: s, owner: e.ID(), ref: ref}
}

// flushDeferred appends rows requested during the last pass.
func (s *Store[T]) flushDeferred() {
	for i := range s.deferred {
		e := &s.deferred[i]
		if _, ok := s.index[e.ID()]; !ok && e.IsAlive() {
			s.appendRow(*e)
		}
		e.Reset()
	}
	s.deferred = s.deferred[:0]
}

// Get returns a reference to e's row, or an invalid reference.
func (s *Store[T]) Get(e entity.Entity) Pointer[T] {
	if e.IsEmpty() {
		return Pointer[T]{}
	}
	ref, ok := s.index[e.ID()]
	if !ok {
		return Pointer[T]{}
	}
	return Pointer[T]{store: s, owner: e.ID(), ref: ref}
}

// Has reports whether e owns a row in this store.
func (s *Store[T]) Has(e entity.Entity) bool {
	if e.IsEmpty() {
		return false
	}
	_, ok := s.index[e.ID()]
	return ok
}

// Remove detaches e's row, calls its OnDestroy hook and releases the row's
// owner. The row itself is reclaimed on the next pass.
func (s *Store[T]) Remove(e entity.Entity) {
	if e.IsEmpty() {
		return
	}
	ref, ok := s.index[e.ID()]
	if !ok {
		return
	}
	delete(s.index, e.ID())

	pos, ok := s.slots.Get(ref)
	if !ok {
		return
	}
	r := &s.rows[pos]
	owner := r.owner.Move()
	var hook Destroyable
	if !r.destroyed {
		hook = s.destroyer(r)
	}
	r.destroyed = true

	// the hook may append to this store; r must not be used past this point
	if hook != nil {
		hook.OnDestroy(owner)
	}
	owner.Reset()

	if s.registry.observer != nil {
		s.registry.observer.OnComponentRemoved(s.info(), e.ID())
	}
}

// Len returns the number of rows, including rows waiting to be reclaimed.
func (s *Store[T]) Len() int {
	return len(s.rows)
}

// Busy reports whether the store is mid-pass.
func (s *Store[T]) Busy() bool {
	return s.iterating
}

// Retired reports whether the store released itself after becoming empty.
func (s *Store[T]) Retired() bool {
	return s.retired
}

// Iterator returns a forward-only iterator over the live rows present now.
// It is invalidated by any add or remove that changes the row array.
func (s *Store[T]) Iterator() *Iterator[T] {
	return newIterator(s)
}

// All yields every live row present when iteration starts. The entity is
// borrowed.
func (s *Store[T]) All() iter.Seq2[entity.Entity, *T] {
	return func(yield func(entity.Entity, *T) bool) {
		it := s.Iterator()
		for it.Next() {
			if !yield(it.Entity(), it.Value()) {
				return
			}
		}
	}
}

// Update runs one pass over the rows: rows with a dead owner are swapped out
// and the Update hook runs for every other row. Rows requested during the
// pass are appended afterwards. A store left empty retires itself.
func (s *Store[T]) Update(dt time.Duration) {
	s.iterating = true
	for i := 0; i < len(s.rows); {
		r := &s.rows[i]
		if !r.owner.IsAlive() {
			// the row moved in from the end is examined on the next round
			s.reclaim(i)
			continue
		}
		if u := s.updater(r); u != nil {
			u.Update(dt, r.owner)
		}
		i++
	}
	s.iterating = false
	s.flushDeferred()

	if len(s.rows) == 0 {
		s.registry.retire(s)
	}
}

// reclaim swaps row i with the last row and pops it, keeping the slot of the
// moved row pointing at its new position.
func (s *Store[T]) reclaim(i int) {
	r := &s.rows[i]
	if id := r.owner.ID(); id != 0 {
		if ref, ok := s.index[id]; ok && ref == r.ref {
			delete(s.index, id)
		}
	}
	s.slots.Free(r.ref)

	owner := r.owner.Move()
	if !r.destroyed {
		r.destroyed = true
		if d := s.destroyer(r); d != nil {
			d.OnDestroy(owner)
		}
	}
	owner.Reset()

	last := len(s.rows) - 1
	if i != last {
		s.rows[i] = s.rows[last]
		s.slots.Set(s.rows[i].ref, i)
	}
	s.rows[last] = row[T]{}
	s.rows = s.rows[:last]
}

// finalize drops every row, calling OnDestroy for rows whose hook never ran.
func (s *Store[T]) finalize() {
	s.iterating = true
	s.finalizing = true
	for i := range s.deferred {
		s.deferred[i].Reset()
	}
	s.deferred = s.deferred[:0]
	for i := range s.rows {
		r := &s.rows[i]
		owner := r.owner.Move()
		if !r.destroyed {
			r.destroyed = true
			if d := s.destroyer(r); d != nil {
				d.OnDestroy(owner)
			}
		}
		owner.Reset()
	}
	clear(s.rows)
	s.rows = s.rows[:0]
	clear(s.index)
	s.slots.Reset()
	s.iterating = false
	s.finalizing = false
	s.detach()
}

func (s *Store[T]) attach() {
	s.retired = false
	s.unit = s.registry.sched.Register(s, scheduler.Config{
		Name:     s.key.name(),
		Period:   s.key.period,
		Limit:    s.limit,
		Priority: s.key.priority,
	})
}

func (s *Store[T]) detach() {
	s.retired = true
	if s.unit != nil {
		s.unit.Close()
		s.unit = nil
	}
}

func (s *Store[T]) storeKey() storeKey {
	return s.key
}

func (s *Store[T]) info() StoreInfo {
	return StoreInfo{
		TypeID:   s.key.id(),
		Name:     s.key.name(),
		Period:   s.key.period,
		Priority: s.key.priority,
		Rows:     len(s.rows),
	}
}
