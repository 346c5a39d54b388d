package component

import "github.com/onart/YERM-sub001/internal/core/entity"

// Iterator walks the live rows of a store that existed when it was created.
// Rows detached by Remove or owned by a dead entity are skipped; they are
// reclaimed on the next pass.
//
//	it := store.Iterator()
//	for it.Next() {
//	    use(it.Entity(), it.Value())
//	}
type Iterator[T any] struct {
	store *Store[T]
	end   int
	count int
	pos   int
}

func newIterator[T any](s *Store[T]) *Iterator[T] {
	it := &Iterator[T]{store: s, end: len(s.rows), pos: -1}
	for i := range s.rows {
		if s.rows[i].owner.IsAlive() {
			it.count++
		}
	}
	return it
}

// Next advances to the next live row. It returns false once every row
// present at creation was visited.
func (it *Iterator[T]) Next() bool {
	for it.pos+1 < it.end && it.pos+1 < len(it.store.rows) {
		it.pos++
		if it.store.rows[it.pos].owner.IsAlive() {
			return true
		}
	}
	it.pos = it.end
	return false
}

// Entity returns the owner of the current row (borrowed).
func (it *Iterator[T]) Entity() entity.Entity {
	return it.store.rows[it.pos].owner
}

// Value returns the component of the current row.
func (it *Iterator[T]) Value() *T {
	return &it.store.rows[it.pos].value
}

// Count returns the number of live rows present when the iterator was
// created.
func (it *Iterator[T]) Count() int {
	return it.count
}
