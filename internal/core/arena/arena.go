// Package arena implements a generational slot arena.
//
// A slot stores one integer (the current position of a row in some dense
// array). Handles are (slot, generation) pairs: freeing a slot bumps its
// generation, so handles taken before the free stop resolving even when the
// slot is later reused. The arena is not safe for concurrent use.
package arena

// Ref is a handle to a slot. The zero Ref never resolves.
type Ref struct {
	slot uint32
	gen  uint32
}

// IsZero reports whether r is the zero handle.
func (r Ref) IsZero() bool {
	return r.gen == 0
}

type slot struct {
	value int
	gen   uint32
	used  bool
}

// Arena is a free-listed array of generational slots.
type Arena struct {
	slots []slot
	free  []uint32
	live  int
}

// New returns an arena with room for capacity slots before growing.
func New(capacity int) *Arena {
	return &Arena{
		slots: make([]slot, 0, capacity),
	}
}

// Alloc takes a slot, stores value in it and returns its handle.
func (a *Arena) Alloc(value int) Ref {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		// generations start at 1 so the zero Ref is never valid
		a.slots = append(a.slots, slot{gen: 1})
	}
	s := &a.slots[idx]
	s.value = value
	s.used = true
	a.live++
	return Ref{slot: idx, gen: s.gen}
}

// Get resolves r. ok is false for stale or zero handles.
func (a *Arena) Get(r Ref) (value int, ok bool) {
	s := a.lookup(r)
	if s == nil {
		return 0, false
	}
	return s.value, true
}

// Set updates the value behind r. It reports false for stale handles.
func (a *Arena) Set(r Ref, value int) bool {
	s := a.lookup(r)
	if s == nil {
		return false
	}
	s.value = value
	return true
}

// Free releases the slot behind r and invalidates every copy of r.
func (a *Arena) Free(r Ref) bool {
	s := a.lookup(r)
	if s == nil {
		return false
	}
	s.used = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, r.slot)
	a.live--
	return true
}

// Len returns the number of allocated slots.
func (a *Arena) Len() int {
	return a.live
}

// Reset frees every slot. Outstanding handles stop resolving.
func (a *Arena) Reset() {
	a.free = a.free[:0]
	for i := range a.slots {
		s := &a.slots[i]
		if s.used {
			s.used = false
			s.gen++
			if s.gen == 0 {
				s.gen = 1
			}
		}
		a.free = append(a.free, uint32(i))
	}
	a.live = 0
}

func (a *Arena) lookup(r Ref) *slot {
	if r.gen == 0 || int(r.slot) >= len(a.slots) {
		return nil
	}
	s := &a.slots[r.slot]
	if !s.used || s.gen != r.gen {
		return nil
	}
	return s
}
