package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocGetSet(t *testing.T) {
	a := New(4)
	r := a.Alloc(3)

	v, ok := a.Get(r)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	require.True(t, a.Set(r, 9))
	v, _ = a.Get(r)
	assert.Equal(t, 9, v)
	assert.Equal(t, 1, a.Len())
}

func TestStaleRefAfterReuse(t *testing.T) {
	a := New(1)
	old := a.Alloc(1)
	require.True(t, a.Free(old))
	assert.False(t, a.Free(old))

	fresh := a.Alloc(2)
	_, ok := a.Get(old)
	assert.False(t, ok, "stale handle must not resolve after the slot is reused")
	assert.False(t, a.Set(old, 5))

	v, ok := a.Get(fresh)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestZeroRef(t *testing.T) {
	a := New(0)
	var r Ref
	assert.True(t, r.IsZero())
	_, ok := a.Get(r)
	assert.False(t, ok)

	a.Alloc(0)
	_, ok = a.Get(r)
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	a := New(2)
	r1 := a.Alloc(1)
	r2 := a.Alloc(2)
	a.Reset()

	assert.Zero(t, a.Len())
	_, ok := a.Get(r1)
	assert.False(t, ok)
	_, ok = a.Get(r2)
	assert.False(t, ok)

	r3 := a.Alloc(3)
	v, ok := a.Get(r3)
	require.True(t, ok)
	assert.Equal(t, 3, v)
}
