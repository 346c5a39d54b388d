// Package component stores typed component data for entities.
//
// Each (component type, period, priority) triple owns one Store: a dense
// array of rows plus an index from entity id to a generational slot that
// tracks the row's current position. Stores register themselves with the
// scheduler and, on every pass, reap rows whose owner died and call the
// optional Update hook of the rest.
//
// Stores are not safe for concurrent use. Only store creation (through the
// Registry) may happen off the ticking goroutine.
package component

import (
	"fmt"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/onart/YERM-sub001/internal/core/entity"
)

// Updatable is implemented by components that want a per-pass callback.
// dt is the real frame delta for stores with a zero period and the fixed
// period otherwise. owner is borrowed; Clone it to keep it.
type Updatable interface {
	Update(dt time.Duration, owner entity.Entity)
}

// Destroyable is implemented by components that need cleanup. OnDestroy is
// called exactly once per row: on explicit removal, when the owner is found
// dead, or when the store is finalized.
type Destroyable interface {
	OnDestroy(owner entity.Entity)
}

var (
	updatableType   = reflect.TypeFor[Updatable]()
	destroyableType = reflect.TypeFor[Destroyable]()
)

// hookForm records how a capability is reached on a stored value.
type hookForm uint8

const (
	hookNone hookForm = iota
	// *T implements the capability: call through the row's address.
	hookAddr
	// T itself implements it, e.g. a pointer or interface component type.
	hookValue
)

func detectHook(t, iface reflect.Type) hookForm {
	switch {
	case reflect.PointerTo(t).Implements(iface):
		return hookAddr
	case t.Implements(iface):
		return hookValue
	}
	return hookNone
}

type storeConfig struct {
	period   time.Duration
	priority int
	limit    int
}

type Option func(*storeConfig)

// WithPeriod selects the fixed update interval of the store.
func WithPeriod(d time.Duration) Option {
	return func(c *storeConfig) { c.period = d }
}

// WithPriority selects the scheduler bucket of the store.
func WithPriority(p int) Option {
	return func(c *storeConfig) { c.priority = p }
}

// WithCatchUp overrides the registry's default catch-up limit. It only takes
// effect when the store is created.
func WithCatchUp(limit int) Option {
	return func(c *storeConfig) { c.limit = limit }
}

// storeKey identifies one store. Period and priority are part of the
// identity: the same type scheduled differently lives in separate stores.
type storeKey struct {
	typ      reflect.Type
	period   time.Duration
	priority int
}

func (k storeKey) name() string {
	return k.typ.String()
}

// TypeID is a stable 64-bit id of a store key, suitable for logs and events.
type TypeID uint64

func (id TypeID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

func (k storeKey) id() TypeID {
	return TypeID(xxhash.Sum64String(fmt.Sprintf("%s|%d|%d", k.typ.String(), k.period, k.priority)))
}

func keyFor[T any](opts []Option) (storeKey, storeConfig) {
	var cfg storeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.period < 0 {
		cfg.period = 0
	}
	return storeKey{typ: reflect.TypeFor[T](), period: cfg.period, priority: cfg.priority}, cfg
}

// StoreInfo describes a store for snapshots and observers.
type StoreInfo struct {
	TypeID   TypeID
	Name     string
	Period   time.Duration
	Priority int
	Rows     int
}
