package component

import (
	"sync"

	"github.com/onart/YERM-sub001/internal/core/entity"
	"github.com/onart/YERM-sub001/internal/core/observability/log"
	"github.com/onart/YERM-sub001/internal/core/scheduler"
	"github.com/onart/YERM-sub001/pkg/sequence"
)

// DefaultCatchUp is the catch-up limit of stores created without WithCatchUp
// when the registry has no other default.
const DefaultCatchUp = 5

// Observer is notified about store lifecycle and explicit removals.
type Observer interface {
	OnStoreCreated(StoreInfo)
	OnStoreRetired(StoreInfo)
	OnComponentRemoved(store StoreInfo, entityID uint64)
}

// store is the type-erased view of a Store[T] used by the registry.
type store interface {
	storeKey() storeKey
	info() StoreInfo
	attach()
	detach()
	finalize()
}

type RegistryOption func(*Registry)

func WithLogger(l log.Log) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDefaultCatchUp sets the catch-up limit used by new stores.
func WithDefaultCatchUp(limit int) RegistryOption {
	return func(r *Registry) {
		if limit > 0 {
			r.catchUp = limit
		}
	}
}

func WithObserver(obs Observer) RegistryOption {
	return func(r *Registry) { r.observer = obs }
}

// Registry owns every live store and drives teardown. Store lookup and
// creation are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	stores map[storeKey]store

	sched    *scheduler.Scheduler
	logger   log.Log
	observer Observer
	catchUp  int
}

func NewRegistry(sched *scheduler.Scheduler, opts ...RegistryOption) *Registry {
	r := &Registry{
		stores:  make(map[storeKey]store),
		sched:   sched,
		logger:  log.Provide(),
		catchUp: DefaultCatchUp,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StoreFor returns the store for T with the given schedule, creating and
// registering it on first use.
func StoreFor[T any](r *Registry, opts ...Option) *Store[T] {
	key, cfg := keyFor[T](opts)

	r.mu.Lock()
	if st, ok := r.stores[key]; ok {
		r.mu.Unlock()
		return st.(*Store[T])
	}
	limit := cfg.limit
	if limit <= 0 {
		limit = r.catchUp
	}
	st := newStore[T](r, key, limit)
	st.attach()
	r.stores[key] = st
	r.mu.Unlock()

	r.created(st)
	return st
}

// Lookup returns the live store for T with the given schedule, if any.
func Lookup[T any](r *Registry, opts ...Option) (*Store[T], bool) {
	key, _ := keyFor[T](opts)

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[key]
	if !ok {
		return nil, false
	}
	return st.(*Store[T]), true
}

// Add attaches a T to e, or returns the existing one.
func Add[T any](r *Registry, e entity.Entity, opts ...Option) Pointer[T] {
	return StoreFor[T](r, opts...).AddOrGet(e)
}

// Get returns e's T, or an invalid reference. It never creates a store.
func Get[T any](r *Registry, e entity.Entity, opts ...Option) Pointer[T] {
	st, ok := Lookup[T](r, opts...)
	if !ok {
		return Pointer[T]{}
	}
	return st.Get(e)
}

// Remove detaches e's T, if any.
func Remove[T any](r *Registry, e entity.Entity, opts ...Option) {
	if st, ok := Lookup[T](r, opts...); ok {
		st.Remove(e)
	}
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Snapshot describes every live store, sorted by name then period.
// Row counts are only accurate when called from the ticking goroutine.
func (r *Registry) Snapshot() []StoreInfo {
	return r.Select(nil)
}

// Select is Snapshot restricted to the stores keep accepts. A nil keep
// accepts every store.
func (r *Registry) Select(keep func(StoreInfo) bool) []StoreInfo {
	it := sequence.From(r.infos())
	if keep != nil {
		it = it.Filter(keep)
	}
	return it.Sort(func(a, b StoreInfo) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.Priority < b.Priority
	}).Collect()
}

// Count returns the number of live stores keep accepts.
func (r *Registry) Count(keep func(StoreInfo) bool) int {
	if keep == nil {
		return r.Len()
	}
	return sequence.From(r.infos()).Filter(keep).Count()
}

func (r *Registry) infos() []StoreInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]StoreInfo, 0, len(r.stores))
	for _, st := range r.stores {
		infos = append(infos, st.info())
	}
	return infos
}

// FinalizeAll clears every store until none is left, including stores
// recreated by OnDestroy hooks during teardown. It returns the number of
// stores finalized.
func (r *Registry) FinalizeAll() int {
	n := 0
	for {
		st := r.takeAny()
		if st == nil {
			break
		}
		st.finalize()
		n++
		r.logger.Debug("component store finalized",
			log.String("store", st.storeKey().name()),
			log.String("type_id", st.storeKey().id().String()),
		)
	}
	return n
}

func (r *Registry) takeAny() store {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, st := range r.stores {
		delete(r.stores, key)
		return st
	}
	return nil
}

// retire drops an empty store after its pass.
func (r *Registry) retire(st store) {
	key := st.storeKey()

	r.mu.Lock()
	if cur, ok := r.stores[key]; ok && cur == st {
		delete(r.stores, key)
	}
	r.mu.Unlock()

	st.detach()
	r.logger.Debug("component store retired", log.String("store", key.name()))
	if r.observer != nil {
		r.observer.OnStoreRetired(st.info())
	}
}

// revive puts a retired store back into service, or returns the store that
// replaced it.
func (r *Registry) revive(st store) store {
	key := st.storeKey()

	r.mu.Lock()
	if cur, ok := r.stores[key]; ok {
		r.mu.Unlock()
		return cur
	}
	st.attach()
	r.stores[key] = st
	r.mu.Unlock()

	r.created(st)
	return st
}

func (r *Registry) created(st store) {
	key := st.storeKey()
	r.logger.Debug("component store created",
		log.String("store", key.name()),
		log.String("type_id", key.id().String()),
		log.Duration("period", key.period),
		log.Int("priority", key.priority),
	)
	if r.observer != nil {
		r.observer.OnStoreCreated(st.info())
	}
}
