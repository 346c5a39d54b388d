package runtime

import (
	"github.com/onart/YERM-sub001/internal/core/component"
	"github.com/onart/YERM-sub001/internal/core/events/bus"
	"github.com/onart/YERM-sub001/internal/core/observability/log"
	"github.com/onart/YERM-sub001/internal/core/scheduler"
)

// Event types published on the runtime bus.
const (
	EventUnitAdmitted     = "scheduler.unit.admitted"
	EventUnitLeaked       = "scheduler.unit.leaked"
	EventStoreCreated     = "component.store.created"
	EventStoreRetired     = "component.store.retired"
	EventComponentRemoved = "component.removed"
)

const eventSource = "runtime"

// ComponentRemoved is the payload of EventComponentRemoved.
type ComponentRemoved struct {
	Store    component.StoreInfo
	EntityID uint64
}

var (
	_ scheduler.Observer = (*lifecycle)(nil)
	_ component.Observer = (*lifecycle)(nil)
)

// lifecycle forwards scheduler and registry notifications to the bus.
type lifecycle struct {
	bus    bus.EventBus
	logger log.Log
}

func (l *lifecycle) publish(typ string, data any) {
	if err := l.bus.Publish(bus.NewEvent(typ, eventSource, data)); err != nil {
		l.logger.Warn("lifecycle event handler failed", log.String("event", typ), log.Error(err))
	}
}

func (l *lifecycle) OnAdmitted(u scheduler.UnitInfo) { l.publish(EventUnitAdmitted, u) }
func (l *lifecycle) OnLeaked(u scheduler.UnitInfo)   { l.publish(EventUnitLeaked, u) }

func (l *lifecycle) OnStoreCreated(s component.StoreInfo) { l.publish(EventStoreCreated, s) }
func (l *lifecycle) OnStoreRetired(s component.StoreInfo) { l.publish(EventStoreRetired, s) }

func (l *lifecycle) OnComponentRemoved(s component.StoreInfo, id uint64) {
	l.publish(EventComponentRemoved, ComponentRemoved{Store: s, EntityID: id})
}
