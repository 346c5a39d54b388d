package main

import (
	"time"

	"github.com/onart/YERM-sub001/internal/core/events/bus"
	"github.com/onart/YERM-sub001/internal/core/observability/log"
	"github.com/onart/YERM-sub001/internal/core/runtime"
)

// eventLog logs the lifecycle events worth seeing while the demo runs and
// keeps the bus metrics for the shutdown summary.
type eventLog struct {
	logger log.Log
	bus    bus.EventBus
	subs   []bus.Subscription
}

func watchEvents(b bus.EventBus, logger log.Log) (*eventLog, error) {
	w := &eventLog{logger: logger, bus: b}
	b.AddObserver(w)
	for _, typ := range []string{runtime.EventStoreCreated, runtime.EventStoreRetired, runtime.EventUnitLeaked} {
		sub, err := b.Subscribe(typ, w.handle)
		if err != nil {
			w.close()
			return nil, err
		}
		w.subs = append(w.subs, sub)
	}
	return w, nil
}

func (w *eventLog) handle(e bus.Event) error {
	w.logger.Debug("lifecycle event",
		log.String("type", e.Type()),
		log.Any("data", e.Data()),
	)
	return nil
}

func (w *eventLog) OnDelivered(eventType string, handlers int, err error, took time.Duration) {
	if err == nil {
		return
	}
	w.logger.Debug("lifecycle delivery failed",
		log.String("type", eventType),
		log.Int("handlers", handlers),
		log.Duration("took", took),
		log.ErrorWithKey("delivery_error", err),
	)
}

// close detaches from the bus and logs the delivery totals.
func (w *eventLog) close() {
	for _, sub := range w.subs {
		_ = w.bus.Unsubscribe(sub)
	}
	w.subs = nil
	w.bus.RemoveObserver(w)

	m := w.bus.GetMetrics()
	w.logger.Info("lifecycle events",
		log.Uint64("published", m.Published),
		log.Uint64("delivered", m.DeliveredHandlers),
		log.Uint64("errors", m.Errors),
	)
}
