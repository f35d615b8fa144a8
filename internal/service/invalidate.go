package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/queue"
)

// Emitter is the event sink used by the inventory package.
type Emitter interface {
	Emit(typ string, data any)
}

// Purger drops cached fleet responses.
type Purger interface {
	Purge(ctx context.Context) error
}

// Invalidating forwards events to Next and purges the fleet cache for every
// event that changes a car's availability or quantity.  Those writes happen
// inside the inventory package, often on a debounce timer, so the handlers
// cannot purge for them.
type Invalidating struct {
	Next  Emitter
	Cache Purger
	Log   *zap.Logger
}

func (e Invalidating) Emit(typ string, data any) {
	switch typ {
	case queue.TypeBookingCreated, queue.TypeBookingStatusChanged,
		queue.TypeCarQuantityChanged, queue.TypeInventoryReconciled:
		if e.Cache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := e.Cache.Purge(ctx); err != nil && e.Log != nil {
				e.Log.Warn("cache purge failed", zap.String("type", typ), zap.Error(err))
			}
			cancel()
		}
	}
	if e.Next != nil {
		e.Next.Emit(typ, data)
	}
}
