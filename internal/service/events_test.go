package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/car-rental-booking/internal/queue"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func TestEvents_EmitPublishesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	ev := NewEvents(pub, zap.NewNop())

	ev.Emit(queue.TypeCarQuantityChanged, queue.CarQuantityChanged{CarID: 3, Quantity: 4, Available: 2})
	ev.Wait()

	require.Len(t, pub.events, 1)
	got := pub.events[0]
	assert.Equal(t, queue.TypeCarQuantityChanged, got.Type)
	var data queue.CarQuantityChanged
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, 4, data.Quantity)
}

func TestEvents_PublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	ev := NewEvents(pub, zap.NewNop())
	ev.Emit(queue.TypeInventoryReconciled, queue.InventoryReconciled{})
	ev.Wait()
	assert.Len(t, pub.events, 1)
}

func TestEvents_NilIsNoop(t *testing.T) {
	var ev *Events
	assert.NotPanics(t, func() {
		ev.Emit(queue.TypeBookingCreated, queue.BookingCreated{})
		ev.Wait()
	})
}
