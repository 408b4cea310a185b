package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New())}
}

type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

func (h *recordingHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, evt)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	changed := &recordingHandler{eventTypes: []string{"invoicing.line_items_changed"}}
	all := &recordingHandler{}
	bus.Subscribe(changed)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("invoicing.line_items_changed"),
		newTestEvent("invoicing.totals_recalculated"),
	))

	assert.Equal(t, 1, changed.count())
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_HandlerFailureDoesNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	failing := &recordingHandler{eventTypes: []string{"x"}, err: errors.New("db down")}
	panicking := &HandlerFunc{Types: []string{"x"}, Fn: func(context.Context, shared.DomainEvent) error {
		panic("boom")
	}}
	healthy := &recordingHandler{eventTypes: []string{"x"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	assert.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{eventTypes: []string{"x"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
	assert.Equal(t, 0, h.count())
	assert.Empty(t, bus.registry.GetHandlers("x"))
}

func TestInMemoryEventBus_Lifecycle(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.IsRunning())
	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.IsRunning())
}

func TestInMemoryEventBus_SubscribeOverridesTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{eventTypes: []string{"a"}}
	bus.Subscribe(h, "b")

	_ = bus.Publish(context.Background(), newTestEvent("a"), newTestEvent("b"))
	assert.Equal(t, 1, h.count())
}
