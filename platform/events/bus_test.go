package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"callcenter_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishSyncRunsHandlersInOrder(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	var order []int
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 1)
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 2)
		return errors.New("boom")
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if err == nil {
		t.Fatal("expected joined handler error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected handler order %v", order)
	}
}

func TestPublishDispatchesAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
			calls.Add(1)
			return nil
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		panic("handler exploded")
	}))

	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()}); err == nil {
		t.Fatal("expected panic to surface as an error")
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()
}
