package leadstest

import (
	"context"
	"sync"

	"callcenter_backend/internal/events"
)

// Bus records published events and runs subscribers synchronously.
type Bus struct {
	mu       sync.Mutex
	Events   []events.Event
	handlers map[string][]events.Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]events.Handler)}
}

func (b *Bus) Publish(ctx context.Context, event events.Event) {
	_ = b.PublishSync(ctx, event)
}

func (b *Bus) PublishSync(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	b.Events = append(b.Events, event)
	handlers := append([]events.Handler(nil), b.handlers[event.EventName()]...)
	b.mu.Unlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) Subscribe(eventName string, handler events.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Names lists published event names in order.
func (b *Bus) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.Events))
	for i, e := range b.Events {
		names[i] = e.EventName()
	}
	return names
}
