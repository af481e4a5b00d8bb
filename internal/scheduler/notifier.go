package scheduler

import (
	"context"

	"callcenter_backend/internal/events"
	"callcenter_backend/platform/logger"
)

// AgentNotifier turns hand-over events into queued agent notices.
type AgentNotifier struct {
	queue NoticeEnqueuer
	log   *logger.Logger
}

func NewAgentNotifier(queue NoticeEnqueuer, log *logger.Logger) *AgentNotifier {
	return &AgentNotifier{queue: queue, log: log}
}

// Subscribe registers the notifier for every event that hands leads to an agent.
func (n *AgentNotifier) Subscribe(bus events.Bus) {
	bus.Subscribe(events.PoolLeadsDistributed{}.EventName(), n)
	bus.Subscribe(events.LeadsAssignedToAgent{}.EventName(), n)
}

// Handle enqueues one notice per event. Enqueue failures are logged; the
// assignment itself has already committed.
func (n *AgentNotifier) Handle(ctx context.Context, event events.Event) error {
	var payload AgentLeadsNoticePayload
	switch e := event.(type) {
	case events.PoolLeadsDistributed:
		payload = AgentLeadsNoticePayload{AgentID: e.AgentID.String(), PoolID: e.PoolID.String(), Count: len(e.LeadIDs)}
	case events.LeadsAssignedToAgent:
		payload = AgentLeadsNoticePayload{AgentID: e.AgentID.String(), Count: len(e.LeadIDs)}
	default:
		return nil
	}
	if payload.Count == 0 {
		return nil
	}

	if err := n.queue.EnqueueAgentLeadsNotice(ctx, payload); err != nil && n.log != nil {
		n.log.WithContext(ctx).Warn("agent notice enqueue failed", "agentId", payload.AgentID, "error", err)
	}
	return nil
}
