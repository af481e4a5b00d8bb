package leads

import (
	"context"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/platform/metrics"
)

// SubscribeMetrics counts committed lead operations from their events.
func SubscribeMetrics(bus events.Bus, m *metrics.Metrics) {
	on := func(name string, fn func(events.Event)) {
		bus.Subscribe(name, events.HandlerFunc(func(_ context.Context, e events.Event) error {
			fn(e)
			return nil
		}))
	}

	on(events.LeadCreated{}.EventName(), func(e events.Event) {
		if ev, ok := e.(events.LeadCreated); ok {
			m.LeadsCreated.WithLabelValues(ev.Source).Inc()
		}
	})
	on(events.LeadsAssignedToCampaign{}.EventName(), func(e events.Event) {
		if ev, ok := e.(events.LeadsAssignedToCampaign); ok {
			m.LeadsAssigned.WithLabelValues("campaign").Add(float64(len(ev.LeadIDs)))
		}
	})
	on(events.LeadsAssignedToAgent{}.EventName(), func(e events.Event) {
		if ev, ok := e.(events.LeadsAssignedToAgent); ok {
			m.LeadsAssigned.WithLabelValues("agent").Add(float64(len(ev.LeadIDs)))
		}
	})
	on(events.PoolLeadsDistributed{}.EventName(), func(e events.Event) {
		if ev, ok := e.(events.PoolLeadsDistributed); ok {
			m.LeadsDistributed.Add(float64(len(ev.LeadIDs)))
		}
	})
	on(events.PoolLeadsImported{}.EventName(), func(e events.Event) {
		ev, ok := e.(events.PoolLeadsImported)
		if !ok {
			return
		}
		m.ImportRows.WithLabelValues("imported").Add(float64(ev.Imported))
		m.ImportRows.WithLabelValues("duplicate").Add(float64(ev.Duplicates))
		m.ImportRows.WithLabelValues("error").Add(float64(ev.Errors))
		m.LeadsCreated.WithLabelValues(domain.SourceImport).Add(float64(ev.Imported))
	})
	on(events.LeadDispositioned{}.EventName(), func(e events.Event) {
		if ev, ok := e.(events.LeadDispositioned); ok {
			m.Dispositions.WithLabelValues(ev.State).Inc()
		}
	})
}
