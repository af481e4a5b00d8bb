// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"callcenter_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Intake Events
// =============================================================================

// LeadCreated is published when a single lead is created outside bulk import.
type LeadCreated struct {
	BaseEvent
	LeadID       uuid.UUID  `json:"leadId"`
	CampaignID   *uuid.UUID `json:"campaignId,omitempty"`
	AssignedToID *uuid.UUID `json:"assignedToId,omitempty"`
	Source       string     `json:"source"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// =============================================================================
// Assignment Events
// =============================================================================

// LeadsAssignedToCampaign is published after campaign assignment commits.
type LeadsAssignedToCampaign struct {
	BaseEvent
	CampaignID uuid.UUID   `json:"campaignId"`
	LeadIDs    []uuid.UUID `json:"leadIds"`
	AssigneeID *uuid.UUID  `json:"assigneeId,omitempty"`
}

func (e LeadsAssignedToCampaign) EventName() string { return "leads.campaign.assigned" }

// LeadsAssignedToAgent is published after leads are handed to an agent directly.
type LeadsAssignedToAgent struct {
	BaseEvent
	AgentID uuid.UUID   `json:"agentId"`
	LeadIDs []uuid.UUID `json:"leadIds"`
}

func (e LeadsAssignedToAgent) EventName() string { return "leads.agent.assigned" }

// =============================================================================
// Pool Events
// =============================================================================

// PoolLeadsDistributed is published after pooled leads are handed to an agent.
type PoolLeadsDistributed struct {
	BaseEvent
	PoolID  uuid.UUID   `json:"poolId"`
	AgentID uuid.UUID   `json:"agentId"`
	LeadIDs []uuid.UUID `json:"leadIds"`
}

func (e PoolLeadsDistributed) EventName() string { return "leads.pool.distributed" }

// PoolLeadsImported is published after a bulk import commits.
type PoolLeadsImported struct {
	BaseEvent
	PoolID     uuid.UUID  `json:"poolId"`
	CampaignID uuid.UUID  `json:"campaignId"`
	ImportedBy *uuid.UUID `json:"importedBy,omitempty"`
	Imported   int        `json:"imported"`
	Duplicates int        `json:"duplicates"`
	Errors     int        `json:"errors"`
}

func (e PoolLeadsImported) EventName() string { return "leads.pool.imported" }

// =============================================================================
// Disposition Events
// =============================================================================

// LeadDispositioned is published after a call outcome is recorded.
type LeadDispositioned struct {
	BaseEvent
	LeadID   uuid.UUID  `json:"leadId"`
	AgentID  *uuid.UUID `json:"agentId,omitempty"`
	State    string     `json:"state"`
	FirstID  uuid.UUID  `json:"firstLevelDispositionId"`
	SecondID *uuid.UUID `json:"secondLevelDispositionId,omitempty"`
	ThirdID  *uuid.UUID `json:"thirdLevelDispositionId,omitempty"`
}

func (e LeadDispositioned) EventName() string { return "leads.disposition.updated" }
