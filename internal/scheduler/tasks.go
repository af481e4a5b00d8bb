package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskAgentLeadsNotice tells an agent that leads were handed to them.
const TaskAgentLeadsNotice = "agents.leads_distributed"

// TaskReconcileLeadCounts repairs campaign lead counters that drifted.
const TaskReconcileLeadCounts = "campaigns.lead_count.reconcile"

type AgentLeadsNoticePayload struct {
	AgentID string `json:"agentId"`
	PoolID  string `json:"poolId,omitempty"`
	Count   int    `json:"count"`
}

func NewAgentLeadsNoticeTask(payload AgentLeadsNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAgentLeadsNotice, data, asynq.MaxRetry(5)), nil
}

func ParseAgentLeadsNoticePayload(task *asynq.Task) (AgentLeadsNoticePayload, error) {
	var payload AgentLeadsNoticePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AgentLeadsNoticePayload{}, err
	}
	return payload, nil
}

func NewReconcileLeadCountsTask() *asynq.Task {
	return asynq.NewTask(TaskReconcileLeadCounts, nil, asynq.MaxRetry(1))
}
