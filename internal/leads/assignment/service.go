// Package assignment binds leads to campaigns and to agents.
//
// A lead joins a campaign at most once. Every campaign binding increments the
// campaign's lead_count in the same transaction as the lead update.
package assignment

import (
	"context"
	"errors"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound     = "lead not found"
	msgCampaignNotFound = "campaign not found"
	msgCampaignInactive = "campaign is inactive"
	msgAlreadyAssigned  = "lead is already assigned to a campaign"
	msgAgentNotFound    = "agent not found"
	msgNotAnAgent       = "user is not an active agent"
)

// Repository is what the assignment service needs from storage.
type Repository interface {
	WithTx(ctx context.Context, fn func(q repository.DBTX) error) error
	GetCampaign(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.Campaign, error)
	GetUser(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.User, error)
	LockLeads(ctx context.Context, q repository.DBTX, ids []uuid.UUID) ([]repository.Lead, error)
	SetCampaign(ctx context.Context, q repository.DBTX, ids []uuid.UUID, campaignID uuid.UUID, assigneeID *uuid.UUID) ([]repository.Lead, error)
	SetAgent(ctx context.Context, q repository.DBTX, ids []uuid.UUID, agentID uuid.UUID) ([]repository.Lead, error)
	IncrementLeadCount(ctx context.Context, q repository.DBTX, campaignID uuid.UUID, delta int) error
}

type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// AssignToCampaign binds one lead to a campaign and hands it to the
// campaign's default assignee when one is configured.
func (s *Service) AssignToCampaign(ctx context.Context, leadID uuid.UUID, req transport.AssignCampaignRequest) (transport.LeadResponse, error) {
	var updated repository.Lead
	var campaign repository.Campaign

	err := s.repo.WithTx(ctx, func(q repository.DBTX) error {
		locked, err := s.repo.LockLeads(ctx, q, []uuid.UUID{leadID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return apperr.NotFound(msgLeadNotFound)
		}
		lead := locked[0]

		campaign, err = s.activeCampaign(ctx, q, req.CampaignID)
		if err != nil {
			return err
		}

		if lead.CampaignID != nil {
			return s.alreadyAssigned(ctx, q, *lead.CampaignID)
		}

		rows, err := s.repo.SetCampaign(ctx, q, []uuid.UUID{leadID}, campaign.ID, campaign.AssignedToID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperr.Conflict(msgAlreadyAssigned)
		}
		updated = rows[0]

		return s.repo.IncrementLeadCount(ctx, q, campaign.ID, len(rows))
	})
	if err != nil {
		return transport.LeadResponse{}, s.txError(ctx, "assign lead to campaign", err, "leadId", leadID, "campaignId", req.CampaignID)
	}

	s.bus.Publish(ctx, events.LeadsAssignedToCampaign{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: campaign.ID,
		LeadIDs:    []uuid.UUID{updated.ID},
		AssigneeID: campaign.AssignedToID,
	})

	return transport.ToLeadResponse(updated), nil
}

// BulkAssignToCampaign binds every eligible lead in the batch. Individual
// leads never fail the batch; a missing or inactive campaign does.
func (s *Service) BulkAssignToCampaign(ctx context.Context, req transport.BulkAssignCampaignRequest) (transport.BulkAssignCampaignResponse, error) {
	ids := uniqueIDs(req.LeadIDs)
	resp := transport.BulkAssignCampaignResponse{
		AssignedIDs:        []uuid.UUID{},
		AlreadyAssignedIDs: []uuid.UUID{},
		NotFoundIDs:        []uuid.UUID{},
	}
	var campaign repository.Campaign

	err := s.repo.WithTx(ctx, func(q repository.DBTX) error {
		var err error
		campaign, err = s.activeCampaign(ctx, q, req.CampaignID)
		if err != nil {
			return err
		}

		locked, err := s.repo.LockLeads(ctx, q, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]repository.Lead, len(locked))
		for _, lead := range locked {
			byID[lead.ID] = lead
		}

		assignable := make([]uuid.UUID, 0, len(ids))
		notFound := make([]uuid.UUID, 0)
		alreadyAssigned := make([]uuid.UUID, 0)
		for _, id := range ids {
			lead, ok := byID[id]
			switch {
			case !ok:
				notFound = append(notFound, id)
			case lead.CampaignID != nil:
				alreadyAssigned = append(alreadyAssigned, id)
			default:
				assignable = append(assignable, id)
			}
		}

		assigned := make([]uuid.UUID, 0, len(assignable))
		if len(assignable) > 0 {
			rows, err := s.repo.SetCampaign(ctx, q, assignable, campaign.ID, campaign.AssignedToID)
			if err != nil {
				return err
			}
			updated := make(map[uuid.UUID]bool, len(rows))
			for _, row := range rows {
				updated[row.ID] = true
			}
			for _, id := range assignable {
				if updated[id] {
					assigned = append(assigned, id)
				} else {
					alreadyAssigned = append(alreadyAssigned, id)
				}
			}
			if err := s.repo.IncrementLeadCount(ctx, q, campaign.ID, len(rows)); err != nil {
				return err
			}
		}

		resp.AssignedIDs = assigned
		resp.AlreadyAssignedIDs = alreadyAssigned
		resp.NotFoundIDs = notFound
		return nil
	})
	if err != nil {
		return transport.BulkAssignCampaignResponse{}, s.txError(ctx, "bulk assign leads to campaign", err, "campaignId", req.CampaignID)
	}

	resp.Assigned = len(resp.AssignedIDs)
	resp.AlreadyAssigned = len(resp.AlreadyAssignedIDs)
	resp.NotFound = len(resp.NotFoundIDs)

	if resp.Assigned > 0 {
		s.bus.Publish(ctx, events.LeadsAssignedToCampaign{
			BaseEvent:  events.NewBaseEvent(),
			CampaignID: campaign.ID,
			LeadIDs:    resp.AssignedIDs,
			AssigneeID: campaign.AssignedToID,
		})
	}

	return resp, nil
}

// AssignToAgent overwrites the assigned agent of one lead.
func (s *Service) AssignToAgent(ctx context.Context, leadID uuid.UUID, req transport.AssignAgentRequest) (transport.LeadResponse, error) {
	var updated repository.Lead

	err := s.repo.WithTx(ctx, func(q repository.DBTX) error {
		if err := s.checkAgent(ctx, q, req.AgentID); err != nil {
			return err
		}
		rows, err := s.repo.SetAgent(ctx, q, []uuid.UUID{leadID}, req.AgentID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperr.NotFound(msgLeadNotFound)
		}
		updated = rows[0]
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, s.txError(ctx, "assign lead to agent", err, "leadId", leadID, "agentId", req.AgentID)
	}

	s.bus.Publish(ctx, events.LeadsAssignedToAgent{
		BaseEvent: events.NewBaseEvent(),
		AgentID:   req.AgentID,
		LeadIDs:   []uuid.UUID{updated.ID},
	})

	return transport.ToLeadResponse(updated), nil
}

// BulkAssignToAgent overwrites the assigned agent of every existing lead in
// the batch and reports the ids that matched nothing.
func (s *Service) BulkAssignToAgent(ctx context.Context, req transport.BulkAssignAgentRequest) (transport.BulkAssignAgentResponse, error) {
	ids := uniqueIDs(req.LeadIDs)
	var rows []repository.Lead

	err := s.repo.WithTx(ctx, func(q repository.DBTX) error {
		if err := s.checkAgent(ctx, q, req.AgentID); err != nil {
			return err
		}
		var err error
		rows, err = s.repo.SetAgent(ctx, q, ids, req.AgentID)
		return err
	})
	if err != nil {
		return transport.BulkAssignAgentResponse{}, s.txError(ctx, "bulk assign leads to agent", err, "agentId", req.AgentID)
	}

	updated := make(map[uuid.UUID]bool, len(rows))
	updatedIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		updated[row.ID] = true
		updatedIDs = append(updatedIDs, row.ID)
	}
	notFound := make([]uuid.UUID, 0)
	for _, id := range ids {
		if !updated[id] {
			notFound = append(notFound, id)
		}
	}

	if len(rows) == 0 {
		return transport.BulkAssignAgentResponse{}, apperr.NotFound("no leads found").WithDetails(map[string]interface{}{
			"notFoundIds": notFound,
		})
	}

	s.bus.Publish(ctx, events.LeadsAssignedToAgent{
		BaseEvent: events.NewBaseEvent(),
		AgentID:   req.AgentID,
		LeadIDs:   updatedIDs,
	})

	return transport.BulkAssignAgentResponse{
		Updated:     transport.ToLeadResponses(rows),
		NotFoundIDs: notFound,
	}, nil
}

func (s *Service) activeCampaign(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.Campaign, error) {
	campaign, err := s.repo.GetCampaign(ctx, q, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Campaign{}, apperr.NotFound(msgCampaignNotFound)
		}
		return repository.Campaign{}, err
	}
	if !campaign.IsActive {
		return repository.Campaign{}, apperr.Conflict(msgCampaignInactive)
	}
	return campaign, nil
}

func (s *Service) alreadyAssigned(ctx context.Context, q repository.DBTX, campaignID uuid.UUID) error {
	details := map[string]interface{}{"campaignId": campaignID}
	if existing, err := s.repo.GetCampaign(ctx, q, campaignID); err == nil {
		details["campaignName"] = existing.Name
	}
	return apperr.Conflict(msgAlreadyAssigned).WithDetails(details)
}

// UserReader loads users for agent checks.
type UserReader interface {
	GetUser(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.User, error)
}

// CheckAgent verifies that the user exists and is an active agent.
func CheckAgent(ctx context.Context, users UserReader, q repository.DBTX, agentID uuid.UUID) error {
	user, err := users.GetUser(ctx, q, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgAgentNotFound)
		}
		return err
	}
	if user.Role != domain.RoleAgent || !user.IsActive {
		return apperr.Validation(msgNotAnAgent)
	}
	return nil
}

func (s *Service) checkAgent(ctx context.Context, q repository.DBTX, agentID uuid.UUID) error {
	return CheckAgent(ctx, s.repo, q, agentID)
}

// txError passes typed errors through and hides storage failures.
func (s *Service) txError(ctx context.Context, op string, err error, attrs ...any) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	if s.log != nil {
		s.log.WithContext(ctx).StorageError("assignment failed", op, err, attrs...)
	}
	return apperr.Wrap(apperr.KindInternal, "internal server error", err).WithOp(op)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
