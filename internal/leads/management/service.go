// Package management handles single-lead intake: public submissions, agent
// quick entry, lookups and duplicate checks.
package management

import (
	"context"
	"errors"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/phone"
	"callcenter_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgLeadNotFound     = "lead not found"
	msgDuplicatePhone   = "a lead with this phone number already exists"
	msgCampaignNotFound = "campaign not found"
	msgCampaignInactive = "campaign is inactive"
	msgPhoneRequired    = "phone number is required"
	msgUnknownCatalog   = "sector or product not found"
)

// Repository is what intake needs from storage.
type Repository interface {
	WithTx(ctx context.Context, fn func(q repository.DBTX) error) error
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	CreateLead(ctx context.Context, q repository.DBTX, p repository.CreateLeadParams) (repository.Lead, error)
	GetCampaign(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.Campaign, error)
	IncrementLeadCount(ctx context.Context, q repository.DBTX, campaignID uuid.UUID, delta int) error
}

// DuplicateChecker answers whether a phone already belongs to a lead.
type DuplicateChecker interface {
	Exists(ctx context.Context, rawPhone string) (bool, error)
	Remember(ctx context.Context, phones []string)
}

// PhoneConfig provides the region used for display hints.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

type Service struct {
	repo  Repository
	dupes DuplicateChecker
	bus   events.Bus
	cfg   PhoneConfig
	log   *logger.Logger
}

func New(repo Repository, dupes DuplicateChecker, bus events.Bus, cfg PhoneConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, dupes: dupes, bus: bus, cfg: cfg, log: log}
}

// CreateLead stores a public submission. The lead carries no campaign and no agent.
func (s *Service) CreateLead(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	params := repository.CreateLeadParams{
		FullName:    sanitize.Text(req.FullName),
		PhoneNumber: phone.Normalize(req.PhoneNumber),
		SectorID:    req.SectorID,
		ProductIDs:  req.ProductIDs,
		Source:      domain.SourcePublic,
	}
	if err := s.precheck(ctx, params.PhoneNumber); err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.CreateLead(ctx, nil, params)
	if err != nil {
		return transport.LeadResponse{}, s.createError(ctx, "create lead", err)
	}

	s.created(ctx, lead)
	return transport.ToLeadResponse(lead), nil
}

// QuickEntry creates a lead inside an active campaign, assigned to the agent
// entering it, and bumps the campaign counter in the same transaction.
func (s *Service) QuickEntry(ctx context.Context, campaignID uuid.UUID, req transport.QuickEntryRequest, agentID uuid.UUID) (transport.LeadResponse, error) {
	params := repository.CreateLeadParams{
		FullName:     sanitize.Text(req.FullName),
		PhoneNumber:  phone.Normalize(req.PhoneNumber),
		SectorID:     req.SectorID,
		ProductIDs:   req.ProductIDs,
		CampaignID:   &campaignID,
		AssignedToID: &agentID,
		Notes:        sanitize.TextPtr(req.Notes),
		Source:       domain.SourceQuickEntry,
	}
	if err := s.precheck(ctx, params.PhoneNumber); err != nil {
		return transport.LeadResponse{}, err
	}

	var lead repository.Lead
	err := s.repo.WithTx(ctx, func(q repository.DBTX) error {
		campaign, err := s.repo.GetCampaign(ctx, q, campaignID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound(msgCampaignNotFound)
			}
			return err
		}
		if !campaign.IsActive {
			return apperr.Validation(msgCampaignInactive)
		}

		lead, err = s.repo.CreateLead(ctx, q, params)
		if err != nil {
			return err
		}
		return s.repo.IncrementLeadCount(ctx, q, campaignID, 1)
	})
	if err != nil {
		return transport.LeadResponse{}, s.createError(ctx, "quick entry", err, "campaignId", campaignID)
	}

	s.created(ctx, lead)
	return transport.ToLeadResponse(lead), nil
}

// GetLead returns a single lead.
func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
		}
		return transport.LeadResponse{}, s.internal(ctx, "get lead", err, "leadId", id)
	}
	return transport.ToLeadResponse(lead), nil
}

// CheckDuplicate reports whether the phone already belongs to a lead. The
// E.164 hint is for display only.
func (s *Service) CheckDuplicate(ctx context.Context, rawPhone string) (transport.CheckDuplicateResponse, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return transport.CheckDuplicateResponse{}, apperr.Validation(msgPhoneRequired)
	}
	exists, err := s.dupes.Exists(ctx, normalized)
	if err != nil {
		return transport.CheckDuplicateResponse{}, s.internal(ctx, "check duplicate", err)
	}

	region := ""
	if s.cfg != nil {
		region = s.cfg.GetPhoneDefaultRegion()
	}
	return transport.CheckDuplicateResponse{
		IsDuplicate:     exists,
		NormalizedPhone: normalized,
		E164Hint:        phone.E164Hint(normalized, region),
	}, nil
}

// precheck rejects known duplicates early. The unique constraint stays authoritative.
func (s *Service) precheck(ctx context.Context, normalized string) error {
	if normalized == "" {
		return apperr.Validation(msgPhoneRequired)
	}
	exists, err := s.dupes.Exists(ctx, normalized)
	if err != nil {
		return s.internal(ctx, "check duplicate", err)
	}
	if exists {
		return apperr.Conflict(msgDuplicatePhone)
	}
	return nil
}

func (s *Service) created(ctx context.Context, lead repository.Lead) {
	s.dupes.Remember(ctx, []string{lead.PhoneNumber})
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		CampaignID:   lead.CampaignID,
		AssignedToID: lead.AssignedToID,
		Source:       lead.Source,
	})
}

func (s *Service) createError(ctx context.Context, op string, err error, attrs ...any) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrDuplicatePhone):
		return apperr.Conflict(msgDuplicatePhone)
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Validation(msgUnknownCatalog)
	}
	return s.internal(ctx, op, err, attrs...)
}

func (s *Service) internal(ctx context.Context, op string, err error, attrs ...any) error {
	if s.log != nil {
		s.log.WithContext(ctx).StorageError("lead intake failed", op, err, attrs...)
	}
	return apperr.Wrap(apperr.KindInternal, "internal server error", err).WithOp(op)
}
