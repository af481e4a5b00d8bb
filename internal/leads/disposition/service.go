// Package disposition records call outcomes on leads.
package disposition

import (
	"context"
	"errors"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgInvalidDisposition = "invalid disposition"

// Repository is what the disposition service needs from storage.
type Repository interface {
	GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	GetFirstLevel(ctx context.Context, id uuid.UUID) (domain.Disposition, error)
	GetSecondLevel(ctx context.Context, id uuid.UUID) (domain.Disposition, error)
	GetThirdLevel(ctx context.Context, id uuid.UUID) (domain.Reason, error)
	UpdateDisposition(ctx context.Context, leadID uuid.UUID, u repository.DispositionUpdate) (repository.Lead, error)
	ListDispositions(ctx context.Context) (repository.DispositionCatalog, error)
}

type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Update validates the selected catalog entries against the disposition tree
// and overwrites the lead's outcome. last_called_at is stamped on every call.
func (s *Service) Update(ctx context.Context, leadID uuid.UUID, req transport.UpdateDispositionRequest, actorID uuid.UUID, actorRoles []string) (transport.DispositionResponse, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.DispositionResponse{}, apperr.NotFound("lead not found")
		}
		return transport.DispositionResponse{}, s.internal(ctx, "get lead", err, leadID)
	}

	if !domain.CanManageLeads(actorRoles) {
		if lead.AssignedToID == nil || *lead.AssignedToID != actorID {
			return transport.DispositionResponse{}, apperr.Forbidden("lead is not assigned to you")
		}
	}

	first, err := s.repo.GetFirstLevel(ctx, req.FirstLevelDispositionID)
	if err != nil {
		return transport.DispositionResponse{}, s.lookupError(ctx, err, leadID)
	}

	var second *domain.Disposition
	if req.SecondLevelDispositionID != nil {
		d, err := s.repo.GetSecondLevel(ctx, *req.SecondLevelDispositionID)
		if err != nil {
			return transport.DispositionResponse{}, s.lookupError(ctx, err, leadID)
		}
		second = &d
	}

	var third *domain.Reason
	if req.ThirdLevelDispositionID != nil {
		if err := domain.CheckReasonPlacement(first, second); err != nil {
			return transport.DispositionResponse{}, err
		}
		r, err := s.repo.GetThirdLevel(ctx, *req.ThirdLevelDispositionID)
		if err != nil {
			return transport.DispositionResponse{}, s.lookupError(ctx, err, leadID)
		}
		third = &r
	}

	state, err := domain.ResolveDisposition(first, second, third)
	if err != nil {
		return transport.DispositionResponse{}, err
	}

	firstID, secondID, thirdID := state.Columns()
	updated, err := s.repo.UpdateDisposition(ctx, leadID, repository.DispositionUpdate{
		FirstID:  firstID,
		SecondID: secondID,
		ThirdID:  thirdID,
		Notes:    sanitize.TextPtr(req.Notes),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.DispositionResponse{}, apperr.NotFound("lead not found")
		}
		return transport.DispositionResponse{}, s.internal(ctx, "update disposition", err, leadID)
	}

	s.bus.Publish(ctx, events.LeadDispositioned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		AgentID:   updated.AssignedToID,
		State:     state.Kind(),
		FirstID:   firstID,
		SecondID:  secondID,
		ThirdID:   thirdID,
	})

	return transport.DispositionResponse{
		Lead:  transport.ToLeadResponse(updated),
		State: state.Kind(),
	}, nil
}

// Catalog lists every disposition level, inactive entries included.
func (s *Service) Catalog(ctx context.Context) (transport.DispositionCatalogResponse, error) {
	catalog, err := s.repo.ListDispositions(ctx)
	if err != nil {
		return transport.DispositionCatalogResponse{}, s.internal(ctx, "list dispositions", err, uuid.Nil)
	}
	return transport.ToDispositionCatalogResponse(catalog), nil
}

func (s *Service) lookupError(ctx context.Context, err error, leadID uuid.UUID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgInvalidDisposition)
	}
	return s.internal(ctx, "get disposition", err, leadID)
}

func (s *Service) internal(ctx context.Context, op string, err error, leadID uuid.UUID) error {
	if s.log != nil {
		s.log.WithContext(ctx).StorageError("disposition storage failure", op, err, "leadId", leadID)
	}
	return apperr.Wrap(apperr.KindInternal, "internal server error", err).WithOp(op)
}
