// Package pools manages lead pools: creation, listing, distribution of pooled
// leads to agents and bulk import of new leads into a pool.
package pools

import (
	"context"
	"errors"
	"io"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/leads/assignment"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgPoolNotFound     = "pool not found"
	msgCampaignNotFound = "campaign not found"
	msgNotInPool        = "leads not found in pool"
	msgAlreadyAssigned  = "leads are already assigned"
)

// Repository is what the pool service needs from storage.
type Repository interface {
	WithTx(ctx context.Context, fn func(q repository.DBTX) error) error
	GetPool(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.Pool, error)
	CreatePool(ctx context.Context, name string, campaignID uuid.UUID, createdBy *uuid.UUID) (repository.Pool, error)
	ListPoolLeads(ctx context.Context, poolID uuid.UUID, unassignedOnly bool) ([]repository.Lead, error)
	GetPoolSummary(ctx context.Context, poolID uuid.UUID) (repository.PoolSummary, error)
	GetCampaign(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.Campaign, error)
	GetUser(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.User, error)
	LockLeads(ctx context.Context, q repository.DBTX, ids []uuid.UUID) ([]repository.Lead, error)
	AssignPoolLeads(ctx context.Context, q repository.DBTX, poolID uuid.UUID, ids []uuid.UUID, agentID uuid.UUID) (int, error)
	ListSectors(ctx context.Context) ([]repository.Sector, error)
	ListProducts(ctx context.Context) ([]repository.Product, error)
	InsertLeadIfAbsent(ctx context.Context, q repository.DBTX, p repository.CreateLeadParams) (uuid.UUID, bool, error)
	LinkProducts(ctx context.Context, q repository.DBTX, leadID uuid.UUID, productIDs []uuid.UUID) error
	IncrementLeadCount(ctx context.Context, q repository.DBTX, campaignID uuid.UUID, delta int) error
}

// DuplicateChecker reports phones that already belong to a lead.
type DuplicateChecker interface {
	BulkExists(ctx context.Context, phones []string) (map[string]struct{}, error)
	Remember(ctx context.Context, phones []string)
}

// Archiver keeps a copy of uploaded import files.
type Archiver interface {
	ArchiveImport(ctx context.Context, folder, fileName string, reader io.Reader, size int64) (string, error)
}

// Config holds import limits.
type Config interface {
	GetImportDefaultSector() string
	GetImportMaxRows() int
}

type Service struct {
	repo     Repository
	dupes    DuplicateChecker
	archiver Archiver
	bus      events.Bus
	cfg      Config
	log      *logger.Logger
}

// New creates a pool service. archiver may be nil.
func New(repo Repository, dupes DuplicateChecker, archiver Archiver, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	return &Service{repo: repo, dupes: dupes, archiver: archiver, bus: bus, cfg: cfg, log: log}
}

// Create opens a new pool bound to an existing campaign.
func (s *Service) Create(ctx context.Context, req transport.CreatePoolRequest, actorID uuid.UUID) (transport.PoolResponse, error) {
	if _, err := s.repo.GetCampaign(ctx, nil, req.CampaignID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.PoolResponse{}, apperr.NotFound(msgCampaignNotFound)
		}
		return transport.PoolResponse{}, s.internal(ctx, "get campaign", err)
	}

	pool, err := s.repo.CreatePool(ctx, req.Name, req.CampaignID, &actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.PoolResponse{}, apperr.NotFound(msgCampaignNotFound)
		}
		return transport.PoolResponse{}, s.internal(ctx, "create pool", err)
	}
	return transport.ToPoolResponse(pool, &repository.PoolSummary{}), nil
}

// Get returns a pool with its assignment summary.
func (s *Service) Get(ctx context.Context, poolID uuid.UUID) (transport.PoolResponse, error) {
	pool, err := s.getPool(ctx, nil, poolID)
	if err != nil {
		return transport.PoolResponse{}, err
	}
	summary, err := s.repo.GetPoolSummary(ctx, poolID)
	if err != nil {
		return transport.PoolResponse{}, s.internal(ctx, "summarize pool", err)
	}
	return transport.ToPoolResponse(pool, &summary), nil
}

// ListLeads returns the pool's leads; unassignedOnly limits the result to
// leads that can still be distributed.
func (s *Service) ListLeads(ctx context.Context, poolID uuid.UUID, unassignedOnly bool) (transport.PoolLeadsResponse, error) {
	if _, err := s.getPool(ctx, nil, poolID); err != nil {
		return transport.PoolLeadsResponse{}, err
	}
	leads, err := s.repo.ListPoolLeads(ctx, poolID, unassignedOnly)
	if err != nil {
		return transport.PoolLeadsResponse{}, s.internal(ctx, "list pool leads", err)
	}
	return transport.PoolLeadsResponse{Items: transport.ToLeadResponses(leads), Total: len(leads)}, nil
}

// Distribute hands the given pooled leads to an agent. Either every lead is
// assigned or none is.
func (s *Service) Distribute(ctx context.Context, poolID uuid.UUID, req transport.DistributeRequest) (transport.DistributeResponse, error) {
	ids := uniqueIDs(req.LeadIDs)
	var distributed int

	err := s.repo.WithTx(ctx, func(q repository.DBTX) error {
		if _, err := s.getPool(ctx, q, poolID); err != nil {
			return err
		}
		if err := assignment.CheckAgent(ctx, s.repo, q, req.AgentID); err != nil {
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

		notInPool := make([]uuid.UUID, 0)
		assigned := make([]uuid.UUID, 0)
		for _, id := range ids {
			lead, ok := byID[id]
			switch {
			case !ok || lead.PoolID == nil || *lead.PoolID != poolID:
				notInPool = append(notInPool, id)
			case lead.AssignedToID != nil:
				assigned = append(assigned, id)
			}
		}
		if len(notInPool) > 0 {
			return apperr.NotFound(msgNotInPool).WithDetails(map[string]interface{}{"leadIds": notInPool})
		}
		if len(assigned) > 0 {
			return apperr.Conflict(msgAlreadyAssigned).WithDetails(map[string]interface{}{"leadIds": assigned})
		}

		n, err := s.repo.AssignPoolLeads(ctx, q, poolID, ids, req.AgentID)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return apperr.Conflict(msgAlreadyAssigned)
		}
		distributed = n
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return transport.DistributeResponse{}, err
		}
		return transport.DistributeResponse{}, s.internal(ctx, "distribute pool leads", err, "poolId", poolID, "agentId", req.AgentID)
	}

	s.bus.Publish(ctx, events.PoolLeadsDistributed{
		BaseEvent: events.NewBaseEvent(),
		PoolID:    poolID,
		AgentID:   req.AgentID,
		LeadIDs:   ids,
	})

	return transport.DistributeResponse{Distributed: distributed}, nil
}

func (s *Service) getPool(ctx context.Context, q repository.DBTX, poolID uuid.UUID) (repository.Pool, error) {
	pool, err := s.repo.GetPool(ctx, q, poolID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Pool{}, apperr.NotFound(msgPoolNotFound)
		}
		if q != nil {
			return repository.Pool{}, err
		}
		return repository.Pool{}, s.internal(ctx, "get pool", err, "poolId", poolID)
	}
	return pool, nil
}

func (s *Service) internal(ctx context.Context, op string, err error, attrs ...any) error {
	if s.log != nil {
		s.log.WithContext(ctx).StorageError("pool operation failed", op, err, attrs...)
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
