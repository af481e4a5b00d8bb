package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetPool loads a lead pool.
func (r *Repository) GetPool(ctx context.Context, q DBTX, id uuid.UUID) (Pool, error) {
	var p Pool
	err := r.db(q).QueryRow(ctx, `
		SELECT id, name, campaign_id, created_by_id, created_at
		FROM lead_pools
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.CampaignID, &p.CreatedByID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Pool{}, ErrNotFound
	}
	if err != nil {
		return Pool{}, fmt.Errorf("failed to get pool: %w", err)
	}
	return p, nil
}

// CreatePool inserts a pool bound to a campaign.
func (r *Repository) CreatePool(ctx context.Context, name string, campaignID uuid.UUID, createdBy *uuid.UUID) (Pool, error) {
	var p Pool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_pools (name, campaign_id, created_by_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, campaign_id, created_by_id, created_at
	`, name, campaignID, createdBy).Scan(&p.ID, &p.Name, &p.CampaignID, &p.CreatedByID, &p.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Pool{}, ErrNotFound
		}
		return Pool{}, fmt.Errorf("failed to create pool: %w", err)
	}
	return p, nil
}

// ListPoolLeads returns the pool's leads, oldest first.
func (r *Repository) ListPoolLeads(ctx context.Context, poolID uuid.UUID, unassignedOnly bool) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads l
		WHERE l.pool_id = $1 AND (NOT $2 OR l.assigned_to_id IS NULL)
		ORDER BY l.created_at, l.id
	`, poolID, unassignedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool leads: %w", err)
	}
	return collectLeads(rows)
}

// GetPoolSummary counts the pool's leads by assignment.
func (r *Repository) GetPoolSummary(ctx context.Context, poolID uuid.UUID) (PoolSummary, error) {
	var s PoolSummary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)::int,
			COUNT(*) FILTER (WHERE assigned_to_id IS NOT NULL)::int
		FROM leads
		WHERE pool_id = $1
	`, poolID).Scan(&s.Total, &s.Assigned)
	if err != nil {
		return PoolSummary{}, fmt.Errorf("failed to summarize pool: %w", err)
	}
	s.Unassigned = s.Total - s.Assigned
	return s, nil
}
