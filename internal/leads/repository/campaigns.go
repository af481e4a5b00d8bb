package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetCampaign loads a campaign.
func (r *Repository) GetCampaign(ctx context.Context, q DBTX, id uuid.UUID) (Campaign, error) {
	var c Campaign
	err := r.db(q).QueryRow(ctx, `
		SELECT id, name, is_active, lead_count, assigned_to_id
		FROM campaigns
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.IsActive, &c.LeadCount, &c.AssignedToID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// IncrementLeadCount adds delta to the campaign's denormalized lead counter.
// The write is relative so concurrent increments never overwrite each other.
func (r *Repository) IncrementLeadCount(ctx context.Context, q DBTX, campaignID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	tag, err := r.db(q).Exec(ctx, `
		UPDATE campaigns
		SET lead_count = lead_count + $2, updated_at = now()
		WHERE id = $1
	`, campaignID, delta)
	if err != nil {
		return fmt.Errorf("failed to increment lead count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReconcileLeadCounts rewrites every campaign counter that disagrees with the
// number of leads bound to it and reports the corrections.
func (r *Repository) ReconcileLeadCounts(ctx context.Context) ([]CounterDrift, error) {
	rows, err := r.pool.Query(ctx, `
		WITH actual AS (
			SELECT c.id, c.lead_count AS stored, COUNT(l.id)::int AS actual
			FROM campaigns c
			LEFT JOIN leads l ON l.campaign_id = c.id
			GROUP BY c.id, c.lead_count
		)
		UPDATE campaigns c
		SET lead_count = a.actual, updated_at = now()
		FROM actual a
		WHERE c.id = a.id AND a.stored <> a.actual
		RETURNING c.id, a.stored, a.actual
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile lead counts: %w", err)
	}
	defer rows.Close()

	drifts := make([]CounterDrift, 0)
	for rows.Next() {
		var d CounterDrift
		if err := rows.Scan(&d.CampaignID, &d.Stored, &d.Actual); err != nil {
			return nil, fmt.Errorf("failed to scan counter drift: %w", err)
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counter drift: %w", err)
	}
	return drifts, nil
}
