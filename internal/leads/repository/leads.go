package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `
	l.id, l.full_name, l.phone_number, l.sector_id, l.campaign_id, l.assigned_to_id, l.pool_id,
	l.first_level_disposition_id, l.second_level_disposition_id, l.third_level_disposition_id,
	l.notes, l.source, l.last_called_at, l.created_at, l.updated_at,
	ARRAY(SELECT lp.product_id FROM lead_products lp WHERE lp.lead_id = l.id ORDER BY lp.product_id)`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.FullName, &lead.PhoneNumber, &lead.SectorID, &lead.CampaignID, &lead.AssignedToID, &lead.PoolID,
		&lead.FirstLevelDispositionID, &lead.SecondLevelDispositionID, &lead.ThirdLevelDispositionID,
		&lead.Notes, &lead.Source, &lead.LastCalledAt, &lead.CreatedAt, &lead.UpdatedAt,
		&lead.ProductIDs,
	)
	return lead, err
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		items = append(items, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return items, nil
}

// GetLead loads a lead with its product links.
func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// LockLeads loads the given leads with a row lock held until the transaction
// ends. Ids that match no row are simply absent from the result.
func (r *Repository) LockLeads(ctx context.Context, q DBTX, ids []uuid.UUID) ([]Lead, error) {
	rows, err := r.db(q).Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads l
		WHERE l.id = ANY($1)
		ORDER BY l.id
		FOR UPDATE OF l
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock leads: %w", err)
	}
	return collectLeads(rows)
}

// CreateLead inserts a lead and its product links.
// A phone collision returns ErrDuplicatePhone.
func (r *Repository) CreateLead(ctx context.Context, q DBTX, p CreateLeadParams) (Lead, error) {
	db := r.db(q)
	var id uuid.UUID
	err := db.QueryRow(ctx, `
		INSERT INTO leads (full_name, phone_number, sector_id, campaign_id, assigned_to_id, pool_id, notes, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, p.FullName, p.PhoneNumber, p.SectorID, p.CampaignID, p.AssignedToID, p.PoolID, p.Notes, p.Source).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, leadsPhoneConstraint) {
			return Lead{}, ErrDuplicatePhone
		}
		return Lead{}, fmt.Errorf("failed to create lead: %w", err)
	}

	if err := r.LinkProducts(ctx, db, id, p.ProductIDs); err != nil {
		return Lead{}, err
	}

	lead, err := scanLead(db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads l WHERE l.id = $1`, id))
	if err != nil {
		return Lead{}, fmt.Errorf("failed to reload lead: %w", err)
	}
	return lead, nil
}

// InsertLeadIfAbsent inserts a lead unless its phone number already exists.
// created is false when the insert was skipped.
func (r *Repository) InsertLeadIfAbsent(ctx context.Context, q DBTX, p CreateLeadParams) (id uuid.UUID, created bool, err error) {
	err = r.db(q).QueryRow(ctx, `
		INSERT INTO leads (full_name, phone_number, sector_id, campaign_id, assigned_to_id, pool_id, notes, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (phone_number) DO NOTHING
		RETURNING id
	`, p.FullName, p.PhoneNumber, p.SectorID, p.CampaignID, p.AssignedToID, p.PoolID, p.Notes, p.Source).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to insert lead: %w", err)
	}
	return id, true, nil
}

// LinkProducts attaches products to a lead, ignoring existing links.
func (r *Repository) LinkProducts(ctx context.Context, q DBTX, leadID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := r.db(q).Exec(ctx, `
		INSERT INTO lead_products (lead_id, product_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING
	`, leadID, productIDs)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to link products: %w", err)
	}
	return nil
}

// SetCampaign binds unassigned leads to a campaign. Leads that already carry a
// campaign are left untouched. A nil assigneeID keeps the current agent.
func (r *Repository) SetCampaign(ctx context.Context, q DBTX, ids []uuid.UUID, campaignID uuid.UUID, assigneeID *uuid.UUID) ([]Lead, error) {
	rows, err := r.db(q).Query(ctx, `
		WITH updated AS (
			UPDATE leads
			SET campaign_id = $2,
				assigned_to_id = COALESCE($3, assigned_to_id),
				updated_at = now()
			WHERE id = ANY($1) AND campaign_id IS NULL
			RETURNING *
		)
		SELECT `+leadColumns+` FROM updated l ORDER BY l.id
	`, ids, campaignID, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to set campaign: %w", err)
	}
	return collectLeads(rows)
}

// SetAgent overwrites the assigned agent of the given leads.
func (r *Repository) SetAgent(ctx context.Context, q DBTX, ids []uuid.UUID, agentID uuid.UUID) ([]Lead, error) {
	rows, err := r.db(q).Query(ctx, `
		WITH updated AS (
			UPDATE leads
			SET assigned_to_id = $2, updated_at = now()
			WHERE id = ANY($1)
			RETURNING *
		)
		SELECT `+leadColumns+` FROM updated l ORDER BY l.id
	`, ids, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to set agent: %w", err)
	}
	return collectLeads(rows)
}

// AssignPoolLeads hands unassigned leads of a pool to an agent and returns the
// number of rows changed.
func (r *Repository) AssignPoolLeads(ctx context.Context, q DBTX, poolID uuid.UUID, ids []uuid.UUID, agentID uuid.UUID) (int, error) {
	tag, err := r.db(q).Exec(ctx, `
		UPDATE leads
		SET assigned_to_id = $3, updated_at = now()
		WHERE pool_id = $1 AND id = ANY($2) AND assigned_to_id IS NULL
	`, poolID, ids, agentID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign pool leads: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// UpdateDisposition overwrites the call outcome and stamps last_called_at.
func (r *Repository) UpdateDisposition(ctx context.Context, leadID uuid.UUID, u DispositionUpdate) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		WITH updated AS (
			UPDATE leads
			SET first_level_disposition_id = $2,
				second_level_disposition_id = $3,
				third_level_disposition_id = $4,
				notes = $5,
				last_called_at = now(),
				updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+leadColumns+` FROM updated l
	`, leadID, u.FirstID, u.SecondID, u.ThirdID, u.Notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("failed to update disposition: %w", err)
	}
	return lead, nil
}

// ExistingPhones returns the subset of phones already stored on a lead.
func (r *Repository) ExistingPhones(ctx context.Context, phones []string) ([]string, error) {
	if len(phones) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT phone_number FROM leads WHERE phone_number = ANY($1)`, phones)
	if err != nil {
		return nil, fmt.Errorf("failed to query phones: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan phones: %w", err)
	}
	return found, nil
}
