package repository

import (
	"context"
	"errors"
	"fmt"

	"callcenter_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DispositionCatalog holds every disposition entry, active or not.
type DispositionCatalog struct {
	FirstLevel  []domain.Disposition
	SecondLevel []domain.Disposition
	ThirdLevel  []domain.Reason
}

// GetFirstLevel loads a contact status.
func (r *Repository) GetFirstLevel(ctx context.Context, id uuid.UUID) (domain.Disposition, error) {
	return r.getDisposition(ctx, `SELECT id, name, is_active FROM first_level_dispositions WHERE id = $1`, id)
}

// GetSecondLevel loads a sale status.
func (r *Repository) GetSecondLevel(ctx context.Context, id uuid.UUID) (domain.Disposition, error) {
	return r.getDisposition(ctx, `SELECT id, name, is_active FROM second_level_dispositions WHERE id = $1`, id)
}

func (r *Repository) getDisposition(ctx context.Context, query string, id uuid.UUID) (domain.Disposition, error) {
	var d domain.Disposition
	err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Disposition{}, ErrNotFound
	}
	if err != nil {
		return domain.Disposition{}, fmt.Errorf("failed to get disposition: %w", err)
	}
	return d, nil
}

// GetThirdLevel loads a reason.
func (r *Repository) GetThirdLevel(ctx context.Context, id uuid.UUID) (domain.Reason, error) {
	var reason domain.Reason
	var category string
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, category, is_active
		FROM third_level_dispositions
		WHERE id = $1
	`, id).Scan(&reason.ID, &reason.Name, &category, &reason.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reason{}, ErrNotFound
	}
	if err != nil {
		return domain.Reason{}, fmt.Errorf("failed to get reason: %w", err)
	}
	reason.Category = domain.ReasonCategory(category)
	return reason, nil
}

// ListDispositions returns the full catalog ordered by name.
func (r *Repository) ListDispositions(ctx context.Context) (DispositionCatalog, error) {
	var catalog DispositionCatalog

	first, err := r.listDispositions(ctx, `SELECT id, name, is_active FROM first_level_dispositions ORDER BY name`)
	if err != nil {
		return catalog, err
	}
	second, err := r.listDispositions(ctx, `SELECT id, name, is_active FROM second_level_dispositions ORDER BY name`)
	if err != nil {
		return catalog, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name, category, is_active FROM third_level_dispositions ORDER BY category, name`)
	if err != nil {
		return catalog, fmt.Errorf("failed to list reasons: %w", err)
	}
	defer rows.Close()
	third := make([]domain.Reason, 0)
	for rows.Next() {
		var reason domain.Reason
		var category string
		if err := rows.Scan(&reason.ID, &reason.Name, &category, &reason.IsActive); err != nil {
			return catalog, fmt.Errorf("failed to scan reason: %w", err)
		}
		reason.Category = domain.ReasonCategory(category)
		third = append(third, reason)
	}
	if err := rows.Err(); err != nil {
		return catalog, fmt.Errorf("failed to iterate reasons: %w", err)
	}

	catalog.FirstLevel = first
	catalog.SecondLevel = second
	catalog.ThirdLevel = third
	return catalog, nil
}

func (r *Repository) listDispositions(ctx context.Context, query string) ([]domain.Disposition, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispositions: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Disposition, 0)
	for rows.Next() {
		var d domain.Disposition
		if err := rows.Scan(&d.ID, &d.Name, &d.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan disposition: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dispositions: %w", err)
	}
	return items, nil
}

// ListSectors returns active sectors.
func (r *Repository) ListSectors(ctx context.Context) ([]Sector, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM sectors WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Sector])
	if err != nil {
		return nil, fmt.Errorf("failed to scan sectors: %w", err)
	}
	return items, nil
}

// ListProducts returns active products.
func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM products WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Product])
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return items, nil
}

// UpsertFirstLevel inserts or reactivates a contact status by name.
func (r *Repository) UpsertFirstLevel(ctx context.Context, name string, active bool) error {
	return r.upsertNamed(ctx, `
		INSERT INTO first_level_dispositions (name, is_active) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET is_active = EXCLUDED.is_active
	`, name, active)
}

// UpsertSecondLevel inserts or reactivates a sale status by name.
func (r *Repository) UpsertSecondLevel(ctx context.Context, name string, active bool) error {
	return r.upsertNamed(ctx, `
		INSERT INTO second_level_dispositions (name, is_active) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET is_active = EXCLUDED.is_active
	`, name, active)
}

// UpsertThirdLevel inserts or updates a reason by name.
func (r *Repository) UpsertThirdLevel(ctx context.Context, name string, category domain.ReasonCategory, active bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO third_level_dispositions (name, category, is_active) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET category = EXCLUDED.category, is_active = EXCLUDED.is_active
	`, name, string(category), active)
	if err != nil {
		return fmt.Errorf("failed to upsert reason %q: %w", name, err)
	}
	return nil
}

// UpsertSector inserts a sector unless one with the same name exists.
func (r *Repository) UpsertSector(ctx context.Context, name string) error {
	return r.upsertNamed(ctx, `
		INSERT INTO sectors (name, is_active) VALUES ($1, $2)
		ON CONFLICT ((lower(name))) DO UPDATE SET is_active = EXCLUDED.is_active
	`, name, true)
}

// UpsertProduct inserts a product unless one with the same name exists.
func (r *Repository) UpsertProduct(ctx context.Context, name string) error {
	return r.upsertNamed(ctx, `
		INSERT INTO products (name, is_active) VALUES ($1, $2)
		ON CONFLICT ((lower(name))) DO UPDATE SET is_active = EXCLUDED.is_active
	`, name, true)
}

func (r *Repository) upsertNamed(ctx context.Context, query, name string, active bool) error {
	if _, err := r.pool.Exec(ctx, query, name, active); err != nil {
		return fmt.Errorf("failed to upsert %q: %w", name, err)
	}
	return nil
}
