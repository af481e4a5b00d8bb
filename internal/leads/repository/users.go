package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetUser loads a user.
func (r *Repository) GetUser(ctx context.Context, q DBTX, id uuid.UUID) (User, error) {
	var u User
	err := r.db(q).QueryRow(ctx, `
		SELECT id, name, role, is_active
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Role, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// CreateAgentNotification stores an in-app notice for an agent.
func (r *Repository) CreateAgentNotification(ctx context.Context, agentID uuid.UUID, title, content string, resourceID *uuid.UUID) (AgentNotification, error) {
	var n AgentNotification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO agent_notifications (agent_id, title, content, resource_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, agent_id, title, content, resource_id, created_at
	`, agentID, title, content, resourceID).Scan(&n.ID, &n.AgentID, &n.Title, &n.Content, &n.ResourceID, &n.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return AgentNotification{}, ErrNotFound
		}
		return AgentNotification{}, fmt.Errorf("failed to create agent notification: %w", err)
	}
	return n, nil
}
