package repository

import (
	"time"

	"github.com/google/uuid"
)

type Lead struct {
	ID                       uuid.UUID
	FullName                 string
	PhoneNumber              string
	SectorID                 *uuid.UUID
	CampaignID               *uuid.UUID
	AssignedToID             *uuid.UUID
	PoolID                   *uuid.UUID
	FirstLevelDispositionID  *uuid.UUID
	SecondLevelDispositionID *uuid.UUID
	ThirdLevelDispositionID  *uuid.UUID
	Notes                    *string
	Source                   string
	LastCalledAt             *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
	ProductIDs               []uuid.UUID
}

type CreateLeadParams struct {
	FullName     string
	PhoneNumber  string
	SectorID     *uuid.UUID
	CampaignID   *uuid.UUID
	AssignedToID *uuid.UUID
	PoolID       *uuid.UUID
	Notes        *string
	Source       string
	ProductIDs   []uuid.UUID
}

type DispositionUpdate struct {
	FirstID  uuid.UUID
	SecondID *uuid.UUID
	ThirdID  *uuid.UUID
	Notes    *string
}

type Campaign struct {
	ID           uuid.UUID
	Name         string
	IsActive     bool
	LeadCount    int
	AssignedToID *uuid.UUID
}

type Pool struct {
	ID          uuid.UUID
	Name        string
	CampaignID  uuid.UUID
	CreatedByID *uuid.UUID
	CreatedAt   time.Time
}

type PoolSummary struct {
	Total      int
	Assigned   int
	Unassigned int
}

type User struct {
	ID       uuid.UUID
	Name     string
	Role     string
	IsActive bool
}

type Sector struct {
	ID   uuid.UUID
	Name string
}

type Product struct {
	ID   uuid.UUID
	Name string
}

// CounterDrift is a campaign whose stored lead_count disagreed with its leads.
type CounterDrift struct {
	CampaignID uuid.UUID
	Stored     int
	Actual     int
}

type AgentNotification struct {
	ID         uuid.UUID
	AgentID    uuid.UUID
	Title      string
	Content    string
	ResourceID *uuid.UUID
	CreatedAt  time.Time
}
