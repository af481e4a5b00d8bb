package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type UpdateDispositionRequest struct {
	FirstLevelDispositionID  uuid.UUID  `json:"firstLevelDispositionId" validate:"required"`
	SecondLevelDispositionID *uuid.UUID `json:"secondLevelDispositionId,omitempty" validate:"omitempty"`
	ThirdLevelDispositionID  *uuid.UUID `json:"thirdLevelDispositionId,omitempty" validate:"omitempty"`
	Notes                    *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type AssignCampaignRequest struct {
	CampaignID uuid.UUID `json:"campaignId" validate:"required"`
}

type BulkAssignCampaignRequest struct {
	LeadIDs    []uuid.UUID `json:"leadIds" validate:"required,min=1,max=1000,dive,required"`
	CampaignID uuid.UUID   `json:"campaignId" validate:"required"`
}

type AssignAgentRequest struct {
	AgentID uuid.UUID `json:"agentId" validate:"required"`
}

type BulkAssignAgentRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=1000,dive,required"`
	AgentID uuid.UUID   `json:"agentId" validate:"required"`
}

type DistributeRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=1000,dive,required"`
	AgentID uuid.UUID   `json:"agentId" validate:"required"`
}

// BulkImportRequest carries spreadsheet rows keyed by their header cell.
type BulkImportRequest struct {
	Rows []map[string]string `json:"rows" validate:"required,min=1"`
}

type CreatePoolRequest struct {
	Name       string    `json:"name" validate:"required,min=1,max=200"`
	CampaignID uuid.UUID `json:"campaignId" validate:"required"`
}

type CreateLeadRequest struct {
	FullName    string      `json:"fullName" validate:"required,min=1,max=200"`
	PhoneNumber string      `json:"phoneNumber" validate:"required,min=3,max=32"`
	SectorID    *uuid.UUID  `json:"sectorId,omitempty" validate:"omitempty"`
	ProductIDs  []uuid.UUID `json:"productIds,omitempty" validate:"omitempty,max=20,dive,required"`
}

// QuickEntryRequest is the agent-side lead form; the campaign comes from the path.
type QuickEntryRequest struct {
	FullName    string      `json:"fullName" validate:"required,min=1,max=200"`
	PhoneNumber string      `json:"phoneNumber" validate:"required,min=3,max=32"`
	SectorID    *uuid.UUID  `json:"sectorId,omitempty" validate:"omitempty"`
	ProductIDs  []uuid.UUID `json:"productIds,omitempty" validate:"omitempty,max=20,dive,required"`
	Notes       *string     `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Response DTOs
type LeadResponse struct {
	ID                       uuid.UUID   `json:"id"`
	FullName                 string      `json:"fullName"`
	PhoneNumber              string      `json:"phoneNumber"`
	SectorID                 *uuid.UUID  `json:"sectorId,omitempty"`
	CampaignID               *uuid.UUID  `json:"campaignId,omitempty"`
	AssignedToID             *uuid.UUID  `json:"assignedToId,omitempty"`
	PoolID                   *uuid.UUID  `json:"poolId,omitempty"`
	FirstLevelDispositionID  *uuid.UUID  `json:"firstLevelDispositionId,omitempty"`
	SecondLevelDispositionID *uuid.UUID  `json:"secondLevelDispositionId,omitempty"`
	ThirdLevelDispositionID  *uuid.UUID  `json:"thirdLevelDispositionId,omitempty"`
	Notes                    *string     `json:"notes,omitempty"`
	Source                   string      `json:"source"`
	ProductIDs               []uuid.UUID `json:"productIds"`
	LastCalledAt             *time.Time  `json:"lastCalledAt,omitempty"`
	CreatedAt                time.Time   `json:"createdAt"`
	UpdatedAt                time.Time   `json:"updatedAt"`
}

type DispositionResponse struct {
	Lead  LeadResponse `json:"lead"`
	State string       `json:"state"`
}

// BulkAssignCampaignResponse reports the partition of a bulk campaign assignment.
type BulkAssignCampaignResponse struct {
	Assigned           int         `json:"assigned"`
	AlreadyAssigned    int         `json:"alreadyAssigned"`
	NotFound           int         `json:"notFound"`
	AssignedIDs        []uuid.UUID `json:"assignedIds"`
	AlreadyAssignedIDs []uuid.UUID `json:"alreadyAssignedIds"`
	NotFoundIDs        []uuid.UUID `json:"notFoundIds"`
}

type BulkAssignAgentResponse struct {
	Updated     []LeadResponse `json:"updated"`
	NotFoundIDs []uuid.UUID    `json:"notFoundIds"`
}

type DistributeResponse struct {
	Distributed int `json:"distributed"`
}

type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResultResponse struct {
	Imported     int              `json:"imported"`
	Duplicates   int              `json:"duplicates"`
	Errors       int              `json:"errors"`
	ErrorDetails []ImportRowError `json:"errorDetails"`
	SourceKey    string           `json:"sourceKey,omitempty"`
}

type PoolSummaryResponse struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
}

type PoolResponse struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	CampaignID  uuid.UUID            `json:"campaignId"`
	CreatedByID *uuid.UUID           `json:"createdById,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	Summary     *PoolSummaryResponse `json:"summary,omitempty"`
}

type PoolLeadsResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

type CheckDuplicateResponse struct {
	IsDuplicate     bool   `json:"isDuplicate"`
	NormalizedPhone string `json:"normalizedPhone"`
	E164Hint        string `json:"e164Hint,omitempty"`
}

type DispositionItem struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"isActive"`
}

type ReasonItem struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	IsActive bool      `json:"isActive"`
}

type DispositionCatalogResponse struct {
	FirstLevel  []DispositionItem `json:"firstLevel"`
	SecondLevel []DispositionItem `json:"secondLevel"`
	ThirdLevel  []ReasonItem      `json:"thirdLevel"`
}
