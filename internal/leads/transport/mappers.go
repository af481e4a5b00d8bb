package transport

import (
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// ToLeadResponse converts a repository lead to its API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	productIDs := lead.ProductIDs
	if productIDs == nil {
		productIDs = []uuid.UUID{}
	}
	return LeadResponse{
		ID:                       lead.ID,
		FullName:                 lead.FullName,
		PhoneNumber:              lead.PhoneNumber,
		SectorID:                 lead.SectorID,
		CampaignID:               lead.CampaignID,
		AssignedToID:             lead.AssignedToID,
		PoolID:                   lead.PoolID,
		FirstLevelDispositionID:  lead.FirstLevelDispositionID,
		SecondLevelDispositionID: lead.SecondLevelDispositionID,
		ThirdLevelDispositionID:  lead.ThirdLevelDispositionID,
		Notes:                    lead.Notes,
		Source:                   lead.Source,
		ProductIDs:               productIDs,
		LastCalledAt:             lead.LastCalledAt,
		CreatedAt:                lead.CreatedAt,
		UpdatedAt:                lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, len(leads))
	for i, lead := range leads {
		out[i] = ToLeadResponse(lead)
	}
	return out
}

func ToPoolResponse(pool repository.Pool, summary *repository.PoolSummary) PoolResponse {
	resp := PoolResponse{
		ID:          pool.ID,
		Name:        pool.Name,
		CampaignID:  pool.CampaignID,
		CreatedByID: pool.CreatedByID,
		CreatedAt:   pool.CreatedAt,
	}
	if summary != nil {
		resp.Summary = &PoolSummaryResponse{
			Total:      summary.Total,
			Assigned:   summary.Assigned,
			Unassigned: summary.Unassigned,
		}
	}
	return resp
}

func ToDispositionCatalogResponse(catalog repository.DispositionCatalog) DispositionCatalogResponse {
	resp := DispositionCatalogResponse{
		FirstLevel:  toDispositionItems(catalog.FirstLevel),
		SecondLevel: toDispositionItems(catalog.SecondLevel),
		ThirdLevel:  make([]ReasonItem, len(catalog.ThirdLevel)),
	}
	for i, r := range catalog.ThirdLevel {
		resp.ThirdLevel[i] = ReasonItem{ID: r.ID, Name: r.Name, Category: string(r.Category), IsActive: r.IsActive}
	}
	return resp
}

func toDispositionItems(items []domain.Disposition) []DispositionItem {
	out := make([]DispositionItem, len(items))
	for i, d := range items {
		out[i] = DispositionItem{ID: d.ID, Name: d.Name, IsActive: d.IsActive}
	}
	return out
}
