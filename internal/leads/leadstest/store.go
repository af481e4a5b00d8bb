// Package leadstest provides in-memory fakes of the leads repository and the
// event bus for service tests.
package leadstest

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/repository"

	"github.com/google/uuid"
)

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// Store mimics the Postgres repository. WithTx snapshots leads, campaigns and
// pools, and restores them when the callback fails. Transactions run one at a
// time so a rollback never discards another transaction's writes.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	Leads         map[uuid.UUID]repository.Lead
	Campaigns     map[uuid.UUID]repository.Campaign
	Pools         map[uuid.UUID]repository.Pool
	Users         map[uuid.UUID]repository.User
	FirstLevel    map[uuid.UUID]domain.Disposition
	SecondLevel   map[uuid.UUID]domain.Disposition
	ThirdLevel    map[uuid.UUID]domain.Reason
	Sectors       []repository.Sector
	Products      []repository.Product
	Notifications []repository.AgentNotification

	// Fail makes the named method return the given error.
	Fail map[string]error

	seq         int
	TxCount     int
	PoolLookups int
}

func NewStore() *Store {
	return &Store{
		Leads:       make(map[uuid.UUID]repository.Lead),
		Campaigns:   make(map[uuid.UUID]repository.Campaign),
		Pools:       make(map[uuid.UUID]repository.Pool),
		Users:       make(map[uuid.UUID]repository.User),
		FirstLevel:  make(map[uuid.UUID]domain.Disposition),
		SecondLevel: make(map[uuid.UUID]domain.Disposition),
		ThirdLevel:  make(map[uuid.UUID]domain.Reason),
		Fail:        make(map[string]error),
	}
}

func (s *Store) fail(method string) error {
	return s.Fail[method]
}

func (s *Store) nextTime() time.Time {
	s.seq++
	return epoch.Add(time.Duration(s.seq) * time.Second)
}

// Seeding helpers

func (s *Store) AddUser(name, role string, active bool) repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := repository.User{ID: uuid.New(), Name: name, Role: role, IsActive: active}
	s.Users[u.ID] = u
	return u
}

func (s *Store) AddCampaign(name string, active bool, assignee *uuid.UUID) repository.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := repository.Campaign{ID: uuid.New(), Name: name, IsActive: active, AssignedToID: assignee}
	s.Campaigns[c.ID] = c
	return c
}

func (s *Store) AddPool(name string, campaignID uuid.UUID) repository.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := repository.Pool{ID: uuid.New(), Name: name, CampaignID: campaignID, CreatedAt: s.nextTime()}
	s.Pools[p.ID] = p
	return p
}

// AddLead stores lead as given, filling ID and timestamps, and keeps the
// campaign counter consistent.
func (s *Store) AddLead(lead repository.Lead) repository.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	now := s.nextTime()
	lead.CreatedAt, lead.UpdatedAt = now, now
	if lead.Source == "" {
		lead.Source = "manual"
	}
	s.Leads[lead.ID] = lead
	if lead.CampaignID != nil {
		c := s.Campaigns[*lead.CampaignID]
		c.LeadCount++
		s.Campaigns[c.ID] = c
	}
	return lead
}

func (s *Store) AddFirstLevel(name string, active bool) domain.Disposition {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.Disposition{ID: uuid.New(), Name: name, IsActive: active}
	s.FirstLevel[d.ID] = d
	return d
}

func (s *Store) AddSecondLevel(name string, active bool) domain.Disposition {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.Disposition{ID: uuid.New(), Name: name, IsActive: active}
	s.SecondLevel[d.ID] = d
	return d
}

func (s *Store) AddThirdLevel(name string, category domain.ReasonCategory, active bool) domain.Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := domain.Reason{ID: uuid.New(), Name: name, Category: category, IsActive: active}
	s.ThirdLevel[r.ID] = r
	return r
}

func (s *Store) AddSector(name string) repository.Sector {
	s.mu.Lock()
	defer s.mu.Unlock()
	sector := repository.Sector{ID: uuid.New(), Name: name}
	s.Sectors = append(s.Sectors, sector)
	return sector
}

func (s *Store) AddProduct(name string) repository.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := repository.Product{ID: uuid.New(), Name: name}
	s.Products = append(s.Products, p)
	return p
}

// Lead returns the stored lead.
func (s *Store) Lead(id uuid.UUID) repository.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Leads[id]
}

// Campaign returns the stored campaign.
func (s *Store) Campaign(id uuid.UUID) repository.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Campaigns[id]
}

// CountCampaignLeads counts leads bound to the campaign.
func (s *Store) CountCampaignLeads(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.Leads {
		if l.CampaignID != nil && *l.CampaignID == id {
			n++
		}
	}
	return n
}

// Transactions

type snapshot struct {
	leads     map[uuid.UUID]repository.Lead
	campaigns map[uuid.UUID]repository.Campaign
	pools     map[uuid.UUID]repository.Pool
}

func (s *Store) WithTx(ctx context.Context, fn func(q repository.DBTX) error) error {
	if err := s.fail("WithTx"); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.TxCount++
	snap := snapshot{
		leads:     make(map[uuid.UUID]repository.Lead, len(s.Leads)),
		campaigns: make(map[uuid.UUID]repository.Campaign, len(s.Campaigns)),
		pools:     make(map[uuid.UUID]repository.Pool, len(s.Pools)),
	}
	for k, v := range s.Leads {
		v.ProductIDs = append([]uuid.UUID(nil), v.ProductIDs...)
		snap.leads[k] = v
	}
	for k, v := range s.Campaigns {
		snap.campaigns[k] = v
	}
	for k, v := range s.Pools {
		snap.pools[k] = v
	}
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.Leads, s.Campaigns, s.Pools = snap.leads, snap.campaigns, snap.pools
		s.mu.Unlock()
		return err
	}
	return nil
}

// Leads

func sortByID(leads []repository.Lead) {
	sort.Slice(leads, func(i, j int) bool {
		return bytes.Compare(leads[i].ID[:], leads[j].ID[:]) < 0
	})
}

func (s *Store) GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	if err := s.fail("GetLead"); err != nil {
		return repository.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.Leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *Store) LockLeads(ctx context.Context, q repository.DBTX, ids []uuid.UUID) ([]repository.Lead, error) {
	if err := s.fail("LockLeads"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	out := make([]repository.Lead, 0, len(ids))
	for _, id := range ids {
		if lead, ok := s.Leads[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, lead)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *Store) phoneTaken(phone string) bool {
	for _, l := range s.Leads {
		if l.PhoneNumber == phone {
			return true
		}
	}
	return false
}

func (s *Store) insert(p repository.CreateLeadParams) repository.Lead {
	now := s.nextTime()
	lead := repository.Lead{
		ID:           uuid.New(),
		FullName:     p.FullName,
		PhoneNumber:  p.PhoneNumber,
		SectorID:     p.SectorID,
		CampaignID:   p.CampaignID,
		AssignedToID: p.AssignedToID,
		PoolID:       p.PoolID,
		Notes:        p.Notes,
		Source:       p.Source,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Leads[lead.ID] = lead
	return lead
}

func (s *Store) CreateLead(ctx context.Context, q repository.DBTX, p repository.CreateLeadParams) (repository.Lead, error) {
	if err := s.fail("CreateLead"); err != nil {
		return repository.Lead{}, err
	}
	s.mu.Lock()
	if s.phoneTaken(p.PhoneNumber) {
		s.mu.Unlock()
		return repository.Lead{}, repository.ErrDuplicatePhone
	}
	lead := s.insert(p)
	s.mu.Unlock()

	if err := s.LinkProducts(ctx, q, lead.ID, p.ProductIDs); err != nil {
		return repository.Lead{}, err
	}
	return s.Lead(lead.ID), nil
}

func (s *Store) InsertLeadIfAbsent(ctx context.Context, q repository.DBTX, p repository.CreateLeadParams) (uuid.UUID, bool, error) {
	if err := s.fail("InsertLeadIfAbsent"); err != nil {
		return uuid.Nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phoneTaken(p.PhoneNumber) {
		return uuid.Nil, false, nil
	}
	return s.insert(p).ID, true, nil
}

func (s *Store) LinkProducts(ctx context.Context, q repository.DBTX, leadID uuid.UUID, productIDs []uuid.UUID) error {
	if err := s.fail("LinkProducts"); err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.Leads[leadID]
	if !ok {
		return repository.ErrNotFound
	}
	known := make(map[uuid.UUID]bool, len(s.Products))
	for _, p := range s.Products {
		known[p.ID] = true
	}
	for _, id := range productIDs {
		if !known[id] {
			return repository.ErrNotFound
		}
		if !containsID(lead.ProductIDs, id) {
			lead.ProductIDs = append(lead.ProductIDs, id)
		}
	}
	s.Leads[leadID] = lead
	return nil
}

func (s *Store) SetCampaign(ctx context.Context, q repository.DBTX, ids []uuid.UUID, campaignID uuid.UUID, assigneeID *uuid.UUID) ([]repository.Lead, error) {
	if err := s.fail("SetCampaign"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Lead, 0, len(ids))
	for _, id := range ids {
		lead, ok := s.Leads[id]
		if !ok || lead.CampaignID != nil {
			continue
		}
		cid := campaignID
		lead.CampaignID = &cid
		if assigneeID != nil {
			a := *assigneeID
			lead.AssignedToID = &a
		}
		lead.UpdatedAt = s.nextTime()
		s.Leads[id] = lead
		out = append(out, lead)
	}
	sortByID(out)
	return out, nil
}

func (s *Store) SetAgent(ctx context.Context, q repository.DBTX, ids []uuid.UUID, agentID uuid.UUID) ([]repository.Lead, error) {
	if err := s.fail("SetAgent"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Lead, 0, len(ids))
	for _, id := range ids {
		lead, ok := s.Leads[id]
		if !ok || containsLead(out, id) {
			continue
		}
		a := agentID
		lead.AssignedToID = &a
		lead.UpdatedAt = s.nextTime()
		s.Leads[id] = lead
		out = append(out, lead)
	}
	sortByID(out)
	return out, nil
}

func (s *Store) AssignPoolLeads(ctx context.Context, q repository.DBTX, poolID uuid.UUID, ids []uuid.UUID, agentID uuid.UUID) (int, error) {
	if err := s.fail("AssignPoolLeads"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		lead, ok := s.Leads[id]
		if !ok || lead.PoolID == nil || *lead.PoolID != poolID || lead.AssignedToID != nil {
			continue
		}
		a := agentID
		lead.AssignedToID = &a
		lead.UpdatedAt = s.nextTime()
		s.Leads[id] = lead
		n++
	}
	return n, nil
}

func (s *Store) UpdateDisposition(ctx context.Context, leadID uuid.UUID, u repository.DispositionUpdate) (repository.Lead, error) {
	if err := s.fail("UpdateDisposition"); err != nil {
		return repository.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.Leads[leadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	first := u.FirstID
	lead.FirstLevelDispositionID = &first
	lead.SecondLevelDispositionID = u.SecondID
	lead.ThirdLevelDispositionID = u.ThirdID
	lead.Notes = u.Notes
	now := s.nextTime()
	lead.LastCalledAt = &now
	lead.UpdatedAt = now
	s.Leads[leadID] = lead
	return lead, nil
}

func (s *Store) ExistingPhones(ctx context.Context, phones []string) ([]string, error) {
	if err := s.fail("ExistingPhones"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range phones {
		if s.phoneTaken(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Campaigns

func (s *Store) GetCampaign(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.Campaign, error) {
	if err := s.fail("GetCampaign"); err != nil {
		return repository.Campaign{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Campaigns[id]
	if !ok {
		return repository.Campaign{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *Store) IncrementLeadCount(ctx context.Context, q repository.DBTX, campaignID uuid.UUID, delta int) error {
	if err := s.fail("IncrementLeadCount"); err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Campaigns[campaignID]
	if !ok {
		return repository.ErrNotFound
	}
	c.LeadCount += delta
	s.Campaigns[campaignID] = c
	return nil
}

func (s *Store) ReconcileLeadCounts(ctx context.Context) ([]repository.CounterDrift, error) {
	if err := s.fail("ReconcileLeadCounts"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	actual := make(map[uuid.UUID]int)
	for _, l := range s.Leads {
		if l.CampaignID != nil {
			actual[*l.CampaignID]++
		}
	}
	var drifts []repository.CounterDrift
	for id, c := range s.Campaigns {
		if c.LeadCount != actual[id] {
			drifts = append(drifts, repository.CounterDrift{CampaignID: id, Stored: c.LeadCount, Actual: actual[id]})
			c.LeadCount = actual[id]
			s.Campaigns[id] = c
		}
	}
	return drifts, nil
}

// Pools

func (s *Store) GetPool(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.Pool, error) {
	if err := s.fail("GetPool"); err != nil {
		return repository.Pool{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PoolLookups++
	p, ok := s.Pools[id]
	if !ok {
		return repository.Pool{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreatePool(ctx context.Context, name string, campaignID uuid.UUID, createdBy *uuid.UUID) (repository.Pool, error) {
	if err := s.fail("CreatePool"); err != nil {
		return repository.Pool{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Campaigns[campaignID]; !ok {
		return repository.Pool{}, repository.ErrNotFound
	}
	p := repository.Pool{ID: uuid.New(), Name: name, CampaignID: campaignID, CreatedByID: createdBy, CreatedAt: s.nextTime()}
	s.Pools[p.ID] = p
	return p, nil
}

func (s *Store) ListPoolLeads(ctx context.Context, poolID uuid.UUID, unassignedOnly bool) ([]repository.Lead, error) {
	if err := s.fail("ListPoolLeads"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, l := range s.Leads {
		if l.PoolID == nil || *l.PoolID != poolID {
			continue
		}
		if unassignedOnly && l.AssignedToID != nil {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetPoolSummary(ctx context.Context, poolID uuid.UUID) (repository.PoolSummary, error) {
	if err := s.fail("GetPoolSummary"); err != nil {
		return repository.PoolSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum repository.PoolSummary
	for _, l := range s.Leads {
		if l.PoolID == nil || *l.PoolID != poolID {
			continue
		}
		sum.Total++
		if l.AssignedToID != nil {
			sum.Assigned++
		}
	}
	sum.Unassigned = sum.Total - sum.Assigned
	return sum, nil
}

// Users

func (s *Store) GetUser(ctx context.Context, q repository.DBTX, id uuid.UUID) (repository.User, error) {
	if err := s.fail("GetUser"); err != nil {
		return repository.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateAgentNotification(ctx context.Context, agentID uuid.UUID, title, content string, resourceID *uuid.UUID) (repository.AgentNotification, error) {
	if err := s.fail("CreateAgentNotification"); err != nil {
		return repository.AgentNotification{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Users[agentID]; !ok {
		return repository.AgentNotification{}, repository.ErrNotFound
	}
	n := repository.AgentNotification{ID: uuid.New(), AgentID: agentID, Title: title, Content: content, ResourceID: resourceID, CreatedAt: s.nextTime()}
	s.Notifications = append(s.Notifications, n)
	return n, nil
}

// Catalog

func (s *Store) GetFirstLevel(ctx context.Context, id uuid.UUID) (domain.Disposition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.FirstLevel[id]
	if !ok {
		return domain.Disposition{}, repository.ErrNotFound
	}
	return d, nil
}

func (s *Store) GetSecondLevel(ctx context.Context, id uuid.UUID) (domain.Disposition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.SecondLevel[id]
	if !ok {
		return domain.Disposition{}, repository.ErrNotFound
	}
	return d, nil
}

func (s *Store) GetThirdLevel(ctx context.Context, id uuid.UUID) (domain.Reason, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ThirdLevel[id]
	if !ok {
		return domain.Reason{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListDispositions(ctx context.Context) (repository.DispositionCatalog, error) {
	if err := s.fail("ListDispositions"); err != nil {
		return repository.DispositionCatalog{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var c repository.DispositionCatalog
	for _, d := range s.FirstLevel {
		c.FirstLevel = append(c.FirstLevel, d)
	}
	for _, d := range s.SecondLevel {
		c.SecondLevel = append(c.SecondLevel, d)
	}
	for _, r := range s.ThirdLevel {
		c.ThirdLevel = append(c.ThirdLevel, r)
	}
	sort.Slice(c.FirstLevel, func(i, j int) bool { return c.FirstLevel[i].Name < c.FirstLevel[j].Name })
	sort.Slice(c.SecondLevel, func(i, j int) bool { return c.SecondLevel[i].Name < c.SecondLevel[j].Name })
	sort.Slice(c.ThirdLevel, func(i, j int) bool { return c.ThirdLevel[i].Name < c.ThirdLevel[j].Name })
	return c, nil
}

func (s *Store) ListSectors(ctx context.Context) ([]repository.Sector, error) {
	if err := s.fail("ListSectors"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.Sector(nil), s.Sectors...), nil
}

func (s *Store) ListProducts(ctx context.Context) ([]repository.Product, error) {
	if err := s.fail("ListProducts"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.Product(nil), s.Products...), nil
}

// SectorByName finds a seeded sector, ignoring case.
func (s *Store) SectorByName(name string) (repository.Sector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sector := range s.Sectors {
		if strings.EqualFold(sector.Name, name) {
			return sector, true
		}
	}
	return repository.Sector{}, false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsLead(leads []repository.Lead, id uuid.UUID) bool {
	for _, l := range leads {
		if l.ID == id {
			return true
		}
	}
	return false
}
