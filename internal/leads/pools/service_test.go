package pools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/leads/dedupe"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/leadstest"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/apperr"

	"github.com/google/uuid"
)

type testConfig struct {
	defaultSector string
	maxRows       int
}

func (c testConfig) GetImportDefaultSector() string { return c.defaultSector }
func (c testConfig) GetImportMaxRows() int          { return c.maxRows }

type fakeArchiver struct {
	keys []string
	body []byte
	err  error
}

func (f *fakeArchiver) ArchiveImport(_ context.Context, folder, fileName string, reader io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.body, _ = io.ReadAll(reader)
	key := folder + "/" + fileName
	f.keys = append(f.keys, key)
	return key, nil
}

type fixture struct {
	store    *leadstest.Store
	bus      *leadstest.Bus
	archiver *fakeArchiver
	svc      *Service
	campaign repository.Campaign
	pool     repository.Pool
	agent    repository.User
}

func newFixture(cfg testConfig) fixture {
	store := leadstest.NewStore()
	bus := leadstest.NewBus()
	archiver := &fakeArchiver{}
	campaign := store.AddCampaign("Outbound", true, nil)
	return fixture{
		store:    store,
		bus:      bus,
		archiver: archiver,
		svc:      New(store, dedupe.New(store, nil, nil, nil), archiver, bus, cfg, nil),
		campaign: campaign,
		pool:     store.AddPool("March list", campaign.ID),
		agent:    store.AddUser("Ava", domain.RoleAgent, true),
	}
}

func (f fixture) addPooled(n int) []repository.Lead {
	leads := make([]repository.Lead, n)
	for i := range leads {
		poolID, campaignID := f.pool.ID, f.campaign.ID
		leads[i] = f.store.AddLead(repository.Lead{FullName: "Pooled", PhoneNumber: uuid.NewString(), PoolID: &poolID, CampaignID: &campaignID})
	}
	return leads
}

func TestDistribute(t *testing.T) {
	f := newFixture(testConfig{})
	leads := f.addPooled(3)

	resp, err := f.svc.Distribute(context.Background(), f.pool.ID, transport.DistributeRequest{
		AgentID: f.agent.ID,
		LeadIDs: []uuid.UUID{leads[0].ID, leads[1].ID, leads[0].ID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Distributed != 2 {
		t.Fatalf("distributed = %d, want 2", resp.Distributed)
	}
	if got := f.store.Lead(leads[1].ID).AssignedToID; got == nil || *got != f.agent.ID {
		t.Fatal("lead not handed to agent")
	}
	if f.store.Lead(leads[2].ID).AssignedToID != nil {
		t.Fatal("untouched lead was assigned")
	}
	if names := f.bus.Names(); len(names) != 1 || names[0] != "leads.pool.distributed" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestDistributeIsAllOrNothing(t *testing.T) {
	f := newFixture(testConfig{})
	leads := f.addPooled(3)
	outsider := f.store.AddLead(repository.Lead{FullName: "Outsider", PhoneNumber: "outsider"})

	if _, err := f.svc.Distribute(context.Background(), f.pool.ID, transport.DistributeRequest{
		AgentID: f.agent.ID,
		LeadIDs: []uuid.UUID{leads[2].ID},
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name    string
		poolID  uuid.UUID
		agentID uuid.UUID
		ids     []uuid.UUID
		want    apperr.Kind
		wantMsg string
	}{
		{name: "missing pool", poolID: uuid.New(), agentID: f.agent.ID, ids: []uuid.UUID{leads[0].ID}, want: apperr.KindNotFound, wantMsg: msgPoolNotFound},
		{name: "unknown agent", poolID: f.pool.ID, agentID: uuid.New(), ids: []uuid.UUID{leads[0].ID}, want: apperr.KindNotFound},
		{name: "lead outside pool", poolID: f.pool.ID, agentID: f.agent.ID, ids: []uuid.UUID{leads[0].ID, outsider.ID}, want: apperr.KindNotFound, wantMsg: msgNotInPool},
		{name: "missing lead", poolID: f.pool.ID, agentID: f.agent.ID, ids: []uuid.UUID{leads[0].ID, uuid.New()}, want: apperr.KindNotFound, wantMsg: msgNotInPool},
		{name: "already assigned", poolID: f.pool.ID, agentID: f.agent.ID, ids: []uuid.UUID{leads[0].ID, leads[2].ID}, want: apperr.KindConflict, wantMsg: msgAlreadyAssigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Distribute(context.Background(), tt.poolID, transport.DistributeRequest{AgentID: tt.agentID, LeadIDs: tt.ids})
			e, ok := apperr.As(err)
			if !ok || e.Kind != tt.want {
				t.Fatalf("got %v, want kind %v", err, tt.want)
			}
			if tt.wantMsg != "" && e.Message != tt.wantMsg {
				t.Fatalf("message = %q, want %q", e.Message, tt.wantMsg)
			}
		})
	}

	if f.store.Lead(leads[0].ID).AssignedToID != nil {
		t.Fatal("failed distribution must not assign any lead")
	}
}

func TestBulkImportExampleScenario(t *testing.T) {
	f := newFixture(testConfig{defaultSector: "General", maxRows: 100})
	technology := f.store.AddSector("Technology")
	general := f.store.AddSector("General")

	rows := []map[string]string{
		{"Full Name": "Alice", "Phone Number": "+1 555 0101", "Sector": "Technology", "Product": ""},
		{"Full Name": "Bob", "Phone Number": "555-0102", "Sector": "", "Product": "Loans"},
		{"Full Name": "", "Phone Number": "555-0103", "Sector": "", "Product": ""},
	}

	result, err := f.svc.BulkImport(context.Background(), f.pool.ID, rows, &f.agent.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Imported != 2 || result.Duplicates != 0 || result.Errors != 1 {
		t.Fatalf("result = %+v, want 2/0/1", result)
	}
	if len(result.ErrorDetails) != 1 || result.ErrorDetails[0].Row != 3 || result.ErrorDetails[0].Reason != reasonMissingName {
		t.Fatalf("unexpected error details %+v", result.ErrorDetails)
	}
	if got := f.store.Campaign(f.campaign.ID).LeadCount; got != 2 {
		t.Fatalf("lead_count = %d, want 2", got)
	}

	pooled, _ := f.store.ListPoolLeads(context.Background(), f.pool.ID, false)
	if len(pooled) != 2 {
		t.Fatalf("pool holds %d leads, want 2", len(pooled))
	}
	for _, lead := range pooled {
		if lead.AssignedToID != nil || lead.CampaignID == nil || *lead.CampaignID != f.campaign.ID {
			t.Fatalf("imported lead must be unassigned in the pool's campaign: %+v", lead)
		}
		want := general.ID
		if lead.FullName == "Alice" {
			want = technology.ID
			if lead.PhoneNumber != "+15550101" {
				t.Fatalf("phone = %q, want whitespace stripped", lead.PhoneNumber)
			}
		}
		if lead.SectorID == nil || *lead.SectorID != want {
			t.Fatalf("%s: unexpected sector", lead.FullName)
		}
		if len(lead.ProductIDs) != 0 {
			t.Fatalf("%s: unmatched products must be omitted", lead.FullName)
		}
	}

	again, err := f.svc.BulkImport(context.Background(), f.pool.ID, rows, &f.agent.ID)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if again.Imported != 0 || again.Duplicates != 2 || again.Errors != 1 {
		t.Fatalf("re-import = %+v, want 0/2/1", again)
	}
	if got := f.store.Campaign(f.campaign.ID).LeadCount; got != 2 {
		t.Fatalf("re-import changed lead_count to %d", got)
	}

	if names := f.bus.Names(); len(names) != 2 {
		t.Fatalf("expected one event per import, got %v", names)
	}
	if e := f.bus.Events[0].(events.PoolLeadsImported); e.Imported != 2 || e.Errors != 1 {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestBulkImportRowRules(t *testing.T) {
	f := newFixture(testConfig{defaultSector: "General"})
	f.store.AddSector("General")
	retail := f.store.AddSector("Retail")
	solar := f.store.AddProduct("Solar")
	loans := f.store.AddProduct("Loans")

	rows := []map[string]string{
		{"name": "  Carol ", "mobile": "06 1234 5678", "industry": "RETAIL", "product_name": "solar; Loans, Unknown"},
		{"fullName": "Dave", "telephone": "0612345678"},
		{"full_name": "", "phone": ""},
		{"Full-Name": "Erin"},
		{"Full Name": "Frank", "Phone Number": "\t"},
	}

	result, err := f.svc.BulkImport(context.Background(), f.pool.ID, rows, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Imported != 1 || result.Duplicates != 1 || result.Errors != 3 {
		t.Fatalf("result = %+v, want 1/1/3", result)
	}

	wantErrors := []transport.ImportRowError{
		{Row: 3, Reason: reasonMissingName},
		{Row: 4, Reason: reasonMissingPhone},
		{Row: 5, Reason: reasonMissingPhone},
	}
	for i, want := range wantErrors {
		if result.ErrorDetails[i] != want {
			t.Fatalf("error %d = %+v, want %+v", i, result.ErrorDetails[i], want)
		}
	}

	pooled, _ := f.store.ListPoolLeads(context.Background(), f.pool.ID, false)
	if len(pooled) != 1 {
		t.Fatalf("pool holds %d leads, want 1", len(pooled))
	}
	carol := pooled[0]
	if carol.FullName != "Carol" || carol.PhoneNumber != "0612345678" {
		t.Fatalf("unexpected lead %+v", carol)
	}
	if carol.SectorID == nil || *carol.SectorID != retail.ID {
		t.Fatal("sector must match case-insensitively")
	}
	if len(carol.ProductIDs) != 2 || !hasID(carol.ProductIDs, solar.ID) || !hasID(carol.ProductIDs, loans.ID) {
		t.Fatalf("products = %v, want solar and loans", carol.ProductIDs)
	}
}

func TestBulkImportFailures(t *testing.T) {
	t.Run("missing pool", func(t *testing.T) {
		f := newFixture(testConfig{defaultSector: "General"})
		_, err := f.svc.BulkImport(context.Background(), uuid.New(), []map[string]string{{"name": "A", "phone": "1"}}, nil)
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("got %v, want not found", err)
		}
	})

	t.Run("unresolvable default sector", func(t *testing.T) {
		f := newFixture(testConfig{defaultSector: "General"})
		_, err := f.svc.BulkImport(context.Background(), f.pool.ID, []map[string]string{{"name": "A", "phone": "1"}}, nil)
		if !apperr.Is(err, apperr.KindInternal) {
			t.Fatalf("got %v, want internal", err)
		}
		if f.store.Campaign(f.campaign.ID).LeadCount != 0 {
			t.Fatal("nothing may be inserted")
		}
	})

	t.Run("default sector only needed when a row lacks one", func(t *testing.T) {
		f := newFixture(testConfig{defaultSector: "General"})
		f.store.AddSector("Retail")
		result, err := f.svc.BulkImport(context.Background(), f.pool.ID, []map[string]string{{"name": "A", "phone": "1", "sector": "Retail"}}, nil)
		if err != nil || result.Imported != 1 {
			t.Fatalf("got %+v, %v", result, err)
		}
	})

	t.Run("too many rows", func(t *testing.T) {
		f := newFixture(testConfig{defaultSector: "General", maxRows: 1})
		_, err := f.svc.BulkImport(context.Background(), f.pool.ID, []map[string]string{{}, {}}, nil)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("got %v, want validation", err)
		}
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		f := newFixture(testConfig{defaultSector: "General"})
		f.store.AddSector("General")
		f.store.Fail["IncrementLeadCount"] = errors.New("connection reset")
		_, err := f.svc.BulkImport(context.Background(), f.pool.ID, []map[string]string{{"name": "A", "phone": "1"}}, nil)
		if !apperr.Is(err, apperr.KindInternal) {
			t.Fatalf("got %v, want internal", err)
		}
		if pooled, _ := f.store.ListPoolLeads(context.Background(), f.pool.ID, false); len(pooled) != 0 {
			t.Fatal("leads must roll back with the counter")
		}
	})
}

func TestImportFile(t *testing.T) {
	f := newFixture(testConfig{defaultSector: "General"})
	f.store.AddSector("General")
	content := []byte("Full Name,Phone Number\nAlice,0611111111\nBob,0622222222\n")

	result, err := f.svc.ImportFile(context.Background(), f.pool.ID, "march.csv", content, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("imported = %d, want 2", result.Imported)
	}
	if result.SourceKey != "pools/"+f.pool.ID.String()+"/march.csv" {
		t.Fatalf("source key = %q", result.SourceKey)
	}
	if !bytes.Equal(f.archiver.body, content) {
		t.Fatal("archived body differs from upload")
	}

	if _, err := f.svc.ImportFile(context.Background(), f.pool.ID, "march.pdf", content, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unsupported format: got %v", err)
	}
}

func TestImportFileLoadsPoolOnce(t *testing.T) {
	f := newFixture(testConfig{defaultSector: "General"})
	f.store.AddSector("General")
	before := f.store.PoolLookups

	if _, err := f.svc.ImportFile(context.Background(), f.pool.ID, "april.csv", []byte("name,phone\nAlice,0611111111\n"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.store.PoolLookups - before; got != 1 {
		t.Fatalf("pool lookups = %d, want 1", got)
	}
}

func TestImportFileRejectsOversizedFileBeforeArchiving(t *testing.T) {
	f := newFixture(testConfig{defaultSector: "General", maxRows: 1})
	f.store.AddSector("General")

	_, err := f.svc.ImportFile(context.Background(), f.pool.ID, "big.csv", []byte("name,phone\nAlice,1\nBob,2\n"), nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("got %v, want validation", err)
	}
	if len(f.archiver.keys) != 0 {
		t.Fatalf("rejected file was archived as %v", f.archiver.keys)
	}
}

func TestImportFileSurvivesArchiveFailure(t *testing.T) {
	f := newFixture(testConfig{defaultSector: "General"})
	f.store.AddSector("General")
	f.archiver.err = errors.New("minio unavailable")

	result, err := f.svc.ImportFile(context.Background(), f.pool.ID, "march.csv", []byte("name,phone\nAlice,1\n"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Imported != 1 || result.SourceKey != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCreateAndGetPool(t *testing.T) {
	f := newFixture(testConfig{})
	supervisor := f.store.AddUser("Sue", domain.RoleSupervisor, true)

	created, err := f.svc.Create(context.Background(), transport.CreatePoolRequest{Name: "April", CampaignID: f.campaign.ID}, supervisor.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CreatedByID == nil || *created.CreatedByID != supervisor.ID {
		t.Fatal("creator not recorded")
	}

	if _, err := f.svc.Create(context.Background(), transport.CreatePoolRequest{Name: "Nope", CampaignID: uuid.New()}, supervisor.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown campaign: got %v", err)
	}

	leads := f.addPooled(3)
	if _, err := f.svc.Distribute(context.Background(), f.pool.ID, transport.DistributeRequest{AgentID: f.agent.ID, LeadIDs: []uuid.UUID{leads[0].ID}}); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	got, err := f.svc.Get(context.Background(), f.pool.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Summary == nil || got.Summary.Total != 3 || got.Summary.Assigned != 1 || got.Summary.Unassigned != 2 {
		t.Fatalf("unexpected summary %+v", got.Summary)
	}

	list, err := f.svc.ListLeads(context.Background(), f.pool.ID, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 2 {
		t.Fatalf("unassigned leads = %d, want 2", list.Total)
	}
}

func TestExtractRowHeaderSynonyms(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
		want importRow
	}{
		{
			name: "canonical headers",
			raw:  map[string]string{"Full Name": "Alice", "Phone Number": "0612", "Sector": "Retail", "Product": "Solar"},
			want: importRow{fullName: "Alice", phone: "0612", sector: "Retail"},
		},
		{
			name: "snake and camel case",
			raw:  map[string]string{"fullName": "Bob", "phone_number": "0 6 1 3", "business_sector": "Energy"},
			want: importRow{fullName: "Bob", phone: "0613", sector: "Energy"},
		},
		{
			name: "preferred header wins over a weaker synonym",
			raw:  map[string]string{"name": "Short", "Full Name": "Carol Long", "telephone": "1", "phone": "2"},
			want: importRow{fullName: "Carol Long", phone: "2"},
		},
		{
			name: "blank preferred cell falls back",
			raw:  map[string]string{"Full Name": " ", "name": "Dave", "mobile": "3"},
			want: importRow{fullName: "Dave", phone: "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractRow(1, tt.raw)
			if got.fullName != tt.want.fullName || got.phone != tt.want.phone || got.sector != tt.want.sector {
				t.Fatalf("extractRow = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func hasID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
